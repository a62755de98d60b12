package domain

import (
	"errors"
	"fmt"
)

// ReasonMissingPrecondition is the outcome reason for requests rejected
// before any chain interaction.
const ReasonMissingPrecondition = "missing precondition"

var (
	// ErrPrecondition: missing account or invalid amount, nothing touched on-chain
	ErrPrecondition = errors.New("precondition failed")

	// ErrConnection: wallet absent or connection declined
	ErrConnection = errors.New("wallet connection failed")

	// ErrSubmission: the transaction never reached the chain, safe to retry the step
	ErrSubmission = errors.New("transaction submission failed")

	// ErrConfirmation: reverted or timed out, on-chain effect is indeterminate
	ErrConfirmation = errors.New("transaction confirmation failed")

	// ErrBusy is returned when a run is already in progress
	ErrBusy = errors.New("bridge run already in progress")

	// ErrCancelled is returned when a run is halted before a submission
	ErrCancelled = errors.New("bridge run cancelled")
)

// BridgeError attaches the failing step to one of the sentinel kinds above.
type BridgeError struct {
	Kind error
	Step StepKind
	Err  error
}

func (e *BridgeError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Step != "" {
		return fmt.Sprintf("%s: %s: %s", e.Step, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

func (e *BridgeError) Is(target error) bool {
	return e.Kind == target
}

// Reason is the human readable cause without the step/kind prefix.
func (e *BridgeError) Reason() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func NewPreconditionError(err error) *BridgeError {
	return &BridgeError{Kind: ErrPrecondition, Err: err}
}

func NewConnectionError(err error) *BridgeError {
	return &BridgeError{Kind: ErrConnection, Err: err}
}

func NewSubmissionError(step StepKind, err error) *BridgeError {
	return &BridgeError{Kind: ErrSubmission, Step: step, Err: err}
}

func NewConfirmationError(step StepKind, err error) *BridgeError {
	return &BridgeError{Kind: ErrConfirmation, Step: step, Err: err}
}

func NewCancelledError(step StepKind, err error) *BridgeError {
	return &BridgeError{Kind: ErrCancelled, Step: step, Err: err}
}

// ErrorKind returns a short label for metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrSubmission):
		return "submission"
	case errors.Is(err, ErrConfirmation):
		return "confirmation"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "unknown"
	}
}
