package domain

import (
	"time"

	"github.com/google/uuid"
)

type OutcomeState string

const (
	OutcomeNotStarted OutcomeState = "not_started"
	OutcomeInProgress OutcomeState = "in_progress"
	OutcomeSucceeded  OutcomeState = "succeeded"
	OutcomeFailed     OutcomeState = "failed"
)

// Outcome of a run. FailedStep is empty when the failure happened before any
// step (missing precondition).
type Outcome struct {
	State      OutcomeState `json:"state"`
	Reason     string       `json:"reason,omitempty"`
	FailedStep StepKind     `json:"failed_step,omitempty"`
}

func (o Outcome) Terminal() bool {
	return o.State == OutcomeSucceeded || o.State == OutcomeFailed
}

// Run aggregates the execution of one Request.
type Run struct {
	ID                 uuid.UUID `json:"id"`
	SourceAmount       string    `json:"source_amount"`
	SourceAddress      string    `json:"source_address"`
	DestinationAddress string    `json:"destination_address"`
	Steps              [4]Step   `json:"steps"`
	StageLabel         string    `json:"stage_label"`
	Outcome            Outcome   `json:"outcome"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at,omitempty"`
}

// NewRun returns a run with all steps pending, in StepOrder.
func NewRun(req Request) Run {
	r := Run{
		ID:                 uuid.New(),
		SourceAmount:       req.SourceAmount,
		SourceAddress:      req.Source.Address,
		DestinationAddress: req.Destination.Address,
		Outcome:            Outcome{State: OutcomeNotStarted},
	}
	for i, k := range StepOrder {
		r.Steps[i] = Step{Kind: k, Status: StepPending}
	}
	return r
}

// Clone returns a deep copy safe to hand to observers.
func (r Run) Clone() Run {
	out := r
	for i := range r.Steps {
		out.Steps[i] = r.Steps[i].clone()
	}
	return out
}

// Step returns a pointer to the step of the given kind.
func (r *Run) Step(kind StepKind) *Step {
	for i := range r.Steps {
		if r.Steps[i].Kind == kind {
			return &r.Steps[i]
		}
	}
	return nil
}

// InProgress reports whether the run currently owns the orchestrator.
func (r Run) InProgress() bool {
	return r.Outcome.State == OutcomeInProgress
}
