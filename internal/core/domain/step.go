package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

type StepKind string

const (
	StepConvert  StepKind = "convert_to_bridge_token"
	StepApprove  StepKind = "approve_bridge_spend"
	StepTransfer StepKind = "transfer_to_bridge"
	StepMint     StepKind = "execute_destination_mint"
)

// StepOrder is the only order in which steps may execute.
var StepOrder = [4]StepKind{StepConvert, StepApprove, StepTransfer, StepMint}

var stepLabels = map[StepKind]string{
	StepConvert:  "Converting ETH to IBT...",
	StepApprove:  "Approving tokens for bridge...",
	StepTransfer: "Transferring tokens to bridge...",
	StepMint:     "Executing Sui transaction...",
}

// Label returns the stage text shown while the step is active.
func (k StepKind) Label() string {
	return stepLabels[k]
}

// Chain returns the chain the step executes on.
func (k StepKind) Chain() ChainKind {
	if k == StepMint {
		return ChainDestination
	}
	return ChainSource
}

func (k StepKind) Valid() bool {
	_, ok := stepLabels[k]
	return ok
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepSubmitted StepStatus = "submitted"
	StepConfirmed StepStatus = "confirmed"
	StepFailed    StepStatus = "failed"
)

// Step is one unit of on-chain work within a run.
type Step struct {
	Kind        StepKind   `json:"kind"`
	Status      StepStatus `json:"status"`
	Amount      *big.Int   `json:"amount,omitempty"`
	TxID        string     `json:"tx_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// MarshalJSON renders Amount as a decimal string so base-unit values keep
// full precision in JSON clients.
func (s Step) MarshalJSON() ([]byte, error) {
	type plain Step
	out := struct {
		plain
		Amount string `json:"amount,omitempty"`
	}{plain: plain(s)}
	if s.Amount != nil {
		out.Amount = s.Amount.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts Amount as a decimal string or a bare JSON number.
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	in := struct {
		*plain
		Amount json.RawMessage `json:"amount,omitempty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Amount = nil
	raw := bytes.Trim(in.Amount, `"`)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	amount, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return fmt.Errorf("invalid step amount %s", in.Amount)
	}
	s.Amount = amount
	return nil
}

func (s Step) clone() Step {
	out := s
	if s.Amount != nil {
		out.Amount = new(big.Int).Set(s.Amount)
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		out.SubmittedAt = &t
	}
	if s.ConfirmedAt != nil {
		t := *s.ConfirmedAt
		out.ConfirmedAt = &t
	}
	return out
}
