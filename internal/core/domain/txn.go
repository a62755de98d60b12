package domain

import "math/big"

// Handle identifies a submitted transaction.
type Handle struct {
	Kind  StepKind  `json:"kind"`
	Chain ChainKind `json:"chain"`
	TxID  string    `json:"tx_id"`
}

type TxStatus string

const (
	TxStatusSuccess  TxStatus = "success"
	TxStatusReverted TxStatus = "reverted"
)

// Receipt is the finalized result of a submitted transaction.
type Receipt struct {
	TxID    string   `json:"tx_id"`
	Block   uint64   `json:"block"`
	GasUsed uint64   `json:"gas_used"`
	Status  TxStatus `json:"status"`
}

// SubmitParams carries what a gateway needs to build a step's transaction.
// Value is only used by the convert step, Call only by the destination mint.
type SubmitParams struct {
	From    string
	Value   *big.Int
	Spender string
	Amount  *big.Int
	Call    *MoveCall
}
