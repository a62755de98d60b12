package domain

// Account is the connected identity on one chain. It is created on wallet
// connection, cleared on disconnect and never persisted.
type Account struct {
	Kind    ChainKind `json:"kind"`
	Address string    `json:"address"`
}

func (a Account) IsZero() bool {
	return a.Address == ""
}

// Request is the user intent for one bridging attempt.
type Request struct {
	SourceAmount string  `json:"source_amount"`
	Source       Account `json:"source"`
	Destination  Account `json:"destination"`
}
