package types

// SenderIdentity is the wallet sending a message. Balance is in sompi and is
// fetched fresh for every dispatch.
type SenderIdentity struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// SendPreferences are read once per dispatch from the sender's profile
type SendPreferences struct {
	OnlyInternal bool `json:"onlyInternal"`
}

// Eligibility is the result of the minimum balance check
type Eligibility struct {
	Eligible bool           `json:"eligible"`
	Reason   string         `json:"reason,omitempty"`
	Sender   SenderIdentity `json:"sender"`
}
