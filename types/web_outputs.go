package types

type OutputDispatchAccepted struct {
	ID string `json:"id"`
}

type OutputDispatchStatus struct {
	ID     string          `json:"id"`
	State  string          `json:"state"` // pending, active, completed, ...
	Result *DispatchResult `json:"result,omitempty"`
}

type OutputPendingTransfers struct {
	Transfers []*TransferRequest `json:"transfers"`
}
