package types

type PaymentState string

const (
	PaymentNotStarted        PaymentState = "not_started"
	PaymentDevFeeAttempted   PaymentState = "dev_fee_attempted"
	PaymentMinerFeeAttempted PaymentState = "miner_fee_attempted"
	PaymentSettled           PaymentState = "settled"
	PaymentFailed            PaymentState = "payment_failed"
)

const (
	FeeKindDev   = "dev_fee"
	FeeKindMiner = "miner_fee"
)

// FeeTransactionOutcome collects the proof-of-payment transaction ids of one dispatch.
// Both ids are independently optional.
type FeeTransactionOutcome struct {
	State        PaymentState `json:"state"`
	DevFeeTxID   *string      `json:"devFeeTxId,omitempty"`
	MinerFeeTxID *string      `json:"minerFeeTxId,omitempty"`
	MinerAddress *string      `json:"minerAddress,omitempty"`
}

// HasProof is true when at least one fee transaction produced a transaction id
func (o FeeTransactionOutcome) HasProof() bool {
	return o.DevFeeTxID != nil || o.MinerFeeTxID != nil
}

// FeeOptions are passed through to the wallet
type FeeOptions struct {
	PriorityFeeSompi uint64 `json:"priorityFee,omitempty"`
}

// TransferRequest asks the sender's wallet to sign and broadcast a transfer
type TransferRequest struct {
	ID          string     `json:"id"`
	DispatchID  string     `json:"dispatchId,omitempty"`
	Kind        string     `json:"kind"` // dev_fee or miner_fee
	FromAddress string     `json:"fromAddress"`
	ToAddress   string     `json:"toAddress"`
	AmountSompi uint64     `json:"amount"`
	FeeOptions  FeeOptions `json:"feeOptions"`
	Created     int64      `json:"created"`
	Expires     int64      `json:"expires"`
}

// TransferResult is the wallet's answer to a TransferRequest
type TransferResult struct {
	TxID      string `json:"txId,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Error     string `json:"error,omitempty"`
}
