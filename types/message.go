package types

// MessageRecord is the durable result of one successful dispatch.
// Only IsRead and IsArchived change after creation (inbox views).
type MessageRecord struct {
	ID           string          `json:"id"`
	From         string          `json:"from"`
	To           RecipientTarget `json:"to"`
	Subject      string          `json:"subject"`
	Body         string          `json:"body"`
	DevFeeTxID   *string         `json:"devFeeTxId,omitempty"`
	MinerFeeTxID *string         `json:"minerFeeTxId,omitempty"`
	MinerAddress *string         `json:"minerAddress,omitempty"`
	Attachment   *AttachmentRef  `json:"attachment,omitempty"`
	RelayID      string          `json:"relayId,omitempty"`
	Created      int64           `json:"created"` // UTC milliseconds since epoch
	IsRead       bool            `json:"isRead"`
	IsArchived   bool            `json:"isArchived"`
}

// MessageDocument is the shape stored in the messages database.
// The recipient kind is folded into To with the ExternalMarker prefix.
type MessageDocument struct {
	BaseDocument `json:",inline"`
	ID           string         `json:"id"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	Subject      string         `json:"subject"`
	Body         string         `json:"body"`
	DevFeeTxID   *string        `json:"devFeeTxId"`
	MinerFeeTxID *string        `json:"minerFeeTxId"`
	MinerAddress *string        `json:"minerAddress"`
	Attachment   *AttachmentRef `json:"attachment"`
	RelayID      string         `json:"relayId,omitempty"`
	Created      int64          `json:"created"`
	IsRead       bool           `json:"isRead"`
	IsArchived   bool           `json:"isArchived"`
}

// MessageDraft is everything the pipeline gathered before the commit step
type MessageDraft struct {
	ID              string // defaults to a new uuid
	From            string
	To              RecipientTarget
	Subject         string
	Body            string
	Fees            *FeeTransactionOutcome // nil on the external path
	PaymentRequired bool
	Attachment      *AttachmentRef
	RelayID         string
}

// RelayMail is the transport agnostic request handed to an external relay
type RelayMail struct {
	From    string `json:"from" validate:"required,email"`
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject"`
	Body    string `json:"body" validate:"required"`
}

func (d *MessageDocument) ToRecord() *MessageRecord {
	return &MessageRecord{
		ID:           d.ID,
		From:         d.From,
		To:           ParseStorageAddress(d.To),
		Subject:      d.Subject,
		Body:         d.Body,
		DevFeeTxID:   d.DevFeeTxID,
		MinerFeeTxID: d.MinerFeeTxID,
		MinerAddress: d.MinerAddress,
		Attachment:   d.Attachment,
		RelayID:      d.RelayID,
		Created:      d.Created,
		IsRead:       d.IsRead,
		IsArchived:   d.IsArchived,
	}
}

func NewMessageDocument(r *MessageRecord) *MessageDocument {
	return &MessageDocument{
		ID:           r.ID,
		From:         r.From,
		To:           r.To.StorageAddress(),
		Subject:      r.Subject,
		Body:         r.Body,
		DevFeeTxID:   r.DevFeeTxID,
		MinerFeeTxID: r.MinerFeeTxID,
		MinerAddress: r.MinerAddress,
		Attachment:   r.Attachment,
		RelayID:      r.RelayID,
		Created:      r.Created,
		IsRead:       r.IsRead,
		IsArchived:   r.IsArchived,
	}
}
