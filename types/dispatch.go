package types

// DispatchRequest is one end-to-end attempt to send a single message
type DispatchRequest struct {
	ID         string      `json:"id"`
	From       string      `json:"from"` // authenticated wallet address
	To         string      `json:"to"`   // raw recipient as typed by the user
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
	ReplyTo    string      `json:"replyTo,omitempty"` // message id
	Attachment *Attachment `json:"-"`                 // never serialized, queued requests carry AttachmentKey

	AttachmentKey string `json:"attachmentKey,omitempty"` // stashed attachment, loaded by the dispatch worker
}

// DispatchResult is written as the queue task result and polled by the client
type DispatchResult struct {
	ID        string         `json:"id"`
	Success   bool           `json:"success"`
	Message   *MessageRecord `json:"message,omitempty"`
	ErrorKind string         `json:"errorKind,omitempty"`
	Error     string         `json:"error,omitempty"` // user facing message
}

func NewDispatchResult(id string, record *MessageRecord, err error) *DispatchResult {
	if err != nil {
		return &DispatchResult{ID: id, ErrorKind: DispatchErrorKind(err), Error: UserMessage(err)}
	}
	return &DispatchResult{ID: id, Success: true, Message: record}
}
