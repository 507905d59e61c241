package types

// send message (JSON body or multipart form, attachment as file part "attachment")
type InputSendMessage struct {
	To      string `json:"to" form:"to" validate:"required_without=ReplyTo,max=320"`
	Subject string `json:"subject" form:"subject" validate:"max=998"`
	Body    string `json:"body" form:"body" validate:"required,max=100000"`
	ReplyTo string `json:"replyTo" form:"replyTo" validate:"omitempty,uuid"`
}

// wallet answer to a pending transfer request
type InputTransferResolution struct {
	TxID      string `json:"txId" validate:"max=128"`
	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty" validate:"max=512"`
}
