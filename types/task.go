package types

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

var (
	QueueTypeDispatchSend = "dispatch:send"
)

// DispatchTask is the queue payload of one dispatch
type DispatchTask struct {
	Request *DispatchRequest `json:"request" validate:"required"`
}

func NewDispatchSendTask(task *DispatchTask) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(QueueTypeDispatchSend, payload), nil
}
