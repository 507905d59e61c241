package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

// Dispatcher is satisfied by *services.DispatchService
type Dispatcher interface {
	Dispatch(ctx context.Context, request *types.DispatchRequest) (*types.MessageRecord, error)
}

// AttachmentLoader is satisfied by *services.AttachmentStashService
type AttachmentLoader interface {
	Load(ctx context.Context, key string) (*types.Attachment, error)
	Discard(ctx context.Context, key string) error
}

type DispatchQueue struct {
	dispatcher  Dispatcher
	attachments AttachmentLoader
	validate    *validator.Validate
}

func NewDispatchQueue(dispatcher Dispatcher, attachments AttachmentLoader) *DispatchQueue {
	if dispatcher == nil || attachments == nil {
		panic("dispatcher and attachment loader cannot be nil")
	}
	return &DispatchQueue{dispatcher: dispatcher, attachments: attachments, validate: validator.New()}
}

// ProcessDispatchTask runs one dispatch and stores the DispatchResult as the task result.
// Pipeline failures are part of the result; the task itself only fails on a broken payload.
func (dq *DispatchQueue) ProcessDispatchTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != types.QueueTypeDispatchSend {
		return fmt.Errorf("unexpected task type: %s, %w", t.Type(), asynq.SkipRetry)
	}
	taskID := ""
	if w := t.ResultWriter(); w != nil {
		taskID = w.TaskID()
	}
	result, err := dq.process(ctx, taskID, t.Payload())
	if err != nil {
		return err
	}
	payload, mErr := json.Marshal(result)
	if mErr != nil {
		return fmt.Errorf("json.Marshal failed: %v: %w", mErr, asynq.SkipRetry)
	}
	if w := t.ResultWriter(); w != nil {
		if _, wErr := w.Write(payload); wErr != nil {
			level.Error(global.Logger).Log("msg", "failed to write dispatch result", "task", taskID, "err", wErr)
			return fmt.Errorf("failed to write result: %v: %w", wErr, asynq.SkipRetry)
		}
	}
	return nil
}

func (dq *DispatchQueue) process(ctx context.Context, taskID string, payload []byte) (*types.DispatchResult, error) {
	var task types.DispatchTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := dq.validate.Struct(task); err != nil {
		return nil, fmt.Errorf("invalid dispatch task: %v: %w", err, asynq.SkipRetry)
	}
	request := task.Request
	if request.ID == "" {
		request.ID = taskID
	}
	if request.AttachmentKey != "" {
		// the stash is single use, whatever the dispatch outcome
		defer dq.attachments.Discard(context.Background(), request.AttachmentKey)
		attachment, err := dq.attachments.Load(ctx, request.AttachmentKey)
		if err != nil {
			level.Error(global.Logger).Log("msg", "failed to load stashed attachment", "dispatch", request.ID, "key", request.AttachmentKey, "err", err)
			if errors.Is(err, types.ErrNotFound) {
				err = fmt.Errorf("%w: attachment expired before dispatch", types.ErrUploadFailed)
			} else {
				err = fmt.Errorf("%w: %v", types.ErrUploadFailed, err)
			}
			return types.NewDispatchResult(request.ID, nil, err), nil
		}
		request.Attachment = attachment
	}
	record, err := dq.dispatcher.Dispatch(ctx, request)
	return types.NewDispatchResult(request.ID, record, err), nil
}
