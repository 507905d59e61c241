package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/kasmail/kasmail-server/api/interceptors"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

const (
	dispatchQueue = "default"

	// how long a finished dispatch stays readable for polling and duplicate detection
	dispatchRetention = 24 * time.Hour

	maxIdempotencyKeyLength = 255
)

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is satisfied by *asynq.Inspector
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// AttachmentStash is satisfied by *services.AttachmentStashService
type AttachmentStash interface {
	Stash(ctx context.Context, dispatchID string, attachment *types.Attachment) (string, error)
	Discard(ctx context.Context, key string) error
}

type MessagingApi struct {
	enqueuer          TaskEnqueuer
	inspector         TaskInspector
	attachments       AttachmentStash
	validate          *validator.Validate
	maxAttachmentSize int64
	dispatchTimeout   time.Duration
}

func NewMessagingApi(enqueuer TaskEnqueuer, inspector TaskInspector, attachments AttachmentStash, maxAttachmentSize int64, dispatchTimeout time.Duration) *MessagingApi {
	if enqueuer == nil || inspector == nil || attachments == nil {
		panic("task enqueuer, inspector and attachment stash cannot be nil")
	}
	return &MessagingApi{
		enqueuer:          enqueuer,
		inspector:         inspector,
		attachments:       attachments,
		validate:          validator.New(),
		maxAttachmentSize: maxAttachmentSize,
		dispatchTimeout:   dispatchTimeout,
	}
}

// dispatchID derives a stable id from the idempotency key, so a resubmission collides in the queue
func dispatchID(sender, idempotencyKey string) string {
	if idempotencyKey == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sender+":"+idempotencyKey)).String()
}

func (ma *MessagingApi) readAttachment(fileHeader *multipart.FileHeader) (*types.Attachment, error) {
	if fileHeader.Size > ma.maxAttachmentSize {
		return nil, errors.New("attachment too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, ma.maxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > ma.maxAttachmentSize {
		return nil, errors.New("attachment too large")
	}
	return &types.Attachment{Filename: fileHeader.Filename, Content: content}, nil
}

// Send a message
// @Summary Queue a message for dispatch (fee payment, storage or external relay)
// @Security Bearer
// @Description Accepts JSON or multipart/form-data (optional file part "attachment"). An optional Idempotency-Key header deduplicates resubmissions.
// @Tags Messaging
// @Accept json,mpfd
// @Produce json
// @Param message body types.InputSendMessage true "message"
// @Success 202 {object} types.OutputDispatchAccepted
// @Failure 400 {object} api.ApiError "bad request"
// @Failure 409 {object} types.OutputDispatchAccepted "already submitted"
// @Failure 413 {object} api.ApiError "attachment too large"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Router /api/v1/messages [post]
func (ma *MessagingApi) SendMessage(c *gin.Context) {
	subjectAddress, exists := c.Get(interceptors.SubjectAddressKey)
	if !exists {
		ApiErrorf(c, http.StatusInternalServerError, "jwt invalid")
		return
	}
	from := subjectAddress.(string)

	var input types.InputSendMessage
	var attachment *types.Attachment
	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ma.maxAttachmentSize+1<<20)
		if err := c.ShouldBindWith(&input, binding.FormMultipart); err != nil {
			ApiErrorf(c, http.StatusBadRequest, "invalid format")
			return
		}
		fileHeader, fErr := c.FormFile("attachment")
		if fErr != nil && !errors.Is(fErr, http.ErrMissingFile) {
			ApiErrorf(c, http.StatusBadRequest, "invalid attachment")
			return
		}
		if fileHeader != nil {
			a, aErr := ma.readAttachment(fileHeader)
			if aErr != nil {
				ApiErrorf(c, http.StatusRequestEntityTooLarge, "attachment exceeds %d bytes", ma.maxAttachmentSize)
				return
			}
			attachment = a
		}
	} else if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid format")
		return
	}

	if err := ma.validate.Struct(input); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			ApiErrorf(c, http.StatusBadRequest, ValidatorErrorToUser(vErrs))
			return
		}
		ApiErrorf(c, http.StatusBadRequest, err.Error())
		return
	}

	idempotencyKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		ApiErrorf(c, http.StatusBadRequest, "Idempotency-Key is longer than %d characters", maxIdempotencyKeyLength)
		return
	}
	id := dispatchID(from, idempotencyKey)

	attachmentKey := ""
	if attachment != nil {
		key, sErr := ma.attachments.Stash(c.Request.Context(), id, attachment)
		if sErr != nil {
			ApiErrorf(c, http.StatusInternalServerError, "failed to store attachment")
			return
		}
		attachmentKey = key
	}

	task, tErr := types.NewDispatchSendTask(&types.DispatchTask{
		Request: &types.DispatchRequest{
			ID:            id,
			From:          from,
			To:            input.To,
			Subject:       input.Subject,
			Body:          input.Body,
			ReplyTo:       input.ReplyTo,
			AttachmentKey: attachmentKey,
		},
	})
	if tErr != nil {
		ma.discardAttachment(attachmentKey)
		ApiErrorf(c, http.StatusInternalServerError, tErr.Error())
		return
	}

	// the pipeline is not idempotent, a failed dispatch is never retried by the queue
	taskInfo, tqErr := ma.enqueuer.Enqueue(task,
		asynq.Queue(dispatchQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(ma.dispatchTimeout+time.Minute),
		asynq.Retention(dispatchRetention),
		asynq.TaskID(id))
	if tqErr != nil {
		ma.discardAttachment(attachmentKey)
		if errors.Is(tqErr, asynq.ErrTaskIDConflict) {
			c.JSON(http.StatusConflict, types.OutputDispatchAccepted{ID: id})
			return
		}
		level.Error(global.Logger).Log("msg", "failed to queue dispatch", "from", from, "err", tqErr)
		ApiErrorf(c, http.StatusInternalServerError, "failed to send message")
		return
	}
	level.Info(global.Logger).Log("msg", "dispatch queued", "id", taskInfo.ID, "from", from)

	c.JSON(http.StatusAccepted, types.OutputDispatchAccepted{ID: id})
}

// discardAttachment drops a stashed attachment whose task never made it into the queue
func (ma *MessagingApi) discardAttachment(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ma.attachments.Discard(ctx, key)
}

// Dispatch status
// @Summary Poll the state of a queued dispatch
// @Security Bearer
// @Tags Messaging
// @Produce json
// @Param id path string true "dispatch id"
// @Success 200 {object} types.OutputDispatchStatus
// @Failure 404 {object} api.ApiError "unknown dispatch"
// @Router /api/v1/messages/dispatch/{id} [get]
func (ma *MessagingApi) GetDispatchStatus(c *gin.Context) {
	subjectAddress, exists := c.Get(interceptors.SubjectAddressKey)
	if !exists {
		ApiErrorf(c, http.StatusInternalServerError, "jwt invalid")
		return
	}
	id := c.Param("id")
	if id == "" {
		ApiErrorf(c, http.StatusBadRequest, "id is required")
		return
	}

	info, err := ma.inspector.GetTaskInfo(dispatchQueue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			ApiErrorf(c, http.StatusNotFound, "dispatch not found")
			return
		}
		level.Error(global.Logger).Log("msg", "failed to read dispatch task", "id", id, "err", err)
		ApiErrorf(c, http.StatusInternalServerError, "failed to read dispatch status")
		return
	}

	// other wallets' dispatches are reported as missing
	var task types.DispatchTask
	if uErr := json.Unmarshal(info.Payload, &task); uErr != nil || task.Request == nil || task.Request.From != subjectAddress.(string) {
		ApiErrorf(c, http.StatusNotFound, "dispatch not found")
		return
	}

	output := types.OutputDispatchStatus{ID: id, State: info.State.String()}
	if len(info.Result) > 0 {
		var result types.DispatchResult
		if uErr := json.Unmarshal(info.Result, &result); uErr != nil {
			level.Error(global.Logger).Log("msg", "failed to decode dispatch result", "id", id, "err", uErr)
			ApiErrorf(c, http.StatusInternalServerError, "failed to read dispatch status")
			return
		}
		output.Result = &result
	}
	c.JSON(http.StatusOK, output)
}
