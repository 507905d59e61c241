package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/metrics"
	"github.com/kasmail/kasmail-server/types"
)

const (
	replySubjectPrefix = "Re: "
	replySeparator     = "\n\n────────── Original message ──────────\n"
)

// PreferenceSource is satisfied by *UserProfileService
type PreferenceSource interface {
	SendPreferences(ctx context.Context, address string) (types.SendPreferences, error)
	SenderName(ctx context.Context, address string) string
}

// AttachmentStore is satisfied by *S3Service
type AttachmentStore interface {
	ValidateAttachment(attachment *types.Attachment) (mimeType string, name string, err error)
	UploadAttachment(ctx context.Context, sender string, attachment *types.Attachment) (*types.AttachmentRef, error)
	DeleteAttachment(ctx context.Context, storagePath string) error
}

// MessageStore is satisfied by *MessageService
type MessageStore interface {
	Commit(ctx context.Context, draft types.MessageDraft) (*types.MessageRecord, error)
	Get(ctx context.Context, id string) (*types.MessageRecord, error)
}

type DispatchConfig struct {
	EmailDomain string        // internal domain, external senders appear as username@EmailDomain
	DefaultFrom string        // external sender address when the wallet has no public username
	Timeout     time.Duration // whole dispatch
}

// DispatchService runs the outbound pipeline:
// eligibility, recipient resolution, then either fees + attachment + commit (internal)
// or relay + commit (external).
type DispatchService struct {
	eligibility *EligibilityService
	profiles    PreferenceSource
	recipients  *RecipientService
	payments    *PaymentService
	attachments AttachmentStore // nil disables attachments
	delivery    *DeliveryService
	messages    MessageStore
	conf        DispatchConfig
}

func NewDispatchService(eligibility *EligibilityService, profiles PreferenceSource, recipients *RecipientService, payments *PaymentService,
	attachments AttachmentStore, delivery *DeliveryService, messages MessageStore, conf DispatchConfig) *DispatchService {
	return &DispatchService{
		eligibility: eligibility,
		profiles:    profiles,
		recipients:  recipients,
		payments:    payments,
		attachments: attachments,
		delivery:    delivery,
		messages:    messages,
		conf:        conf,
	}
}

// Dispatch sends one message. It is not idempotent: calling it twice with the same request
// may charge fees twice.
func (ds *DispatchService) Dispatch(ctx context.Context, request *types.DispatchRequest) (*types.MessageRecord, error) {
	start := time.Now()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	ctx = WithDispatchID(ctx, request.ID)
	if ds.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ds.conf.Timeout)
		defer cancel()
	}

	record, recipientKind, err := ds.dispatch(ctx, request)

	outcome := "sent"
	if err != nil {
		outcome = types.DispatchErrorKind(err)
		level.Warn(global.Logger).Log("msg", "dispatch failed", "dispatch", request.ID, "sender", request.From, "kind", outcome, "err", err)
	} else {
		level.Info(global.Logger).Log("msg", "message dispatched", "dispatch", request.ID, "sender", request.From, "recipient", recipientKind)
	}
	metrics.DispatchesMetricsTotal.WithLabelValues(outcome, recipientKind).Inc()
	metrics.DispatchProcessingLatency.Observe(float64(time.Since(start).Milliseconds()))
	return record, err
}

func (ds *DispatchService) dispatch(ctx context.Context, request *types.DispatchRequest) (*types.MessageRecord, string, error) {
	recipientKind := "unresolved"

	eligibility, err := ds.eligibility.Check(ctx, request.From)
	if err != nil {
		return nil, recipientKind, fmt.Errorf("%w: %v", types.ErrBadRequest, err)
	}
	if !eligibility.Eligible {
		return nil, recipientKind, fmt.Errorf("%w: %s", types.ErrIneligible, eligibility.Reason)
	}

	prefs, err := ds.profiles.SendPreferences(ctx, request.From)
	if err != nil {
		return nil, recipientKind, err
	}

	to, subject, body := request.To, request.Subject, request.Body
	if request.ReplyTo != "" {
		to, subject, body, err = ds.composeReply(ctx, request)
		if err != nil {
			return nil, recipientKind, err
		}
	}

	target, err := ds.recipients.Resolve(ctx, to, prefs)
	if err != nil {
		return nil, recipientKind, err
	}
	recipientKind = target.Kind.String()

	draft := types.MessageDraft{
		ID:      request.ID,
		From:    request.From,
		To:      target,
		Subject: subject,
		Body:    body,
	}
	if target.IsExternal() {
		record, err := ds.sendExternal(ctx, request, draft)
		return record, recipientKind, err
	}
	record, err := ds.sendInternal(ctx, request, eligibility.Sender, draft)
	return record, recipientKind, err
}

func (ds *DispatchService) sendInternal(ctx context.Context, request *types.DispatchRequest, sender types.SenderIdentity, draft types.MessageDraft) (*types.MessageRecord, error) {
	// validated before any fee is paid
	if request.Attachment != nil {
		if ds.attachments == nil {
			return nil, fmt.Errorf("%w: attachments are disabled", types.ErrUploadFailed)
		}
		if _, _, vErr := ds.attachments.ValidateAttachment(request.Attachment); vErr != nil {
			return nil, vErr
		}
	}

	fees, err := ds.payments.Settle(ctx, sender)
	if err != nil {
		return nil, err
	}
	draft.Fees = &fees
	draft.PaymentRequired = true

	if request.Attachment != nil {
		ref, uErr := ds.attachments.UploadAttachment(ctx, request.From, request.Attachment)
		if uErr != nil {
			level.Error(global.Logger).Log("msg", "attachment upload failed after fees were paid", "dispatch", request.ID, "sender", request.From, "err", uErr)
			return nil, uErr
		}
		draft.Attachment = ref
	}

	record, err := ds.messages.Commit(ctx, draft)
	if err != nil {
		level.Error(global.Logger).Log("msg", "commit failed after fees were paid", "dispatch", request.ID, "sender", request.From,
			"devFeeTxId", deref(fees.DevFeeTxID), "minerFeeTxId", deref(fees.MinerFeeTxID), "err", err)
		if draft.Attachment != nil {
			ds.discardAttachment(draft.Attachment)
		}
		return nil, err
	}
	return record, nil
}

func (ds *DispatchService) sendExternal(ctx context.Context, request *types.DispatchRequest, draft types.MessageDraft) (*types.MessageRecord, error) {
	if request.Attachment != nil {
		return nil, fmt.Errorf("%w: attachments can only be sent to KasMail recipients", types.ErrBadRequest)
	}
	from := ds.conf.DefaultFrom
	if name := ds.profiles.SenderName(ctx, request.From); name != "" && ds.conf.EmailDomain != "" {
		from = name + "@" + ds.conf.EmailDomain
	}
	relayID, err := ds.delivery.Deliver(ctx, types.RelayMail{
		From:    from,
		To:      draft.To.Email,
		Subject: draft.Subject,
		Body:    draft.Body,
	})
	if err != nil {
		return nil, err
	}
	draft.RelayID = relayID
	record, err := ds.messages.Commit(ctx, draft)
	if err != nil {
		level.Error(global.Logger).Log("msg", "commit failed after relay accepted message", "dispatch", request.ID, "relayId", relayID, "err", err)
		return nil, err
	}
	return record, nil
}

// composeReply derives recipient, subject and body from the replied message.
// Only a participant of the original message may reply to it.
func (ds *DispatchService) composeReply(ctx context.Context, request *types.DispatchRequest) (string, string, string, error) {
	original, err := ds.messages.Get(ctx, request.ReplyTo)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", "", "", fmt.Errorf("%w: replied message %s not found", types.ErrBadRequest, request.ReplyTo)
		}
		return "", "", "", err
	}
	if original.From != request.From && original.To.Address != request.From {
		return "", "", "", fmt.Errorf("%w: replied message %s not found", types.ErrBadRequest, request.ReplyTo)
	}
	to := strings.TrimSpace(request.To)
	if to == "" {
		to = original.From
		if original.From == request.From {
			to = original.To.String()
		}
	}
	subject := request.Subject
	if subject == "" {
		subject = original.Subject
	}
	return to, ReplySubject(subject), request.Body + replySeparator + original.Body, nil
}

// ReplySubject prefixes "Re: " once
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, replySubjectPrefix) {
		return subject
	}
	if subject == "" {
		subject = defaultRelaySubject
	}
	return replySubjectPrefix + subject
}

func (ds *DispatchService) discardAttachment(ref *types.AttachmentRef) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ds.attachments.DeleteAttachment(ctx, ref.StoragePath); err != nil {
		level.Warn(global.Logger).Log("msg", "orphaned attachment left in storage", "path", ref.StoragePath, "err", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
