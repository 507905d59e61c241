package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/types"
)

// MessageService writes the durable record of a dispatch. Records are never edited here.
type MessageService struct {
	messageRepo repository.Repository
}

func NewMessageService(dbSelector repository.DBSelector) *MessageService {
	messageRepo, err := dbSelector.ChooseDB(repository.Messages)
	if err != nil {
		panic(err)
	}
	return &MessageService{messageRepo: messageRepo}
}

// Commit stores the record with a single write. A draft on a paid path must carry at least
// one fee transaction id.
func (ms *MessageService) Commit(ctx context.Context, draft types.MessageDraft) (*types.MessageRecord, error) {
	if draft.PaymentRequired && (draft.Fees == nil || !draft.Fees.HasProof()) {
		level.Error(global.Logger).Log("msg", "refusing to commit unpaid internal message", "from", draft.From, "to", draft.To.String())
		return nil, fmt.Errorf("%w: no proof of payment", types.ErrPaymentFailed)
	}
	id := draft.ID
	if id == "" {
		id = uuid.NewString()
	}
	record := &types.MessageRecord{
		ID:         id,
		From:       draft.From,
		To:         draft.To,
		Subject:    draft.Subject,
		Body:       draft.Body,
		Attachment: draft.Attachment,
		RelayID:    draft.RelayID,
		Created:    time.Now().UTC().UnixMilli(),
	}
	if draft.Fees != nil {
		record.DevFeeTxID = draft.Fees.DevFeeTxID
		record.MinerFeeTxID = draft.Fees.MinerFeeTxID
		record.MinerAddress = draft.Fees.MinerAddress
	}
	if err := ms.messageRepo.Save(ctx, id, types.NewMessageDocument(record)); err != nil {
		level.Error(global.Logger).Log("msg", "failed to store message", "id", id, "from", draft.From, "err", err)
		return nil, fmt.Errorf("%w: %s", types.ErrCommitFailed, err.Error())
	}
	return record, nil
}

// Get returns a stored message by id
func (ms *MessageService) Get(ctx context.Context, id string) (*types.MessageRecord, error) {
	response, err := ms.messageRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			level.Error(global.Logger).Log("msg", "failed to read message", "id", id, "err", err)
		}
		return nil, err
	}
	var doc types.MessageDocument
	if mErr := repository.MapToObject(response, &doc); mErr != nil {
		return nil, mErr
	}
	return doc.ToRecord(), nil
}
