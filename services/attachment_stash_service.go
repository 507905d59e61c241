package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
	"github.com/redis/go-redis/v9"
)

// dispatch:attachment:<dispatch id>:<random>, a hash with filename and content
const dispatchAttachmentKey = "dispatch:attachment:%s:%s"

// AttachmentStashService holds attachment bytes between the API and the dispatch worker,
// so queue payloads (retained for polling) carry only the key.
type AttachmentStashService struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewAttachmentStashService(redisClient *redis.Client, ttl time.Duration) *AttachmentStashService {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &AttachmentStashService{redisClient: redisClient, ttl: ttl}
}

// Stash stores the attachment and returns its key. Each call gets its own key, so a
// resubmitted dispatch id never overwrites the blob of the queued original.
func (as *AttachmentStashService) Stash(ctx context.Context, dispatchID string, attachment *types.Attachment) (string, error) {
	key := fmt.Sprintf(dispatchAttachmentKey, dispatchID, uuid.NewString())
	pipe := as.redisClient.TxPipeline()
	pipe.HSet(ctx, key, "filename", attachment.Filename, "content", attachment.Content)
	pipe.Expire(ctx, key, as.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		level.Error(global.Logger).Log("msg", "failed to stash attachment", "dispatch", dispatchID, "err", err)
		return "", err
	}
	return key, nil
}

// Load returns types.ErrNotFound once the stash expired or was discarded
func (as *AttachmentStashService) Load(ctx context.Context, key string) (*types.Attachment, error) {
	fields, err := as.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	content, ok := fields["content"]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &types.Attachment{Filename: fields["filename"], Content: []byte(content)}, nil
}

func (as *AttachmentStashService) Discard(ctx context.Context, key string) error {
	if err := as.redisClient.Del(ctx, key).Err(); err != nil {
		level.Warn(global.Logger).Log("msg", "failed to discard stashed attachment", "key", key, "err", err)
		return err
	}
	return nil
}
