package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kasmail/kasmail-server/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStash(t *testing.T, ttl time.Duration) (*AttachmentStashService, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewAttachmentStashService(client, ttl), mr
}

func TestStashRoundTrip(t *testing.T) {
	stash, mr := newTestStash(t, time.Hour)
	ctx := context.Background()

	key, err := stash.Stash(ctx, "d-1", &types.Attachment{Filename: "a.png", Content: pngBytes})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "dispatch:attachment:d-1:"))
	assert.Equal(t, time.Hour, mr.TTL(key))

	loaded, err := stash.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a.png", loaded.Filename)
	assert.Equal(t, pngBytes, loaded.Content)

	require.NoError(t, stash.Discard(ctx, key))
	assert.False(t, mr.Exists(key))
	_, err = stash.Load(ctx, key)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStashKeysAreUniquePerSubmission(t *testing.T) {
	stash, _ := newTestStash(t, time.Hour)
	ctx := context.Background()

	first, err := stash.Stash(ctx, "d-1", &types.Attachment{Filename: "a.txt", Content: []byte("first")})
	require.NoError(t, err)
	second, err := stash.Stash(ctx, "d-1", &types.Attachment{Filename: "a.txt", Content: []byte("second")})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.NoError(t, stash.Discard(ctx, second))
	loaded, err := stash.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), loaded.Content)
}

func TestStashExpires(t *testing.T) {
	stash, mr := newTestStash(t, time.Minute)
	ctx := context.Background()

	key, err := stash.Stash(ctx, "d-1", &types.Attachment{Filename: "a.txt", Content: []byte("abc")})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = stash.Load(ctx, key)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
