package apiroutes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/kasmail/kasmail-server/api"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/assert"
)

type noQueue struct{}

func (noQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return nil, asynq.ErrDuplicateTask
}

func (noQueue) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return nil, asynq.ErrTaskNotFound
}

func (noQueue) Stash(ctx context.Context, dispatchID string, attachment *types.Attachment) (string, error) {
	return "", types.ErrNotFound
}

func (noQueue) Discard(ctx context.Context, key string) error {
	return nil
}

type noBridge struct{}

func (noBridge) Pending(ctx context.Context, address string) ([]*types.TransferRequest, error) {
	return nil, nil
}

func (noBridge) Resolve(ctx context.Context, address, id string, result types.TransferResult) error {
	return types.ErrNotFound
}

func TestConfigRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	global.Conf.Auth.TokenSecret = "routes-secret"
	global.Conf.Kasmail.EmailDomain = "kasmail.com"

	router := ConfigRoutes(gin.New(), Apis{
		Messaging: api.NewMessagingApi(noQueue{}, noQueue{}, noQueue{}, 1024, time.Minute),
		Wallet:    api.NewWalletApi(noBridge{}),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kasmail.com")

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/messages"},
		{http.MethodGet, "/api/v1/messages/dispatch/abc"},
		{http.MethodGet, "/api/v1/wallet/transfers"},
		{http.MethodPost, "/api/v1/wallet/transfers/abc"},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}
