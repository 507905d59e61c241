package email

import (
	"context"
	"testing"

	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopHandler struct{}

func (noopHandler) Send(ctx context.Context, mail *types.RelayMail) (string, error) {
	return "noop", nil
}

func TestRegistry(t *testing.T) {
	UnregisterAllHandlers()
	t.Cleanup(UnregisterAllHandlers)

	RegisterRelayHandler("smtp", noopHandler{})
	RegisterRelayHandler("resend", noopHandler{})
	assert.Equal(t, []string{"resend", "smtp"}, Handlers())
	assert.NotNil(t, GetHandler("smtp"))
	assert.Nil(t, GetHandler("mailgun"))

	assert.Panics(t, func() { RegisterRelayHandler("smtp", noopHandler{}) })
	assert.Panics(t, func() { RegisterRelayHandler("nil", nil) })
}

func TestHtmlToText(t *testing.T) {
	assert.Equal(t, "Hello world", HtmlToText("<div>Hello\n\t <i>world</i></div>"))
}

func TestToMimeBuilder(t *testing.T) {
	_, id, err := ToMimeBuilder(&types.RelayMail{From: "Alice <alice@kasmail.com>", To: "bob@gmail.com", Subject: "s", Body: "b"}, "kasmail.com")
	require.NoError(t, err)
	assert.Contains(t, id, "@kasmail.com>")

	_, _, err = ToMimeBuilder(&types.RelayMail{From: "alice@kasmail.com", To: "bob@gmail.com"}, "")
	assert.ErrorIs(t, err, types.ErrBadRequest)
}
