package smtp

import (
	"context"
	"fmt"
	netsmtp "net/smtp"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/jhillyerd/enmime"
	"github.com/kasmail/kasmail-server/email"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

// SmtpHandler relays mail through an SMTP submission server
type SmtpHandler struct {
	sender   enmime.Sender
	hostname string
}

// NewSmtpHandler dials addr (host:port) for every message. Credentials are optional.
func NewSmtpHandler(addr, username, password, hostname string) *SmtpHandler {
	var auth netsmtp.Auth
	if username != "" {
		host, _, _ := strings.Cut(addr, ":")
		auth = netsmtp.PlainAuth("", username, password, host)
	}
	return NewSmtpHandlerWithSender(enmime.NewSMTP(addr, auth), hostname)
}

func NewSmtpHandlerWithSender(sender enmime.Sender, hostname string) *SmtpHandler {
	return &SmtpHandler{sender: sender, hostname: hostname}
}

var _ email.RelayHandler = (*SmtpHandler)(nil)

func (h *SmtpHandler) Send(ctx context.Context, mail *types.RelayMail) (string, error) {
	builder, id, err := email.ToMimeBuilder(mail, h.hostname)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if sErr := builder.Send(h.sender); sErr != nil {
		level.Error(global.Logger).Log("msg", "smtp relay failed", "to", mail.To, "err", sErr)
		return "", fmt.Errorf("smtp: %w", sErr)
	}
	return id, nil
}
