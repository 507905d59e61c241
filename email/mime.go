package email

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/kasmail/kasmail-server/types"
	"github.com/microcosm-cc/bluemonday"
)

var maxBigInt = big.NewInt(math.MaxInt64)

// HtmlToText strips all markup and collapses whitespace
func HtmlToText(html string) string {
	p := bluemonday.StrictPolicy()
	clean := p.Sanitize(html)
	return strings.Join(strings.Fields(clean), " ")
}

// GenerateMessageID generates a string suitable for an RFC 2822
// compliant Message-ID, e.g.:
// <1444789264909237300.3464.1819418242800517193@kasmail.com>
func GenerateMessageID(hostname string) (string, error) {
	if hostname == "" {
		return "", types.ErrBadRequest
	}
	t := time.Now().UnixNano()
	pid := os.Getpid()
	rint, err := rand.Int(rand.Reader, maxBigInt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<%d.%d.%d@%s>", t, pid, rint, hostname), nil
}

// ToMimeBuilder converts a relay mail into an enmime builder. Message bodies are plain text;
// markup a sender pasted in is stripped.
func ToMimeBuilder(msg *types.RelayMail, hostname string) (enmime.MailBuilder, string, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return enmime.MailBuilder{}, "", fmt.Errorf("invalid from address: %w", err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return enmime.MailBuilder{}, "", fmt.Errorf("invalid to address: %w", err)
	}
	id, idErr := GenerateMessageID(hostname)
	if idErr != nil {
		return enmime.MailBuilder{}, "", idErr
	}
	text := msg.Body
	if strings.Contains(text, "</") {
		text = HtmlToText(text)
	}
	builder := enmime.Builder().
		From(from.Name, from.Address).
		To(to.Name, to.Address).
		Subject(msg.Subject).
		Text([]byte(text)).
		Date(time.Now()).
		Header("X-Mailer", "KasMail").
		Header("Message-ID", id)
	return builder, id, nil
}
