package validator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

// MXResolver is satisfied by *net.Resolver
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// MxValidator rejects recipients whose domain publishes no mail exchanger.
// Answers are cached per domain.
type MxValidator struct {
	resolver MXResolver
	cache    *lru.LRU[string, bool]
}

func NewMxValidator(resolver MXResolver) *MxValidator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &MxValidator{
		resolver: resolver,
		cache:    lru.NewLRU[string, bool](5000, nil, 30*time.Minute),
	}
}

func (v *MxValidator) Validate(ctx context.Context, mail *types.RelayMail) error {
	_, domain, ok := strings.Cut(mail.To, "@")
	if !ok || domain == "" {
		return fmt.Errorf("%w: %q", types.ErrInvalidEmail, mail.To)
	}
	domain = strings.ToLower(strings.TrimSuffix(domain, ">"))
	if hasMx, cached := v.cache.Get(domain); cached {
		if !hasMx {
			return fmt.Errorf("%w: domain %s does not accept mail", types.ErrInvalidEmail, domain)
		}
		return nil
	}
	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			v.cache.Add(domain, false)
			return fmt.Errorf("%w: domain %s does not exist", types.ErrInvalidEmail, domain)
		}
		// resolver trouble is not the sender's fault, let the relay decide
		level.Warn(global.Logger).Log("msg", "mx lookup failed", "domain", domain, "err", err)
		return nil
	}
	// RFC 7505 null MX
	hasMx := len(records) > 0 && !(len(records) == 1 && records[0].Host == ".")
	v.cache.Add(domain, hasMx)
	if !hasMx {
		return fmt.Errorf("%w: domain %s does not accept mail", types.ErrInvalidEmail, domain)
	}
	return nil
}
