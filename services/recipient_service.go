package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
	"golang.org/x/net/idna"
)

// Directory maps usernames to wallet addresses
type Directory interface {
	LookupUsername(ctx context.Context, name string) (string, error)
}

// RecipientService turns the raw "to" field into a RecipientTarget according to the
// sender's preferences
type RecipientService struct {
	directory      Directory
	internalDomain string
}

func NewRecipientService(directory Directory, internalDomain string) *RecipientService {
	return &RecipientService{directory: directory, internalDomain: strings.TrimSuffix(strings.ToLower(internalDomain), ".")}
}

func (rs *RecipientService) Resolve(ctx context.Context, raw string, prefs types.SendPreferences) (types.RecipientTarget, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return types.RecipientTarget{}, fmt.Errorf("%w: empty recipient", types.ErrPolicyViolation)
	}
	if prefs.OnlyInternal {
		return rs.resolveInternal(ctx, input)
	}
	return rs.resolveExternal(input)
}

func (rs *RecipientService) resolveInternal(ctx context.Context, input string) (types.RecipientTarget, error) {
	if strings.Contains(input, "@") {
		suffix := "@" + rs.internalDomain
		if len(input) <= len(suffix) || !strings.EqualFold(input[len(input)-len(suffix):], suffix) {
			return types.RecipientTarget{}, fmt.Errorf("%w: %q is not a %s address", types.ErrPolicyViolation, input, rs.internalDomain)
		}
		username := input[:len(input)-len(suffix)]
		if strings.Contains(username, "@") {
			return types.RecipientTarget{}, fmt.Errorf("%w: %q", types.ErrPolicyViolation, input)
		}
		return rs.lookup(ctx, username)
	}
	if strings.HasPrefix(input, types.KaspaAddressPrefix) {
		target, err := types.NewInternalTarget(input)
		if err != nil {
			return types.RecipientTarget{}, fmt.Errorf("%w: %v", types.ErrPolicyViolation, err)
		}
		return target, nil
	}
	return rs.lookup(ctx, input)
}

func (rs *RecipientService) lookup(ctx context.Context, username string) (types.RecipientTarget, error) {
	address, err := rs.directory.LookupUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.RecipientTarget{}, fmt.Errorf("%w: %q", types.ErrRecipientNotFound, username)
		}
		level.Error(global.Logger).Log("msg", "username lookup failed", "username", username, "err", err)
		return types.RecipientTarget{}, err
	}
	target, tErr := types.NewInternalTarget(address)
	if tErr != nil {
		level.Error(global.Logger).Log("msg", "directory returned malformed address", "username", username, "address", address)
		return types.RecipientTarget{}, tErr
	}
	return target, nil
}

func (rs *RecipientService) resolveExternal(input string) (types.RecipientTarget, error) {
	if strings.Count(input, "@") != 1 {
		return types.RecipientTarget{}, fmt.Errorf("%w: %q is not an email address", types.ErrPolicyViolation, input)
	}
	local, domain, _ := strings.Cut(input, "@")
	asciiDomain, err := idna.Lookup.ToASCII(domain)
	// the fully qualified form (trailing root dot) names the same domain
	asciiDomain = strings.TrimSuffix(asciiDomain, ".")
	if err != nil || local == "" || asciiDomain == "" || strings.HasSuffix(asciiDomain, ".") {
		return types.RecipientTarget{}, fmt.Errorf("%w: invalid domain in %q", types.ErrPolicyViolation, input)
	}
	target, tErr := types.NewExternalTarget(local+"@"+asciiDomain, rs.internalDomain)
	if tErr != nil {
		return types.RecipientTarget{}, fmt.Errorf("%w: %v", types.ErrPolicyViolation, tErr)
	}
	return target, nil
}
