package types

import (
	"fmt"
	"strings"
)

// ExternalMarker prefixes stored addresses of recipients reached through the relay
const ExternalMarker = "external:"

type RecipientKind int

const (
	RecipientInternal RecipientKind = iota + 1
	RecipientExternal
)

func (k RecipientKind) String() string {
	switch k {
	case RecipientInternal:
		return "internal"
	case RecipientExternal:
		return "external"
	}
	return "unknown"
}

// RecipientTarget is either an internal kaspa address or an external email address.
// Use NewInternalTarget / NewExternalTarget to construct one.
type RecipientTarget struct {
	Kind    RecipientKind `json:"kind"`
	Address string        `json:"address,omitempty"` // set for RecipientInternal
	Email   string        `json:"email,omitempty"`   // set for RecipientExternal
}

// NewInternalTarget validates the kaspa address shape
func NewInternalTarget(address string) (RecipientTarget, error) {
	if !IsKaspaAddress(address) {
		return RecipientTarget{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return RecipientTarget{Kind: RecipientInternal, Address: address}, nil
}

// NewExternalTarget requires exactly one @ and a domain different from internalDomain
func NewExternalTarget(email, internalDomain string) (RecipientTarget, error) {
	if strings.Count(email, "@") != 1 {
		return RecipientTarget{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	local, domain, _ := strings.Cut(email, "@")
	domain = strings.TrimSuffix(domain, ".")
	if local == "" || domain == "" || strings.HasSuffix(domain, ".") {
		return RecipientTarget{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if internalDomain != "" && strings.EqualFold(domain, strings.TrimSuffix(internalDomain, ".")) {
		return RecipientTarget{}, fmt.Errorf("%w: %q is an internal address", ErrInvalidEmail, email)
	}
	return RecipientTarget{Kind: RecipientExternal, Email: local + "@" + domain}, nil
}

func (r RecipientTarget) IsInternal() bool {
	return r.Kind == RecipientInternal
}

func (r RecipientTarget) IsExternal() bool {
	return r.Kind == RecipientExternal
}

// StorageAddress encodes the target into the single address column used by the message store
func (r RecipientTarget) StorageAddress() string {
	if r.Kind == RecipientExternal {
		return ExternalMarker + r.Email
	}
	return r.Address
}

func (r RecipientTarget) String() string {
	if r.Kind == RecipientExternal {
		return r.Email
	}
	return r.Address
}

// ParseStorageAddress reverses StorageAddress. Values read back from the store are trusted.
func ParseStorageAddress(stored string) RecipientTarget {
	if email, ok := strings.CutPrefix(stored, ExternalMarker); ok {
		return RecipientTarget{Kind: RecipientExternal, Email: email}
	}
	return RecipientTarget{Kind: RecipientInternal, Address: stored}
}
