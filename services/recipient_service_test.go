package services

import (
	"context"
	"testing"

	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecipientService() *RecipientService {
	return NewRecipientService(&fakeDirectory{users: map[string]string{"alice": aliceAddress, "bob": bobAddress}}, "kasmail.com")
}

var internalOnly = types.SendPreferences{OnlyInternal: true}
var allowExternal = types.SendPreferences{OnlyInternal: false}

func TestResolveInternalDomainAddress(t *testing.T) {
	rs := newTestRecipientService()
	target, err := rs.Resolve(context.Background(), "alice@kasmail.com", internalOnly)
	require.NoError(t, err)
	assert.True(t, target.IsInternal())
	assert.Equal(t, aliceAddress, target.Address)

	target, err = rs.Resolve(context.Background(), "  bob@KasMail.COM ", internalOnly)
	require.NoError(t, err)
	assert.Equal(t, bobAddress, target.Address)
}

func TestResolveUsernameAndAddress(t *testing.T) {
	rs := newTestRecipientService()
	target, err := rs.Resolve(context.Background(), "alice", internalOnly)
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, target.Address)

	target, err = rs.Resolve(context.Background(), bobAddress, internalOnly)
	require.NoError(t, err)
	assert.Equal(t, bobAddress, target.Address)
}

func TestResolveInternalPolicyViolations(t *testing.T) {
	rs := newTestRecipientService()
	for _, input := range []string{"bob@gmail.com", "", "   ", "kaspa:short", "a@b@kasmail.com", "@kasmail.com"} {
		_, err := rs.Resolve(context.Background(), input, internalOnly)
		assert.ErrorIs(t, err, types.ErrPolicyViolation, input)
	}
}

func TestResolveUnknownUsername(t *testing.T) {
	rs := newTestRecipientService()
	_, err := rs.Resolve(context.Background(), "carol@kasmail.com", internalOnly)
	assert.ErrorIs(t, err, types.ErrRecipientNotFound)

	// lookup is case sensitive
	_, err = rs.Resolve(context.Background(), "Alice", internalOnly)
	assert.ErrorIs(t, err, types.ErrRecipientNotFound)
}

func TestResolveDirectoryError(t *testing.T) {
	rs := NewRecipientService(&fakeDirectory{err: errBoom}, "kasmail.com")
	_, err := rs.Resolve(context.Background(), "alice", internalOnly)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, types.ErrRecipientNotFound)
}

func TestResolveExternal(t *testing.T) {
	rs := newTestRecipientService()
	target, err := rs.Resolve(context.Background(), "bob@gmail.com", allowExternal)
	require.NoError(t, err)
	assert.True(t, target.IsExternal())
	assert.Equal(t, "bob@gmail.com", target.Email)
	assert.Equal(t, "external:bob@gmail.com", target.StorageAddress())

	target, err = rs.Resolve(context.Background(), "hans@bücher.de", allowExternal)
	require.NoError(t, err)
	assert.Equal(t, "hans@xn--bcher-kva.de", target.Email)
}

func TestResolveExternalPolicyViolations(t *testing.T) {
	rs := newTestRecipientService()
	for _, input := range []string{"alice@kasmail.com", "alice", aliceAddress, "a@b@c.com", "@gmail.com",
		"alice@kasmail.com.", "alice@KASMAIL.COM.", "alice@kasmail.com.."} {
		_, err := rs.Resolve(context.Background(), input, allowExternal)
		assert.ErrorIs(t, err, types.ErrPolicyViolation, input)
	}
}

func TestResolveExternalFullyQualifiedDomain(t *testing.T) {
	rs := newTestRecipientService()
	target, err := rs.Resolve(context.Background(), "bob@gmail.com.", allowExternal)
	require.NoError(t, err)
	assert.Equal(t, "bob@gmail.com", target.Email)
}
