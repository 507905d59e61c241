package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = "kaspa:" + strings.Repeat("qp", 30) + "q"

func TestInternalTargetRequiresKaspaAddress(t *testing.T) {
	target, err := NewInternalTarget(testAddress)
	require.NoError(t, err)
	assert.True(t, target.IsInternal())
	assert.Equal(t, testAddress, target.StorageAddress())

	_, err = NewInternalTarget("kaspa:nope")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewInternalTarget("alice")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestExternalTarget(t *testing.T) {
	target, err := NewExternalTarget("bob@gmail.com", "kasmail.com")
	require.NoError(t, err)
	assert.True(t, target.IsExternal())
	assert.Equal(t, "external:bob@gmail.com", target.StorageAddress())

	_, err = NewExternalTarget("bob@@gmail.com", "kasmail.com")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewExternalTarget("bob.gmail.com", "kasmail.com")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewExternalTarget("alice@KasMail.com", "kasmail.com")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewExternalTarget("alice@kasmail.com.", "kasmail.com")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	target, err = NewExternalTarget("bob@gmail.com.", "kasmail.com")
	require.NoError(t, err)
	assert.Equal(t, "bob@gmail.com", target.Email)
}

func TestParseStorageAddress(t *testing.T) {
	ext := ParseStorageAddress("external:bob@gmail.com")
	assert.Equal(t, RecipientExternal, ext.Kind)
	assert.Equal(t, "bob@gmail.com", ext.Email)

	in := ParseStorageAddress(testAddress)
	assert.Equal(t, RecipientInternal, in.Kind)
	assert.Equal(t, testAddress, in.Address)
}

func TestIsKaspaAddress(t *testing.T) {
	assert.True(t, IsKaspaAddress(testAddress))
	assert.True(t, IsKaspaAddress("kaspa:"+strings.Repeat("q", 63)))
	assert.False(t, IsKaspaAddress("kaspa:"+strings.Repeat("q", 64)))
	assert.False(t, IsKaspaAddress("kaspa:"+strings.Repeat("b", 61))) // b is not bech32
	assert.False(t, IsKaspaAddress("kaspatest:"+strings.Repeat("q", 61)))
	assert.Equal(t, 1.5, SompiToKas(150_000_000))
}
