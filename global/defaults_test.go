package global

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	assert.Equal(t, uint64(100_000_000), c.Dispatch.MinimumBalanceSompi)
	assert.Equal(t, uint64(100_000_000), c.Dispatch.DevFeeSompi)
	assert.Equal(t, uint64(100_000_000), c.Dispatch.MinerRewardSompi)
	assert.True(t, *c.Dispatch.DefaultOnlyInternal)
	assert.Equal(t, int64(5*1024*1024), c.Storage.MaxAttachmentSize)
	assert.Equal(t, "kasmail.com", c.Kasmail.EmailDomain)
	assert.Equal(t, 2*time.Minute, c.ConfirmTimeout())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	onlyInternal := false
	c := Config{
		Dispatch: DispatchConfig{MinimumBalanceSompi: 5, DefaultOnlyInternal: &onlyInternal},
		Kasmail:  KasmailConfig{EmailDomain: "kasmail.org"},
	}
	c.ApplyDefaults()

	assert.Equal(t, uint64(5), c.Dispatch.MinimumBalanceSompi)
	assert.False(t, *c.Dispatch.DefaultOnlyInternal)
	assert.Equal(t, "kasmail.org", c.Kasmail.EmailDomain)
}

func TestCouchDBURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5984", CouchDBConfig{Scheme: "http", Host: "localhost", Port: 5984}.URL())
	assert.Equal(t, "https://couch.example.com", CouchDBConfig{Scheme: "https", Host: "couch.example.com"}.URL())
}
