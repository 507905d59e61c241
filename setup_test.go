package main

import (
	"testing"

	"github.com/kasmail/kasmail-server/email"
	"github.com/kasmail/kasmail-server/global"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRelayHandlers(t *testing.T) {
	t.Cleanup(email.UnregisterAllHandlers)

	conf := &global.Config{}
	conf.Relay.Provider = "resend"
	conf.Relay.ApiKey = "re_test"
	RegisterRelayHandlers(conf)
	assert.NotNil(t, email.GetHandler("resend"))

	email.UnregisterAllHandlers()
	conf.Relay.Provider = "smtp"
	conf.Relay.SmtpAddr = "localhost:2525"
	RegisterRelayHandlers(conf)
	assert.NotNil(t, email.GetHandler("smtp"))

	email.UnregisterAllHandlers()
	conf.Relay.Provider = ""
	RegisterRelayHandlers(conf)
	assert.Empty(t, email.Handlers())
}

func TestConfigRelayValidators(t *testing.T) {
	conf := &global.Config{}
	assert.Len(t, ConfigRelayValidators(conf), 1)
	conf.Relay.CheckMx = true
	assert.Len(t, ConfigRelayValidators(conf), 2)
}
