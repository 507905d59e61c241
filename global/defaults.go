package global

import (
	"strconv"
	"time"
)

const (
	defaultMinimumBalanceSompi   = 100_000_000 // 1 KAS
	defaultDevFeeSompi           = 100_000_000
	defaultMinerRewardSompi      = 100_000_000
	defaultMaxAttachmentSize     = 5 * 1024 * 1024
	defaultConfirmTimeoutSeconds = 120
	defaultDispatchTimeout       = 10 * 60
	defaultEmailDomain           = "kasmail.com"
)

var defaultAllowedTypes = []string{"image/", "text/plain", "application/pdf", "application/zip"}

// ApplyDefaults fills unset values of the loaded configuration
func (c *Config) ApplyDefaults() {
	if c.Dispatch.MinimumBalanceSompi == 0 {
		c.Dispatch.MinimumBalanceSompi = defaultMinimumBalanceSompi
	}
	if c.Dispatch.DevFeeSompi == 0 {
		c.Dispatch.DevFeeSompi = defaultDevFeeSompi
	}
	if c.Dispatch.MinerRewardSompi == 0 {
		c.Dispatch.MinerRewardSompi = defaultMinerRewardSompi
	}
	if c.Dispatch.DefaultOnlyInternal == nil {
		onlyInternal := true
		c.Dispatch.DefaultOnlyInternal = &onlyInternal
	}
	if c.Dispatch.TimeoutSeconds <= 0 {
		c.Dispatch.TimeoutSeconds = defaultDispatchTimeout
	}
	if c.Wallet.ConfirmTimeoutSeconds <= 0 {
		c.Wallet.ConfirmTimeoutSeconds = defaultConfirmTimeoutSeconds
	}
	if c.Storage.MaxAttachmentSize <= 0 {
		c.Storage.MaxAttachmentSize = defaultMaxAttachmentSize
	}
	if len(c.Storage.AllowedTypes) == 0 {
		c.Storage.AllowedTypes = defaultAllowedTypes
	}
	if c.Kasmail.EmailDomain == "" {
		c.Kasmail.EmailDomain = defaultEmailDomain
	}
	if c.Auth.TokenExpiryDays <= 0 {
		c.Auth.TokenExpiryDays = 30
	}
	if c.Miners.ReportEveryMinutes <= 0 {
		c.Miners.ReportEveryMinutes = 5
	}
}

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Wallet.ConfirmTimeoutSeconds) * time.Second
}

func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.TimeoutSeconds) * time.Second
}

// URL of the CouchDB server (scheme://host[:port])
func (c CouchDBConfig) URL() string {
	url := c.Scheme + "://" + c.Host
	if c.Port != 0 {
		url += ":" + strconv.Itoa(c.Port)
	}
	return url
}
