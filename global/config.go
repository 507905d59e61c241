package global

import (
	"github.com/go-redis/redis_rate/v10"
	cfg "github.com/mailio/go-web3-kit/config"
)

// Conf global config
var Conf Config

// Global rate limiter
var RateLimiter *redis_rate.Limiter

type Config struct {
	cfg.YamlConfig `yaml:",inline"`
	CouchDB        CouchDBConfig    `yaml:"couchdb"`
	Kasmail        KasmailConfig    `yaml:"kasmail"`
	Dispatch       DispatchConfig   `yaml:"dispatch"`
	Wallet         WalletConfig     `yaml:"wallet"`
	Ledger         LedgerConfig     `yaml:"ledger"`
	Relay          RelayConfig      `yaml:"relay"`
	Auth           AuthConfig       `yaml:"auth"`
	Miners         MinersConfig     `yaml:"miners"`
	Prometheus     PrometheusConfig `yaml:"prometheus"`
	Redis          RedisConfig      `yaml:"redis"`
	Queue          Queue            `yaml:"queue"`
	Storage        StorageConfig    `yaml:"storage"`
}

type CouchDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type KasmailConfig struct {
	EmailDomain string `yaml:"emailDomain"` // internal domain, e.g. kasmail.com
}

type DispatchConfig struct {
	MinimumBalanceSompi uint64 `yaml:"minimumBalanceSompi"`
	DevFeeSompi         uint64 `yaml:"devFeeSompi"`
	MinerRewardSompi    uint64 `yaml:"minerRewardSompi"`
	PriorityFeeSompi    uint64 `yaml:"priorityFeeSompi"`
	PlatformAddress     string `yaml:"platformAddress"`     // receives the dev fee
	DefaultOnlyInternal *bool  `yaml:"defaultOnlyInternal"` // used when the sender has no profile (default true)
	TimeoutSeconds      int    `yaml:"timeoutSeconds"`      // whole dispatch
}

type WalletConfig struct {
	ConfirmTimeoutSeconds int `yaml:"confirmTimeoutSeconds"` // per transfer
}

type LedgerConfig struct {
	ApiUrl string `yaml:"apiUrl"` // kaspa REST API, e.g. https://api.kaspa.org
}

type RelayConfig struct {
	Provider    string `yaml:"provider"` // resend or smtp
	ApiKey      string `yaml:"apiKey"`
	ApiUrl      string `yaml:"apiUrl"`
	SmtpAddr    string `yaml:"smtpAddr"`
	SmtpUser    string `yaml:"smtpUser"`
	SmtpPass    string `yaml:"smtpPass"`
	DefaultFrom string `yaml:"defaultFrom"` // sender address when the wallet has no username
	CheckMx     bool   `yaml:"checkMx"`
}

type AuthConfig struct {
	TokenSecret     string `yaml:"tokenSecret"`
	TokenExpiryDays int    `yaml:"tokenExpiryDays"`
}

type MinersConfig struct {
	ReportEveryMinutes int `yaml:"reportEveryMinutes"`
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
}

type Queue struct {
	Concurrency int `yaml:"concurrency"`
}

type StorageConfig struct {
	Type              string   `yaml:"type"`
	Key               string   `yaml:"key"`
	Secret            string   `yaml:"secret"`
	Bucket            string   `yaml:"bucket"`
	Region            string   `yaml:"region"`
	MaxAttachmentSize int64    `yaml:"maxAttachmentSize"`
	AllowedTypes      []string `yaml:"allowedTypes"`
}
