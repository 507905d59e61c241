package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/email"
	"github.com/kasmail/kasmail-server/email/resend"
	"github.com/kasmail/kasmail-server/email/smtp"
	"github.com/kasmail/kasmail-server/email/validator"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/services"
	"github.com/kasmail/kasmail-server/types"
)

// Register the relay handler selected in the config (resend or smtp)
func RegisterRelayHandlers(conf *global.Config) {
	switch conf.Relay.Provider {
	case "resend":
		email.RegisterRelayHandler(conf.Relay.Provider, resend.NewResendHandler(conf.Relay.ApiKey, conf.Relay.ApiUrl))
	case "smtp":
		email.RegisterRelayHandler(conf.Relay.Provider, smtp.NewSmtpHandler(conf.Relay.SmtpAddr, conf.Relay.SmtpUser, conf.Relay.SmtpPass, conf.Kasmail.EmailDomain))
	default:
		level.Warn(global.Logger).Log("msg", "no relay provider configured, external recipients will fail", "provider", conf.Relay.Provider)
	}
}

// Relay validators run before every external delivery
func ConfigRelayValidators(conf *global.Config) []validator.RelayValidator {
	validators := []validator.RelayValidator{validator.NewFieldValidator()}
	if conf.Relay.CheckMx {
		validators = append(validators, validator.NewMxValidator(nil))
	}
	return validators
}

// Configure DB Repositories and create DB Selector
func ConfigDBSelector() *repository.CouchDBSelector {
	c := global.Conf.CouchDB
	dbSelector, err := repository.ConfigureCouchDB(c.URL(), c.Username, c.Password, repository.Messages, repository.Profiles, repository.Miners)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to create repositories", "err", err)
		panic(err)
	}
	return dbSelector
}

func ConfigDBIndexing(dbSelector *repository.CouchDBSelector) {
	profileRepo, pErr := dbSelector.ChooseDB(repository.Profiles)
	if pErr != nil {
		panic(pErr)
	}
	if err := repository.CreateProfileUsernameIndex(profileRepo); err != nil {
		panic(err)
	}
	minerRepo, mErr := dbSelector.ChooseDB(repository.Miners)
	if mErr != nil {
		panic(mErr)
	}
	if err := repository.CreateMinerActiveIndex(minerRepo); err != nil {
		panic(err)
	}
}

func ConfigS3Storage(conf *global.Config, env *types.Environment) {
	// configure S3 storage
	credentials := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.Storage.Key, conf.Storage.Secret, ""))
	awsConf, err := config.LoadDefaultConfig(context.TODO(), config.WithCredentialsProvider(credentials), config.WithRegion(conf.Storage.Region))
	if err != nil {
		panic(err)
	}
	s3Client := s3.NewFromConfig(awsConf)
	env.AddS3Uploader(manager.NewUploader(s3Client))
	env.S3Client = s3Client
}

// schedule the miner pool gauge (and warn early about an empty pool)
func ConfigMinerPoolReport(conf *global.Config, minerService *services.MinerService, env *types.Environment) {
	env.Cron.AddFunc(fmt.Sprintf("@every %dm", conf.Miners.ReportEveryMinutes), minerService.ReportPoolSize)
	env.Cron.Start()
	go minerService.ReportPoolSize() // run once on startup
}

// ConfigDispatchServices wires the outbound pipeline
func ConfigDispatchServices(conf *global.Config, dbSelector *repository.CouchDBSelector, env *types.Environment) (*services.DispatchService, *services.WalletBridgeService) {
	profileService := services.NewUserProfileService(dbSelector, types.SendPreferences{OnlyInternal: *conf.Dispatch.DefaultOnlyInternal})
	minerService := services.NewMinerService(dbSelector)
	ConfigMinerPoolReport(conf, minerService, env)

	kaspaService := services.NewKaspaBalanceService(conf.Ledger.ApiUrl)
	eligibilityService := services.NewEligibilityService(kaspaService, conf.Dispatch.MinimumBalanceSompi)
	recipientService := services.NewRecipientService(profileService, conf.Kasmail.EmailDomain)

	walletBridge := services.NewWalletBridgeService(env.RedisClient, kaspaService, conf.ConfirmTimeout())
	paymentService := services.NewPaymentService(walletBridge, services.NewMinerSelector(minerService, nil), services.PaymentConfig{
		PlatformAddress:  conf.Dispatch.PlatformAddress,
		DevFeeSompi:      conf.Dispatch.DevFeeSompi,
		MinerRewardSompi: conf.Dispatch.MinerRewardSompi,
		PriorityFeeSompi: conf.Dispatch.PriorityFeeSompi,
		ConfirmTimeout:   conf.ConfirmTimeout(),
	})

	s3Service := services.NewS3Service(env.S3Uploader, env.S3Client, conf.Storage.Bucket, types.AttachmentConstraints{
		MaxSize:      conf.Storage.MaxAttachmentSize,
		AllowedTypes: conf.Storage.AllowedTypes,
	})

	deliveryService := services.NewDeliveryService(email.GetHandler(conf.Relay.Provider), ConfigRelayValidators(conf)...)
	messageService := services.NewMessageService(dbSelector)

	dispatchService := services.NewDispatchService(eligibilityService, profileService, recipientService, paymentService,
		s3Service, deliveryService, messageService, services.DispatchConfig{
			EmailDomain: conf.Kasmail.EmailDomain,
			DefaultFrom: conf.Relay.DefaultFrom,
			Timeout:     conf.DispatchTimeout(),
		})
	return dispatchService, walletBridge
}
