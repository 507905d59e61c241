package services

import (
	"context"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/email"
	"github.com/kasmail/kasmail-server/email/validator"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/metrics"
	"github.com/kasmail/kasmail-server/types"
)

const defaultRelaySubject = "(no subject)"

// DeliveryService hands external messages to the configured relay
type DeliveryService struct {
	handler    email.RelayHandler
	validators []validator.RelayValidator
}

// NewDeliveryService with a nil handler fails every delivery (no relay configured)
func NewDeliveryService(handler email.RelayHandler, validators ...validator.RelayValidator) *DeliveryService {
	return &DeliveryService{handler: handler, validators: validators}
}

// Deliver validates and submits the message. Any failure is types.ErrRelayFailed.
func (ds *DeliveryService) Deliver(ctx context.Context, mail types.RelayMail) (string, error) {
	if ds.handler == nil {
		return "", fmt.Errorf("%w: no relay configured", types.ErrRelayFailed)
	}
	if mail.Subject == "" {
		mail.Subject = defaultRelaySubject
	}
	for _, v := range ds.validators {
		if err := v.Validate(ctx, &mail); err != nil {
			level.Warn(global.Logger).Log("msg", "outbound message rejected", "dispatch", DispatchIDFrom(ctx), "to", mail.To, "err", err)
			return "", fmt.Errorf("%w: %s", types.ErrRelayFailed, err.Error())
		}
	}
	relayID, err := ds.handler.Send(ctx, &mail)
	if err != nil {
		level.Error(global.Logger).Log("msg", "relay delivery failed", "dispatch", DispatchIDFrom(ctx), "to", mail.To, "err", err)
		return "", fmt.Errorf("%w: %s", types.ErrRelayFailed, err.Error())
	}
	metrics.RelayMessagesSentMetricsCount.Inc()
	return relayID, nil
}
