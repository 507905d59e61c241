package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/metrics"
	"github.com/kasmail/kasmail-server/types"
)

// WalletSigner asks the sender's wallet to sign and broadcast a transfer and returns the tx id
type WalletSigner interface {
	Transfer(ctx context.Context, request types.TransferRequest) (string, error)
}

// MinerPicker is satisfied by *MinerSelector
type MinerPicker interface {
	Select(ctx context.Context) (types.MinerSelection, error)
}

type PaymentConfig struct {
	PlatformAddress  string
	DevFeeSompi      uint64
	MinerRewardSompi uint64
	PriorityFeeSompi uint64
	ConfirmTimeout   time.Duration // per transfer
}

// PaymentService runs the two anti-bot fee transfers of an internal message.
// The dispatch is settled when at least one of them produced a transaction id.
type PaymentService struct {
	signer   WalletSigner
	selector MinerPicker
	conf     PaymentConfig
}

func NewPaymentService(signer WalletSigner, selector MinerPicker, conf PaymentConfig) *PaymentService {
	return &PaymentService{signer: signer, selector: selector, conf: conf}
}

// Settle transfers the dev fee and then the miner reward, sequentially. A failed, cancelled or
// timed out transfer leaves its tx id empty and does not stop the other one.
// Returns types.ErrPaymentFailed (with the outcome in state PaymentFailed) when neither succeeded.
func (ps *PaymentService) Settle(ctx context.Context, sender types.SenderIdentity) (types.FeeTransactionOutcome, error) {
	dispatchID := DispatchIDFrom(ctx)
	outcome := types.FeeTransactionOutcome{State: types.PaymentNotStarted}

	// step A: dev fee
	outcome.State = types.PaymentDevFeeAttempted
	if ps.conf.PlatformAddress == "" {
		level.Error(global.Logger).Log("msg", "platform address not configured, skipping dev fee", "dispatch", dispatchID)
		metrics.FeeTransfersMetricsTotal.WithLabelValues(types.FeeKindDev, "skipped").Inc()
	} else if txID, ok := ps.transfer(ctx, dispatchID, types.FeeKindDev, sender.Address, ps.conf.PlatformAddress, ps.conf.DevFeeSompi); ok {
		outcome.DevFeeTxID = &txID
	}

	// step B: miner reward
	outcome.State = types.PaymentMinerFeeAttempted
	selection, sErr := ps.selector.Select(ctx)
	switch {
	case sErr != nil:
		level.Error(global.Logger).Log("msg", "miner pool unavailable, skipping miner reward", "dispatch", dispatchID, "err", sErr)
		metrics.FeeTransfersMetricsTotal.WithLabelValues(types.FeeKindMiner, "skipped").Inc()
	case !selection.Available():
		level.Warn(global.Logger).Log("msg", "no active miner, skipping miner reward", "dispatch", dispatchID)
		metrics.FeeTransfersMetricsTotal.WithLabelValues(types.FeeKindMiner, "skipped").Inc()
	default:
		minerAddress := selection.Miner.Address
		if txID, ok := ps.transfer(ctx, dispatchID, types.FeeKindMiner, sender.Address, minerAddress, ps.conf.MinerRewardSompi); ok {
			outcome.MinerFeeTxID = &txID
			outcome.MinerAddress = &minerAddress
		}
	}

	if !outcome.HasProof() {
		outcome.State = types.PaymentFailed
		level.Warn(global.Logger).Log("msg", "no fee transaction succeeded", "dispatch", dispatchID, "sender", sender.Address)
		return outcome, fmt.Errorf("%w: dispatch %s", types.ErrPaymentFailed, dispatchID)
	}
	outcome.State = types.PaymentSettled
	return outcome, nil
}

// transfer runs a single fee transfer bounded by the confirm timeout
func (ps *PaymentService) transfer(ctx context.Context, dispatchID, kind, from, to string, amount uint64) (string, bool) {
	tctx := ctx
	if ps.conf.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, ps.conf.ConfirmTimeout)
		defer cancel()
	}
	request := types.TransferRequest{
		DispatchID:  dispatchID,
		Kind:        kind,
		FromAddress: from,
		ToAddress:   to,
		AmountSompi: amount,
		FeeOptions:  types.FeeOptions{PriorityFeeSompi: ps.conf.PriorityFeeSompi},
	}
	txID, err := ps.signer.Transfer(tctx, request)
	if err != nil {
		result := "failed"
		switch {
		case errors.Is(err, types.ErrTransferCancelled):
			result = "cancelled"
		case errors.Is(err, types.ErrTransferTimeout), errors.Is(err, context.DeadlineExceeded):
			result = "timeout"
		}
		metrics.FeeTransfersMetricsTotal.WithLabelValues(kind, result).Inc()
		level.Warn(global.Logger).Log("msg", "fee transfer not completed", "dispatch", dispatchID, "kind", kind, "from", from, "to", to, "result", result, "err", err)
		return "", false
	}
	if txID == "" {
		metrics.FeeTransfersMetricsTotal.WithLabelValues(kind, "failed").Inc()
		level.Warn(global.Logger).Log("msg", "wallet returned empty transaction id", "dispatch", dispatchID, "kind", kind)
		return "", false
	}
	metrics.FeeTransfersMetricsTotal.WithLabelValues(kind, "confirmed").Inc()
	level.Info(global.Logger).Log("msg", "fee transfer confirmed", "dispatch", dispatchID, "kind", kind, "txId", txID, "amount", types.SompiToKas(amount))
	return txID, true
}
