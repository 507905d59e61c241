package services

import (
	"context"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

// BalanceOracle reports the current balance of a wallet in sompi
type BalanceOracle interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// EligibilityService confirms the sender holds the minimum balance.
// It never assumes eligibility when the oracle cannot answer.
type EligibilityService struct {
	oracle         BalanceOracle
	minimumBalance uint64
}

func NewEligibilityService(oracle BalanceOracle, minimumBalanceSompi uint64) *EligibilityService {
	return &EligibilityService{oracle: oracle, minimumBalance: minimumBalanceSompi}
}

func (es *EligibilityService) MinimumBalance() uint64 {
	return es.minimumBalance
}

// Check fetches the balance fresh and compares it against the threshold.
// An error is returned only for a malformed sender address.
func (es *EligibilityService) Check(ctx context.Context, address string) (types.Eligibility, error) {
	sender := types.SenderIdentity{Address: address}
	if !types.IsKaspaAddress(address) {
		return types.Eligibility{Reason: "invalid sender address", Sender: sender}, fmt.Errorf("%w: sender %q", types.ErrInvalidAddress, address)
	}
	balance, err := es.oracle.GetBalance(ctx, address)
	if err != nil {
		level.Warn(global.Logger).Log("msg", "balance oracle unavailable, failing closed", "address", address, "err", err)
		return types.Eligibility{Eligible: false, Reason: "balance unavailable", Sender: sender}, nil
	}
	sender.Balance = balance
	if balance < es.minimumBalance {
		return types.Eligibility{
			Eligible: false,
			Reason:   fmt.Sprintf("balance %.8f KAS below minimum %.8f KAS", types.SompiToKas(balance), types.SompiToKas(es.minimumBalance)),
			Sender:   sender,
		}, nil
	}
	return types.Eligibility{Eligible: true, Sender: sender}, nil
}
