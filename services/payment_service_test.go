package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaymentConfig = PaymentConfig{
	PlatformAddress:  platformAddress,
	DevFeeSompi:      types.SompiPerKas,
	MinerRewardSompi: types.SompiPerKas,
	ConfirmTimeout:   time.Second,
}

func oneMinerSelector() *MinerSelector {
	return NewMinerSelector(&fakeMinerPool{miners: []*types.MinerAddress{{Address: minerOne, Rank: 1, IsActive: true}}}, rand.New(rand.NewSource(7)))
}

func TestSettlementTruthTable(t *testing.T) {
	tests := []struct {
		name    string
		devOK   bool
		minerOK bool
		state   types.PaymentState
		settled bool
	}{
		{"both succeed", true, true, types.PaymentSettled, true},
		{"miner fails", true, false, types.PaymentSettled, true},
		{"dev fails", false, true, types.PaymentSettled, true},
		{"both fail", false, false, types.PaymentFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := &fakeSigner{
				txIDs: map[string]string{types.FeeKindDev: "dev-tx", types.FeeKindMiner: "miner-tx"},
				fail:  map[string]error{},
			}
			if !tt.devOK {
				signer.fail[types.FeeKindDev] = types.ErrTransferCancelled
			}
			if !tt.minerOK {
				signer.fail[types.FeeKindMiner] = types.ErrTransferTimeout
			}
			ps := NewPaymentService(signer, oneMinerSelector(), testPaymentConfig)

			outcome, err := ps.Settle(context.Background(), types.SenderIdentity{Address: aliceAddress})
			assert.Equal(t, tt.state, outcome.State)
			if tt.settled {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, types.ErrPaymentFailed)
			}
			assert.Equal(t, tt.devOK, outcome.DevFeeTxID != nil)
			assert.Equal(t, tt.minerOK, outcome.MinerFeeTxID != nil)
			assert.Equal(t, tt.minerOK, outcome.MinerAddress != nil)
			// both transfers are always attempted, dev fee first
			require.Len(t, signer.requests, 2)
			assert.Equal(t, types.FeeKindDev, signer.requests[0].Kind)
			assert.Equal(t, types.FeeKindMiner, signer.requests[1].Kind)
		})
	}
}

func TestSettleTransferRequests(t *testing.T) {
	signer := &fakeSigner{txIDs: map[string]string{types.FeeKindDev: "dev-tx", types.FeeKindMiner: "miner-tx"}}
	ps := NewPaymentService(signer, oneMinerSelector(), testPaymentConfig)

	ctx := WithDispatchID(context.Background(), "dispatch-1")
	outcome, err := ps.Settle(ctx, types.SenderIdentity{Address: aliceAddress})
	require.NoError(t, err)
	assert.Equal(t, "dev-tx", *outcome.DevFeeTxID)
	assert.Equal(t, "miner-tx", *outcome.MinerFeeTxID)
	assert.Equal(t, minerOne, *outcome.MinerAddress)

	dev, miner := signer.requests[0], signer.requests[1]
	assert.Equal(t, aliceAddress, dev.FromAddress)
	assert.Equal(t, platformAddress, dev.ToAddress)
	assert.Equal(t, types.SompiPerKas, dev.AmountSompi)
	assert.Equal(t, "dispatch-1", dev.DispatchID)
	assert.Equal(t, minerOne, miner.ToAddress)
}

func TestSettleEmptyPoolSkipsMiner(t *testing.T) {
	signer := &fakeSigner{txIDs: map[string]string{types.FeeKindDev: "dev-tx"}}
	ps := NewPaymentService(signer, NewMinerSelector(&fakeMinerPool{}, nil), testPaymentConfig)

	outcome, err := ps.Settle(context.Background(), types.SenderIdentity{Address: aliceAddress})
	require.NoError(t, err)
	assert.Equal(t, types.PaymentSettled, outcome.State)
	assert.Nil(t, outcome.MinerFeeTxID)
	assert.Nil(t, outcome.MinerAddress)
	assert.Len(t, signer.requests, 1)
}

func TestSettlePoolErrorSkipsMiner(t *testing.T) {
	signer := &fakeSigner{fail: map[string]error{types.FeeKindDev: errBoom}}
	ps := NewPaymentService(signer, NewMinerSelector(&fakeMinerPool{err: errBoom}, nil), testPaymentConfig)

	outcome, err := ps.Settle(context.Background(), types.SenderIdentity{Address: aliceAddress})
	assert.ErrorIs(t, err, types.ErrPaymentFailed)
	assert.Equal(t, types.PaymentFailed, outcome.State)
	assert.Len(t, signer.requests, 1)
}

// blockingSigner never answers; the per transfer timeout must release it
type blockingSigner struct{ calls int }

func (b *blockingSigner) Transfer(ctx context.Context, request types.TransferRequest) (string, error) {
	b.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSettleConfirmTimeout(t *testing.T) {
	signer := &blockingSigner{}
	conf := testPaymentConfig
	conf.ConfirmTimeout = 20 * time.Millisecond
	ps := NewPaymentService(signer, oneMinerSelector(), conf)

	outcome, err := ps.Settle(context.Background(), types.SenderIdentity{Address: aliceAddress})
	assert.ErrorIs(t, err, types.ErrPaymentFailed)
	assert.Equal(t, types.PaymentFailed, outcome.State)
	assert.Equal(t, 2, signer.calls)
}
