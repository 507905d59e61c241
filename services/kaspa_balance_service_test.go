package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kaspaApi = "http://kaspa.test"

func newMockedBalanceService(t *testing.T) *KaspaBalanceService {
	ks := NewKaspaBalanceService(kaspaApi)
	httpmock.ActivateNonDefault(ks.GetClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return ks
}

func TestKaspaBalance(t *testing.T) {
	ks := newMockedBalanceService(t)
	httpmock.RegisterResponder("GET", kaspaApi+"/addresses/"+aliceAddress+"/balance",
		httpmock.NewStringResponder(200, `{"address":"`+aliceAddress+`","balance":250000000}`))

	balance, err := ks.GetBalance(context.Background(), aliceAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(250000000), balance)
}

func TestKaspaBalanceServerError(t *testing.T) {
	ks := newMockedBalanceService(t)
	httpmock.RegisterResponder("GET", kaspaApi+"/addresses/"+aliceAddress+"/balance",
		httpmock.NewStringResponder(500, `{"detail":"node unavailable"}`))

	_, err := ks.GetBalance(context.Background(), aliceAddress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node unavailable")
}

func TestKaspaBalanceMismatchedAddress(t *testing.T) {
	ks := newMockedBalanceService(t)
	httpmock.RegisterResponder("GET", kaspaApi+"/addresses/"+aliceAddress+"/balance",
		httpmock.NewStringResponder(200, `{"address":"`+bobAddress+`","balance":1}`))

	_, err := ks.GetBalance(context.Background(), aliceAddress)
	assert.Error(t, err)
}

func TestKaspaBalanceFeedsEligibility(t *testing.T) {
	ks := newMockedBalanceService(t)
	httpmock.RegisterResponder("GET", kaspaApi+"/addresses/"+aliceAddress+"/balance",
		httpmock.NewStringResponder(503, `oops`))

	es := NewEligibilityService(ks, 100000000)
	result, err := es.Check(context.Background(), aliceAddress)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, "balance unavailable", result.Reason)
}

func kaspaTxJSON(txID string, blockTime int64, from, to string, amount uint64) string {
	return fmt.Sprintf(`{"transaction_id":"%s","block_time":%d,"is_accepted":true,`+
		`"inputs":[{"previous_outpoint_address":"%s"}],`+
		`"outputs":[{"amount":%d,"script_public_key_address":"%s"},{"amount":5,"script_public_key_address":"%s"}]}`,
		txID, blockTime, from, amount, to, from)
}

func TestKaspaVerifyTransfer(t *testing.T) {
	request := devFeeRequest()
	request.Created = time.Now().UnixMilli()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"pays as requested", 200, kaspaTxJSON(testTxID, request.Created+500, aliceAddress, platformAddress, request.AmountSompi), nil},
		{"not indexed yet", 404, `{"detail":"Transaction not found"}`, types.ErrNotFound},
		{"wrong recipient", 200, kaspaTxJSON(testTxID, request.Created, aliceAddress, bobAddress, request.AmountSompi), types.ErrTransferUnverified},
		{"short amount", 200, kaspaTxJSON(testTxID, request.Created, aliceAddress, platformAddress, request.AmountSompi-1), types.ErrTransferUnverified},
		{"someone else's payment", 200, kaspaTxJSON(testTxID, request.Created, bobAddress, platformAddress, request.AmountSompi), types.ErrTransferUnverified},
		{"old payment replayed", 200, kaspaTxJSON(testTxID, request.Created-time.Hour.Milliseconds(), aliceAddress, platformAddress, request.AmountSompi), types.ErrTransferUnverified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := newMockedBalanceService(t)
			httpmock.RegisterResponder("GET", kaspaApi+"/transactions/"+testTxID,
				httpmock.NewStringResponder(tt.status, tt.body))

			err := ks.VerifyTransfer(context.Background(), testTxID, request)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestKaspaVerifyTransferServerError(t *testing.T) {
	ks := newMockedBalanceService(t)
	httpmock.RegisterResponder("GET", kaspaApi+"/transactions/"+testTxID,
		httpmock.NewStringResponder(500, `{"detail":"node unavailable"}`))

	err := ks.VerifyTransfer(context.Background(), testTxID, devFeeRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrTransferUnverified)
	assert.NotErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), "node unavailable")
}
