package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

// KaspaBalanceService reads balances and transactions from a kaspa REST API
// (GET /addresses/{address}/balance -> {"address": "...", "balance": <sompi>})
type KaspaBalanceService struct {
	client *resty.Client
}

type kaspaBalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type kaspaTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
	BlockTime     int64  `json:"block_time"` // unix millis
	Inputs        []struct {
		PreviousOutpointAddress string `json:"previous_outpoint_address"`
	} `json:"inputs"`
	Outputs []struct {
		Amount  uint64 `json:"amount"`
		Address string `json:"script_public_key_address"`
	} `json:"outputs"`
}

// transactions confirmed this long before the request was created cannot pay for it
const txClockSkew = time.Minute

func NewKaspaBalanceService(apiUrl string) *KaspaBalanceService {
	client := resty.New().SetBaseURL(apiUrl).SetTimeout(10*time.Second).SetHeader("Accept", "application/json")
	return &KaspaBalanceService{client: client}
}

// GetClient exposes the resty client (tests hook httpmock into it)
func (ks *KaspaBalanceService) GetClient() *resty.Client {
	return ks.client
}

func (ks *KaspaBalanceService) GetBalance(ctx context.Context, address string) (uint64, error) {
	if !types.IsKaspaAddress(address) {
		return 0, types.ErrInvalidAddress
	}
	var result kaspaBalanceResponse
	response, err := ks.client.R().SetContext(ctx).ForceContentType("application/json").SetResult(&result).Get("/addresses/" + url.PathEscape(address) + "/balance")
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to reach kaspa api", "address", address, "err", err)
		return 0, err
	}
	if response.IsError() {
		if hErr := handleError(response.Body()); hErr != nil {
			return 0, fmt.Errorf("kaspa api: %w", hErr)
		}
		return 0, fmt.Errorf("kaspa api: unexpected status %s", response.Status())
	}
	if result.Address != "" && result.Address != address {
		return 0, fmt.Errorf("kaspa api returned balance for %s, expected %s", result.Address, address)
	}
	return result.Balance, nil
}

// VerifyTransfer checks that txID spends from the request's sender and pays at least the
// requested amount to its recipient (GET /transactions/{id}).
// A transaction the API does not know yet returns types.ErrNotFound, a contradicting one
// types.ErrTransferUnverified.
func (ks *KaspaBalanceService) VerifyTransfer(ctx context.Context, txID string, request types.TransferRequest) error {
	var tx kaspaTransactionResponse
	response, err := ks.client.R().SetContext(ctx).ForceContentType("application/json").
		SetQueryParam("resolve_previous_outpoints", "light").
		SetResult(&tx).Get("/transactions/" + url.PathEscape(txID))
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to reach kaspa api", "txId", txID, "err", err)
		return err
	}
	if response.StatusCode() == http.StatusNotFound {
		return types.ErrNotFound
	}
	if response.IsError() {
		if hErr := handleError(response.Body()); hErr != nil {
			return fmt.Errorf("kaspa api: %w", hErr)
		}
		return fmt.Errorf("kaspa api: unexpected status %s", response.Status())
	}

	if !strings.EqualFold(tx.TransactionID, txID) {
		return fmt.Errorf("%w: api returned transaction %s", types.ErrTransferUnverified, tx.TransactionID)
	}
	if tx.BlockTime > 0 && request.Created > 0 && tx.BlockTime < request.Created-txClockSkew.Milliseconds() {
		return fmt.Errorf("%w: transaction %s predates the request", types.ErrTransferUnverified, txID)
	}
	fromSender := false
	for _, in := range tx.Inputs {
		if in.PreviousOutpointAddress == request.FromAddress {
			fromSender = true
			break
		}
	}
	if !fromSender {
		return fmt.Errorf("%w: transaction %s is not spent by %s", types.ErrTransferUnverified, txID, request.FromAddress)
	}
	for _, out := range tx.Outputs {
		if out.Address == request.ToAddress && out.Amount >= request.AmountSompi {
			return nil
		}
	}
	return fmt.Errorf("%w: transaction %s does not pay %d sompi to %s", types.ErrTransferUnverified, txID, request.AmountSompi, request.ToAddress)
}
