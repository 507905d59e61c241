package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/metrics"
	"github.com/kasmail/kasmail-server/types"
	"github.com/redis/go-redis/v9"
)

const (
	walletTransferKey = "wallet:transfer:%s" // pending request (json)
	walletPendingKey  = "wallet:pending:%s"  // set of request ids per sender address
	walletResultKey   = "wallet:result:%s"   // list holding the single answer
	walletTxKey       = "wallet:tx:%s"       // transaction id claimed by a request

	usedTxRetention = 30 * 24 * time.Hour
)

// TransferVerifier is satisfied by *KaspaBalanceService
type TransferVerifier interface {
	VerifyTransfer(ctx context.Context, txID string, request types.TransferRequest) error
}

// kaspa transaction ids are 32 byte hashes in hex
var txIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// WalletBridgeService hands transfer requests to the sender's browser wallet and waits for the
// answer. Requests live in redis until the wallet resolves them or the confirm timeout passes.
// With a verifier, a reported transaction id counts only once the ledger shows the transfer.
type WalletBridgeService struct {
	redisClient    *redis.Client
	verifier       TransferVerifier // nil trusts the wallet
	verifyInterval time.Duration
	confirmTimeout time.Duration
}

func NewWalletBridgeService(redisClient *redis.Client, verifier TransferVerifier, confirmTimeout time.Duration) *WalletBridgeService {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if verifier == nil {
		level.Warn(global.Logger).Log("msg", "wallet transaction ids are not verified against the ledger")
	}
	return &WalletBridgeService{redisClient: redisClient, verifier: verifier, verifyInterval: 2 * time.Second, confirmTimeout: confirmTimeout}
}

// Transfer publishes the request and blocks until the wallet answers, the confirm timeout
// passes or ctx is done. Cancellation by the user returns types.ErrTransferCancelled.
func (wb *WalletBridgeService) Transfer(ctx context.Context, request types.TransferRequest) (string, error) {
	wait := wb.confirmTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}
	if wait <= 0 {
		return "", types.ErrTransferTimeout
	}

	now := time.Now().UTC()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	// the request expires before the wait ends, so a late wallet gets 404 instead of an unread answer
	ttl := wait - requestExpiryMargin(wait)
	request.Created = now.UnixMilli()
	request.Expires = now.Add(ttl).UnixMilli()

	payload, mErr := json.Marshal(request)
	if mErr != nil {
		return "", mErr
	}
	transferKey := fmt.Sprintf(walletTransferKey, request.ID)
	pendingKey := fmt.Sprintf(walletPendingKey, request.FromAddress)
	resultKey := fmt.Sprintf(walletResultKey, request.ID)

	pipe := wb.redisClient.TxPipeline()
	pipe.Set(ctx, transferKey, payload, ttl)
	pipe.SAdd(ctx, pendingKey, request.ID)
	pipe.Expire(ctx, pendingKey, wait+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		level.Error(global.Logger).Log("msg", "failed to publish transfer request", "id", request.ID, "err", err)
		return "", err
	}
	defer wb.cleanup(request)

	answer, err := wb.redisClient.BLPop(ctx, wait, resultKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			level.Warn(global.Logger).Log("msg", "transfer not confirmed in time", "id", request.ID, "kind", request.Kind, "from", request.FromAddress)
			return "", types.ErrTransferTimeout
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", types.ErrTransferTimeout, ctx.Err())
		}
		return "", err
	}
	// BLPOP returns [key, value]
	var result types.TransferResult
	if uErr := json.Unmarshal([]byte(answer[len(answer)-1]), &result); uErr != nil {
		return "", uErr
	}
	switch {
	case result.Cancelled:
		return "", types.ErrTransferCancelled
	case result.Error != "":
		return "", fmt.Errorf("wallet: %s", result.Error)
	case result.TxID == "":
		return "", errors.New("wallet returned no transaction id")
	}
	if vErr := wb.verify(ctx, request, result.TxID); vErr != nil {
		return "", vErr
	}
	return result.TxID, nil
}

// verify claims the transaction id for this request, so one payment settles one transfer, then
// polls the ledger until it shows the transfer, contradicts it or the confirm timeout passes.
func (wb *WalletBridgeService) verify(ctx context.Context, request types.TransferRequest, txID string) error {
	if wb.verifier == nil {
		return nil
	}
	claimed, err := wb.redisClient.SetNX(ctx, fmt.Sprintf(walletTxKey, strings.ToLower(txID)), request.ID, usedTxRetention).Result()
	if err != nil {
		return err
	}
	if !claimed {
		level.Warn(global.Logger).Log("msg", "wallet reported a transaction id already used", "id", request.ID, "from", request.FromAddress, "txId", txID)
		return fmt.Errorf("%w: transaction %s was already used", types.ErrTransferUnverified, txID)
	}

	vctx, cancel := context.WithTimeout(ctx, wb.confirmTimeout)
	defer cancel()
	ticker := time.NewTicker(wb.verifyInterval)
	defer ticker.Stop()
	for {
		vErr := wb.verifier.VerifyTransfer(vctx, txID, request)
		if vErr == nil {
			return nil
		}
		if errors.Is(vErr, types.ErrTransferUnverified) {
			level.Warn(global.Logger).Log("msg", "wallet transaction contradicts the request", "id", request.ID, "from", request.FromAddress, "txId", txID, "err", vErr)
			return vErr
		}
		select {
		case <-vctx.Done():
			// the fee may still land, the tx id is kept in the log
			level.Error(global.Logger).Log("msg", "wallet transaction not seen on the ledger in time", "id", request.ID, "kind", request.Kind,
				"from", request.FromAddress, "txId", txID, "err", vErr)
			return fmt.Errorf("%w: transaction %s not seen on the ledger: %v", types.ErrTransferTimeout, txID, vErr)
		case <-ticker.C:
		}
	}
}

// requestExpiryMargin is a tenth of the wait, at most two seconds
func requestExpiryMargin(wait time.Duration) time.Duration {
	margin := wait / 10
	if margin > 2*time.Second {
		margin = 2 * time.Second
	}
	return margin
}

// cleanup removes the request and drains an answer that arrived after the wait ended.
// Such an answer means the wallet spent the fee without the dispatch using it; its tx id
// is logged and returned.
func (wb *WalletBridgeService) cleanup(request types.TransferRequest) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resultKey := fmt.Sprintf(walletResultKey, request.ID)
	pipe := wb.redisClient.TxPipeline()
	late := pipe.LPop(ctx, resultKey)
	pipe.Del(ctx, fmt.Sprintf(walletTransferKey, request.ID), resultKey)
	pipe.SRem(ctx, fmt.Sprintf(walletPendingKey, request.FromAddress), request.ID)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		level.Warn(global.Logger).Log("msg", "failed to clean up transfer request", "id", request.ID, "err", err)
		return ""
	}
	raw, err := late.Result()
	if err != nil {
		return ""
	}
	var result types.TransferResult
	if uErr := json.Unmarshal([]byte(raw), &result); uErr != nil || result.TxID == "" {
		return ""
	}
	level.Error(global.Logger).Log("msg", "wallet confirmed a transfer after the wait ended, fee spent without a dispatch",
		"id", request.ID, "kind", request.Kind, "from", request.FromAddress, "to", request.ToAddress, "amountSompi", request.AmountSompi, "txId", result.TxID)
	metrics.FeeTransfersMetricsTotal.WithLabelValues(request.Kind, "late").Inc()
	return result.TxID
}

// Pending lists the unanswered requests addressed to the wallet, oldest first
func (wb *WalletBridgeService) Pending(ctx context.Context, address string) ([]*types.TransferRequest, error) {
	pendingKey := fmt.Sprintf(walletPendingKey, address)
	ids, err := wb.redisClient.SMembers(ctx, pendingKey).Result()
	if err != nil {
		return nil, err
	}
	requests := make([]*types.TransferRequest, 0, len(ids))
	for _, id := range ids {
		raw, gErr := wb.redisClient.Get(ctx, fmt.Sprintf(walletTransferKey, id)).Result()
		if gErr != nil {
			if errors.Is(gErr, redis.Nil) {
				// expired
				wb.redisClient.SRem(ctx, pendingKey, id)
				continue
			}
			return nil, gErr
		}
		var request types.TransferRequest
		if uErr := json.Unmarshal([]byte(raw), &request); uErr != nil {
			level.Error(global.Logger).Log("msg", "malformed transfer request", "id", id, "err", uErr)
			continue
		}
		requests = append(requests, &request)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].Created < requests[j].Created })
	return requests, nil
}

// Resolve records the wallet's answer. Only the wallet the request is addressed to may answer,
// and only once.
func (wb *WalletBridgeService) Resolve(ctx context.Context, address, id string, result types.TransferResult) error {
	if !result.Cancelled && result.Error == "" && !txIDPattern.MatchString(result.TxID) {
		return fmt.Errorf("%w: invalid transaction id", types.ErrBadRequest)
	}
	transferKey := fmt.Sprintf(walletTransferKey, id)
	raw, err := wb.redisClient.Get(ctx, transferKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.ErrNotFound
		}
		return err
	}
	var request types.TransferRequest
	if uErr := json.Unmarshal([]byte(raw), &request); uErr != nil {
		return uErr
	}
	if request.FromAddress != address {
		return types.ErrNotAuthorized
	}
	// whoever deletes the request owns the answer
	deleted, dErr := wb.redisClient.Del(ctx, transferKey).Result()
	if dErr != nil {
		return dErr
	}
	if deleted == 0 {
		return types.ErrNotFound
	}
	payload, mErr := json.Marshal(result)
	if mErr != nil {
		return mErr
	}
	resultKey := fmt.Sprintf(walletResultKey, id)
	pipe := wb.redisClient.TxPipeline()
	pipe.RPush(ctx, resultKey, payload)
	pipe.Expire(ctx, resultKey, time.Minute)
	pipe.SRem(ctx, fmt.Sprintf(walletPendingKey, address), id)
	_, err = pipe.Exec(ctx)
	return err
}
