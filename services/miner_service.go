package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/metrics"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/types"
)

// MinerPool lists the currently active reward targets
type MinerPool interface {
	ListActiveMiners(ctx context.Context) ([]*types.MinerAddress, error)
}

// maximum number of pool entries read per query
const minerPoolLimit = 1000

// MinerService stores the miner reward pool in CouchDB (database miner_addresses, keyed by address)
type MinerService struct {
	minerRepo repository.Repository
}

type minerFindResult struct {
	Docs []*types.MinerAddress `json:"docs"`
}

func NewMinerService(dbSelector repository.DBSelector) *MinerService {
	minerRepo, err := dbSelector.ChooseDB(repository.Miners)
	if err != nil {
		panic(err)
	}
	return &MinerService{minerRepo: minerRepo}
}

func (ms *MinerService) ListActiveMiners(ctx context.Context) ([]*types.MinerAddress, error) {
	response, err := ms.minerRepo.Find(ctx, map[string]interface{}{"isActive": true}, minerPoolLimit)
	if err != nil {
		return nil, err
	}
	var result minerFindResult
	if mErr := repository.MapToObject(response, &result); mErr != nil {
		return nil, mErr
	}
	return result.Docs, nil
}

// PoolSize returns the number of active miners
func (ms *MinerService) PoolSize(ctx context.Context) (int, error) {
	miners, err := ms.ListActiveMiners(ctx)
	if err != nil {
		return 0, err
	}
	return len(miners), nil
}

// ReportPoolSize publishes the active pool size as a gauge (scheduled)
func (ms *MinerService) ReportPoolSize() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	size, err := ms.PoolSize(ctx)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to read miner pool size", "err", err)
		return
	}
	if size == 0 {
		level.Warn(global.Logger).Log("msg", "miner pool is empty, miner rewards are skipped")
	}
	metrics.MinerPoolSizeGauge.Set(float64(size))
}

// Save creates or replaces a pool entry (existing revision is carried over)
func (ms *MinerService) Save(ctx context.Context, miner *types.MinerAddress) error {
	if !types.IsKaspaAddress(miner.Address) {
		return fmt.Errorf("%w: %q", types.ErrInvalidAddress, miner.Address)
	}
	existing, err := ms.minerRepo.GetByID(ctx, miner.Address)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if err == nil {
		var current types.MinerAddress
		if mErr := repository.MapToObject(existing, &current); mErr != nil {
			return mErr
		}
		miner.BaseDocument = current.BaseDocument
	}
	miner.ID = miner.Address
	miner.Modified = time.Now().UTC().UnixMilli()
	return ms.minerRepo.Save(ctx, miner.Address, miner)
}

// Import saves every entry and returns the number stored. It stops at the first failure.
func (ms *MinerService) Import(ctx context.Context, miners []*types.MinerAddress) (int, error) {
	for i, m := range miners {
		if err := ms.Save(ctx, m); err != nil {
			level.Error(global.Logger).Log("msg", "failed to import miner", "address", m.Address, "err", err)
			return i, err
		}
	}
	return len(miners), nil
}

// MinerSelector picks one reward target uniformly from the active pool.
// The pool is read on every call.
type MinerSelector struct {
	pool MinerPool
	mu   sync.Mutex
	rnd  *rand.Rand
}

func NewMinerSelector(pool MinerPool, rnd *rand.Rand) *MinerSelector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MinerSelector{pool: pool, rnd: rnd}
}

// Select returns an empty selection when no active miner exists
func (ms *MinerSelector) Select(ctx context.Context) (types.MinerSelection, error) {
	miners, err := ms.pool.ListActiveMiners(ctx)
	if err != nil {
		return types.MinerSelection{}, err
	}
	active := make([]*types.MinerAddress, 0, len(miners))
	for _, m := range miners {
		if m != nil && m.IsActive && m.Address != "" {
			active = append(active, m)
		}
	}
	if len(active) == 0 {
		return types.MinerSelection{}, nil
	}
	ms.mu.Lock()
	idx := ms.rnd.Intn(len(active))
	ms.mu.Unlock()
	return types.MinerSelection{Miner: active[idx]}, nil
}
