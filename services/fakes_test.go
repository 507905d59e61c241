package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/require"
)

var (
	aliceAddress    = "kaspa:" + strings.Repeat("qa", 30) + "q"
	bobAddress      = "kaspa:" + strings.Repeat("qz", 30) + "q"
	platformAddress = "kaspa:" + strings.Repeat("qr", 30) + "q"
	minerOne        = "kaspa:" + strings.Repeat("q9", 30) + "q"
	minerTwo        = "kaspa:" + strings.Repeat("q8", 30) + "q"
	minerThree      = "kaspa:" + strings.Repeat("q7", 30) + "q"
)

var errBoom = errors.New("boom")

type fakeOracle struct {
	balances map[string]uint64
	err      error
	calls    int
}

func (f *fakeOracle) GetBalance(ctx context.Context, address string) (uint64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.balances[address], nil
}

type fakeDirectory struct {
	users map[string]string
	err   error
}

func (f *fakeDirectory) LookupUsername(ctx context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	addr, ok := f.users[name]
	if !ok {
		return "", types.ErrNotFound
	}
	return addr, nil
}

type fakeMinerPool struct {
	miners []*types.MinerAddress
	err    error
	calls  int
}

func (f *fakeMinerPool) ListActiveMiners(ctx context.Context) ([]*types.MinerAddress, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.miners, nil
}

// fakeSigner answers transfers by kind: a tx id, or an error when the kind is listed in fail
type fakeSigner struct {
	mu       sync.Mutex
	txIDs    map[string]string
	fail     map[string]error
	requests []types.TransferRequest
}

func (f *fakeSigner) Transfer(ctx context.Context, request types.TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if err, ok := f.fail[request.Kind]; ok {
		return "", err
	}
	return f.txIDs[request.Kind], nil
}

// memRepository is an in-memory repository.Repository
type memRepository struct {
	mu    sync.Mutex
	docs  map[string]interface{}
	err   error
	saves int
}

func newMemRepository() *memRepository {
	return &memRepository{docs: map[string]interface{}{}}
}

func (m *memRepository) GetByID(ctx context.Context, id string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return doc, nil
}

func (m *memRepository) Find(ctx context.Context, selector map[string]interface{}, limit int) (interface{}, error) {
	return nil, errors.New("not supported")
}

func (m *memRepository) Save(ctx context.Context, id string, doc interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[id]; ok {
		return types.ErrConflict
	}
	m.docs[id] = doc
	return nil
}

func (m *memRepository) Update(ctx context.Context, id string, doc interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc
	return nil
}

func (m *memRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memRepository) GetDBName() string {
	return "mem"
}

const couchUrl = "http://couchdb.test"

// newMockCouchDB returns a CouchDB repository whose client is served by httpmock
func newMockCouchDB(t *testing.T, dbName string) repository.Repository {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder("HEAD", couchUrl+"/"+dbName, httpmock.NewStringResponder(200, ""))
	db, err := repository.NewCouchDBRepository(couchUrl, dbName, "test", "test", true)
	require.NoError(t, err)
	return db
}

func newMockSelector(t *testing.T, dbNames ...string) *repository.CouchDBSelector {
	selector := repository.NewCouchDBSelector()
	for _, name := range dbNames {
		selector.AddDB(newMockCouchDB(t, name))
	}
	return selector
}
