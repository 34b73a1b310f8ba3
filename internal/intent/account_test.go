package intent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySnapshotStore struct {
	saveErr   error
	snapshots map[string]model.Snapshot
	mu        sync.Mutex
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snapshots: make(map[string]model.Snapshot)}
}

func (m *memorySnapshotStore) SaveSnapshot(_ context.Context, userID string, s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshots[userID] = s
	return nil
}

func (m *memorySnapshotStore) LoadSnapshot(_ context.Context, userID string) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (m *memorySnapshotStore) ClearSnapshot(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, userID)
	return nil
}

func (m *memorySnapshotStore) Close() error { return nil }

var fastRetry = service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestAccount_RefreshStoresSnapshot(t *testing.T) {
	mock := api.NewMockClient(decimal.RequireFromString("250.75"))
	mock.Transactions = []model.Transaction{
		{ID: "t1", Type: model.TransactionDeposit, Amount: decimal.NewFromInt(300)},
		{ID: "t2", Type: model.TransactionWithdrawal, Amount: decimal.RequireFromString("49.25")},
	}
	store := newMemorySnapshotStore()
	account := NewAccount(mock, WithSnapshotStore(store, "user-1"), WithRefreshRetry(fastRetry))

	snap, err := account.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "250.75", snap.Balance.StringFixed(2))
	assert.Len(t, snap.Transactions, 2)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.False(t, snap.Stale)

	cached, err := store.LoadSnapshot(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, cached.Transactions, 2)
}

func TestAccount_RefreshRetriesTransientFailures(t *testing.T) {
	mock := api.NewMockClient(decimal.NewFromInt(10))
	attempts := 0
	mock.GetBalanceFn = func(context.Context) (decimal.Decimal, error) {
		attempts++
		if attempts < 3 {
			return decimal.Zero, &api.RemoteError{Op: "balance", StatusCode: 503, Message: "unavailable"}
		}
		return decimal.NewFromInt(10), nil
	}
	account := NewAccount(mock, WithRefreshRetry(fastRetry))

	_, err := account.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestAccount_RefreshDoesNotRetryClientErrors(t *testing.T) {
	mock := api.NewMockClient(decimal.NewFromInt(10))
	attempts := 0
	mock.GetBalanceFn = func(context.Context) (decimal.Decimal, error) {
		attempts++
		return decimal.Zero, &api.RemoteError{Op: "balance", StatusCode: 401, Message: "expired"}
	}
	account := NewAccount(mock, WithRefreshRetry(fastRetry))

	_, err := account.Refresh(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 1, attempts)
}

func TestAccount_RefreshFailureKeepsSnapshot(t *testing.T) {
	mock := api.NewMockClient(decimal.NewFromInt(80))
	account := NewAccount(mock, WithRefreshRetry(fastRetry))

	_, err := account.Refresh(context.Background())
	require.NoError(t, err)

	mock.GetTransactionsFn = func(context.Context) ([]model.Transaction, error) {
		return nil, &api.TransportError{Op: "transactions", Err: errors.New("connection reset")}
	}
	mock.Balance = decimal.NewFromInt(5)

	snap, err := account.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "80.00", snap.Balance.StringFixed(2))
	assert.Equal(t, "80.00", account.Balance().StringFixed(2))
}

func TestAccount_SaveFailureIsNotFatal(t *testing.T) {
	store := newMemorySnapshotStore()
	store.saveErr = errors.New("disk full")
	account := NewAccount(api.NewMockClient(decimal.NewFromInt(1)), WithSnapshotStore(store, "u"))

	_, err := account.Refresh(context.Background())
	require.NoError(t, err)
}

func TestAccount_LoadCached(t *testing.T) {
	store := newMemorySnapshotStore()
	account := NewAccount(api.NewMockClient(decimal.Zero), WithSnapshotStore(store, "user-1"))

	ok, err := account.LoadCached(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveSnapshot(context.Background(), "user-1", model.Snapshot{
		Balance:   decimal.NewFromInt(42),
		FetchedAt: time.Now().Add(-time.Hour),
	}))

	ok, err = account.LoadCached(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	snap := account.Snapshot()
	assert.True(t, snap.Stale)
	assert.Equal(t, "42.00", snap.Balance.StringFixed(2))
}

func TestAccount_LoadCachedWithoutStore(t *testing.T) {
	account := NewAccount(api.NewMockClient(decimal.Zero))

	ok, err := account.LoadCached(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccount_ApplyBalanceClearsStale(t *testing.T) {
	store := newMemorySnapshotStore()
	require.NoError(t, store.SaveSnapshot(context.Background(), "user-1", model.Snapshot{
		Balance: decimal.NewFromInt(100),
	}))
	account := NewAccount(api.NewMockClient(decimal.Zero), WithSnapshotStore(store, "user-1"))

	_, err := account.LoadCached(context.Background())
	require.NoError(t, err)
	require.True(t, account.Snapshot().Stale)

	account.ApplyBalance(decimal.NewFromInt(40))

	snap := account.Snapshot()
	assert.False(t, snap.Stale)
	assert.Equal(t, "40.00", snap.Balance.StringFixed(2))
}
