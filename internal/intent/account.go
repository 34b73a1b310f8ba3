package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Refresher is the account snapshot the pipeline reconciles against.
type Refresher interface {
	Snapshot() model.Snapshot
	Balance() decimal.Decimal
	ApplyBalance(balance decimal.Decimal)
	Refresh(ctx context.Context) (model.Snapshot, error)
}

// Account owns the cached copy of the server's balance and history.
type Account struct {
	api      service.AccountAPI
	store    service.SnapshotStore
	now      func() time.Time
	userID   string
	snapshot model.Snapshot
	retry    service.RetryOptions
	mu       sync.RWMutex
}

// AccountOption configures an Account.
type AccountOption func(*Account)

// WithSnapshotStore persists every successful refresh for offline display.
func WithSnapshotStore(store service.SnapshotStore, userID string) AccountOption {
	return func(a *Account) {
		a.store = store
		a.userID = userID
	}
}

// WithRefreshRetry sets the retry policy for snapshot reads.
func WithRefreshRetry(opts service.RetryOptions) AccountOption {
	return func(a *Account) {
		a.retry = opts
	}
}

// NewAccount creates an empty account view.
func NewAccount(accountAPI service.AccountAPI, opts ...AccountOption) *Account {
	a := &Account{
		api: accountAPI,
		now: time.Now,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns a copy of the cached snapshot.
func (a *Account) Snapshot() model.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.snapshot
	s.Transactions = append([]model.Transaction(nil), a.snapshot.Transactions...)
	return s
}

// Balance returns the cached balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.Balance
}

// ApplyBalance records a balance reported by a money-moving call ahead of
// the authoritative refresh. The server reported it, so the snapshot is no
// longer stale.
func (a *Account) ApplyBalance(balance decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot.Balance = balance
	a.snapshot.Stale = false
}

// Refresh fetches balance and history concurrently. On failure the cached
// snapshot is left as it was.
func (a *Account) Refresh(ctx context.Context) (model.Snapshot, error) {
	var (
		balance decimal.Decimal
		txs     []model.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return common.WithRetry(gctx, func() error {
			var err error
			balance, err = a.api.GetBalance(gctx)
			return retryable(err)
		}, a.retry)
	})
	g.Go(func() error {
		return common.WithRetry(gctx, func() error {
			var err error
			txs, err = a.api.GetTransactions(gctx)
			return retryable(err)
		}, a.retry)
	})

	if err := g.Wait(); err != nil {
		return a.Snapshot(), fmt.Errorf("failed to refresh account: %w", err)
	}

	snap := model.Snapshot{Balance: balance, Transactions: txs, FetchedAt: a.now()}

	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.SaveSnapshot(ctx, a.userID, snap); err != nil {
			slog.Warn("Failed to cache account snapshot", "error", err)
		}
	}

	return a.Snapshot(), nil
}

// LoadCached fills the view from the local cache, marked stale. It is a
// no-op without a store.
func (a *Account) LoadCached(ctx context.Context) (bool, error) {
	if a.store == nil {
		return false, nil
	}

	snap, err := a.store.LoadSnapshot(ctx, a.userID)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load cached snapshot: %w", err)
	}

	snap.Stale = true
	a.mu.Lock()
	a.snapshot = *snap
	a.mu.Unlock()
	return true, nil
}

// retryable marks client errors as permanent so reads are only retried on
// transport failures and 5xx responses.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	var remote *api.RemoteError
	if errors.As(err, &remote) && !remote.Temporary() {
		return &common.RetryableError{Err: err, Retryable: false}
	}
	return err
}
