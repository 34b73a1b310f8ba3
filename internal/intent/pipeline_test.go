package intent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, balance string) (*api.MockClient, *Pipeline) {
	t.Helper()

	mock := api.NewMockClient(decimal.RequireFromString(balance))
	account := NewAccount(mock, WithRefreshRetry(service.RetryOptions{MaxAttempts: 1}))
	_, err := account.Refresh(context.Background())
	require.NoError(t, err)

	keys := 0
	p, err := NewPipeline(Config{
		Transfers: mock,
		Account:   account,
		Validator: newTestValidator(),
		NewKey: func() string {
			keys++
			return "key-" + string(rune('0'+keys))
		},
	})
	require.NoError(t, err)
	return mock, p
}

func pendingWithdrawal(t *testing.T, p *Pipeline, amount string, channel model.Channel) {
	t.Helper()
	_, err := p.Withdraw().Validate(amount, channel)
	require.NoError(t, err)
	_, err = p.Withdraw().RequestConfirmation()
	require.NoError(t, err)
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(Config{})
	require.Error(t, err)

	_, err = NewPipeline(Config{Transfers: api.NewMockClient(decimal.Zero)})
	require.Error(t, err)
}

func TestConfirm_WithdrawMobileMoney(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")

	pendingWithdrawal(t, p, "50", kenyanPhone)
	assert.Equal(t, model.StatusPendingConfirmation, p.Withdraw().Intent().Status)

	outcome, err := p.Withdraw().Confirm(context.Background())
	require.NoError(t, err)

	withdrawals, _, _ := mock.Calls()
	require.Len(t, withdrawals, 1)
	assert.True(t, withdrawals[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, kenyanPhone, withdrawals[0].Channel)
	assert.Equal(t, "key-1", withdrawals[0].IdempotencyKey)

	assert.Equal(t, model.StatusSettled, outcome.Intent.Status)
	require.NotNil(t, outcome.NewBalance)
	assert.Equal(t, "50.00", outcome.NewBalance.StringFixed(2))
	assert.NoError(t, outcome.RefreshErr)
	assert.Contains(t, outcome.Message(), "Successfully withdrew 50.00")

	account := p.account.(*Account)
	assert.Equal(t, "50.00", account.Balance().StringFixed(2))

	current := p.Withdraw().Intent()
	assert.Equal(t, model.StatusDraft, current.Status)
	assert.Nil(t, current.Channel)
	assert.True(t, current.Amount.IsZero())
}

func TestConfirm_BankDepositSettles(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")

	_, err := p.Deposit().Validate("25.50", model.BankTransfer{BankID: "equity", AccountNumber: "0123456789"})
	require.NoError(t, err)
	summary, err := p.Deposit().RequestConfirmation()
	require.NoError(t, err)
	assert.Equal(t, "Deposit", summary.Direction)
	assert.Equal(t, "25.50", summary.Amount)
	assert.Equal(t, "••••••6789", summary.MaskedIdentifier)

	outcome, err := p.Deposit().Confirm(context.Background())
	require.NoError(t, err)

	_, deposits, _ := mock.Calls()
	require.Len(t, deposits, 1)
	assert.Equal(t, "equity", deposits[0].Bank.BankID)
	assert.Equal(t, model.StatusSettled, outcome.Intent.Status)
	assert.Equal(t, "125.50", p.account.Balance().StringFixed(2))
}

func TestConfirm_MobileMoneyDepositIsDispatched(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")

	_, err := p.Deposit().Validate("500", kenyanPhone)
	require.NoError(t, err)
	_, err = p.Deposit().RequestConfirmation()
	require.NoError(t, err)

	outcome, err := p.Deposit().Confirm(context.Background())
	require.NoError(t, err)

	_, _, mobile := mock.Calls()
	require.Len(t, mobile, 1)
	assert.Equal(t, "254712345678", mobile[0].Phone)

	assert.Equal(t, model.StatusDispatched, outcome.Intent.Status)
	assert.Equal(t, "ws_CO_mock", outcome.Intent.Reference)
	assert.Nil(t, outcome.NewBalance)
	assert.Contains(t, outcome.Message(), "Approve it on your phone")
	// Funds have not arrived; the balance must not move.
	assert.Equal(t, "100.00", p.account.Balance().StringFixed(2))
	assert.Equal(t, model.StatusDraft, p.Deposit().Intent().Status)
}

func TestConfirm_RemoteFailureKeepsValues(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")
	mock.WithdrawFn = func(context.Context, service.WithdrawRequest) (decimal.Decimal, error) {
		return decimal.Zero, &api.RemoteError{Op: "withdraw", StatusCode: 400, Message: "Transaction declined"}
	}

	pendingWithdrawal(t, p, "50", kenyanPhone)
	_, err := p.Withdraw().Confirm(context.Background())

	var remote *api.RemoteError
	require.ErrorAs(t, err, &remote)

	current := p.Withdraw().Intent()
	assert.Equal(t, model.StatusFailed, current.Status)
	assert.Equal(t, "Transaction declined", current.Error)
	assert.Equal(t, kenyanPhone, current.Channel)
	assert.Equal(t, "50.00", current.Amount.StringFixed(2))
	assert.Equal(t, "100.00", p.account.Balance().StringFixed(2))
	assert.True(t, p.Withdraw().CanSubmit())

	// A failed intent can be edited and resubmitted.
	_, err = p.Withdraw().Validate("40", kenyanPhone)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, p.Withdraw().Intent().Status)
	assert.Empty(t, p.Withdraw().Intent().Error)
}

func TestConfirm_TransportFailure(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")
	mock.WithdrawFn = func(context.Context, service.WithdrawRequest) (decimal.Decimal, error) {
		return decimal.Zero, &api.TransportError{Op: "withdraw", Err: errors.New("connection refused")}
	}

	pendingWithdrawal(t, p, "50", kenyanPhone)
	_, err := p.Withdraw().Confirm(context.Background())
	require.Error(t, err)

	current := p.Withdraw().Intent()
	assert.Equal(t, model.StatusFailed, current.Status)
	assert.Equal(t, "Could not reach the bank. Please try again.", current.Error)
}

func TestConfirm_Timeout(t *testing.T) {
	mock := api.NewMockClient(decimal.NewFromInt(100))
	mock.WithdrawFn = func(ctx context.Context, _ service.WithdrawRequest) (decimal.Decimal, error) {
		<-ctx.Done()
		return decimal.Zero, &api.TransportError{Op: "withdraw", Err: ctx.Err()}
	}
	account := NewAccount(mock)
	_, err := account.Refresh(context.Background())
	require.NoError(t, err)

	p, err := NewPipeline(Config{Transfers: mock, Account: account, ConfirmTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	pendingWithdrawal(t, p, "50", kenyanPhone)
	_, err = p.Withdraw().Confirm(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, model.StatusFailed, p.Withdraw().Intent().Status)
}

func TestConfirm_RejectsReentry(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")

	started := make(chan struct{})
	release := make(chan struct{})
	mock.WithdrawFn = func(context.Context, service.WithdrawRequest) (decimal.Decimal, error) {
		close(started)
		<-release
		return decimal.NewFromInt(50), nil
	}

	pendingWithdrawal(t, p, "50", kenyanPhone)

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = p.Withdraw().Confirm(context.Background())
	}()

	<-started
	assert.True(t, p.Withdraw().Busy())
	assert.False(t, p.Withdraw().CanSubmit())

	for range 5 {
		_, err := p.Withdraw().Confirm(context.Background())
		require.ErrorIs(t, err, ErrBusy)
	}
	_, err := p.Withdraw().Validate("20", kenyanPhone)
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, p.Withdraw().Reset(), ErrBusy)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	withdrawals, _, _ := mock.Calls()
	assert.Len(t, withdrawals, 1)
}

func TestConfirm_RefreshFailureIsNonFatal(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")
	mock.GetTransactionsFn = func(context.Context) ([]model.Transaction, error) {
		return nil, &api.RemoteError{Op: "transactions", StatusCode: 400, Message: "bad request"}
	}

	pendingWithdrawal(t, p, "30", kenyanPhone)
	outcome, err := p.Withdraw().Confirm(context.Background())
	require.NoError(t, err)

	require.Error(t, outcome.RefreshErr)
	assert.Equal(t, model.StatusSettled, outcome.Intent.Status)
	assert.Equal(t, "70.00", p.account.Balance().StringFixed(2))
}

func TestConfirm_RequiresPendingConfirmation(t *testing.T) {
	mock, p := newTestPipeline(t, "100.00")

	_, err := p.Withdraw().Confirm(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = p.Withdraw().Validate("50", kenyanPhone)
	require.NoError(t, err)
	_, err = p.Withdraw().Confirm(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)

	withdrawals, _, _ := mock.Calls()
	assert.Empty(t, withdrawals)
}

func TestRequestConfirmation_RejectsEmptyDraft(t *testing.T) {
	_, p := newTestPipeline(t, "100.00")

	_, err := p.Withdraw().RequestConfirmation()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.StatusDraft, p.Withdraw().Intent().Status)
}

func TestCancel_RestoresDraft(t *testing.T) {
	_, p := newTestPipeline(t, "100.00")

	draft, err := p.Withdraw().Validate("42.10", model.BankTransfer{BankID: "kcb", AccountNumber: "99887766"})
	require.NoError(t, err)

	_, err = p.Withdraw().RequestConfirmation()
	require.NoError(t, err)
	pending := p.Withdraw().Intent()
	assert.NotEmpty(t, pending.IdempotencyKey)

	// Editing is blocked while the summary is shown.
	_, err = p.Withdraw().Validate("10", kenyanPhone)
	require.ErrorIs(t, err, ErrInvalidTransition)

	restored, err := p.Withdraw().Cancel()
	require.NoError(t, err)
	assert.Equal(t, draft, restored)
	assert.Equal(t, draft, p.Withdraw().Intent())

	_, err = p.Withdraw().Cancel()
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRequestConfirmationCancel_RoundTrip(t *testing.T) {
	v := newTestValidator()
	balance := decimal.NewFromInt(10000)

	channels := []model.Channel{
		kenyanPhone,
		model.BankTransfer{BankID: "coop", AccountNumber: "1234567890"},
	}
	for _, ch := range channels {
		for _, amount := range []string{"10", "10.5", "999.999", "10000"} {
			draft, err := v.ValidateWithdrawal(amount, balance, ch)
			require.NoError(t, err)

			pending, err := RequestConfirmation(draft, func() string { return "k" })
			require.NoError(t, err)
			assert.Equal(t, model.StatusPendingConfirmation, pending.Status)
			assert.True(t, draft.Amount.Equal(pending.Amount))
			assert.Equal(t, draft.Channel, pending.Channel)

			back, err := Cancel(pending)
			require.NoError(t, err)
			assert.Equal(t, draft, back)
		}
	}
}

func TestForms_AreIndependent(t *testing.T) {
	_, p := newTestPipeline(t, "100.00")

	_, err := p.Withdraw().Validate("50", kenyanPhone)
	require.NoError(t, err)

	assert.Equal(t, p.Deposit(), p.Form(model.KindDeposit))
	assert.Nil(t, p.Deposit().Intent().Channel)
	assert.Equal(t, model.KindDeposit, p.Deposit().Kind())
	assert.NotNil(t, p.Withdraw().Intent().Channel)
}

func newCachedPipeline(t *testing.T, cached string) (*api.MockClient, *Account, *Pipeline) {
	t.Helper()

	store := newMemorySnapshotStore()
	require.NoError(t, store.SaveSnapshot(context.Background(), "user-1", model.Snapshot{
		Balance:   decimal.RequireFromString(cached),
		FetchedAt: time.Now().Add(-time.Hour),
	}))

	mock := api.NewMockClient(decimal.NewFromInt(40))
	account := NewAccount(mock,
		WithSnapshotStore(store, "user-1"),
		WithRefreshRetry(service.RetryOptions{MaxAttempts: 1}))
	ok, err := account.LoadCached(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	p, err := NewPipeline(Config{Transfers: mock, Account: account, Validator: newTestValidator()})
	require.NoError(t, err)
	return mock, account, p
}

func TestValidate_WithdrawalRefusedOnCachedBalance(t *testing.T) {
	mock, account, p := newCachedPipeline(t, "100.00")

	draft, err := p.Withdraw().Validate("50", kenyanPhone)
	require.ErrorIs(t, err, ErrStaleBalance)
	assert.Contains(t, err.Error(), "Refresh before withdrawing")
	assert.True(t, draft.Amount.IsZero())
	assert.Equal(t, model.StatusDraft, p.Withdraw().Intent().Status)

	withdrawals, _, _ := mock.Calls()
	assert.Empty(t, withdrawals)

	_, err = account.Refresh(context.Background())
	require.NoError(t, err)

	// The fresh balance of 40 now decides.
	_, err = p.Withdraw().Validate("50", kenyanPhone)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = p.Withdraw().Validate("30", kenyanPhone)
	require.NoError(t, err)
}

func TestValidate_DepositAllowedOnCachedBalance(t *testing.T) {
	_, _, p := newCachedPipeline(t, "100.00")

	_, err := p.Deposit().Validate("50", kenyanPhone)
	require.NoError(t, err)
}

func TestConfirm_SlowRefreshDoesNotHoldForm(t *testing.T) {
	mock := api.NewMockClient(decimal.NewFromInt(100))
	account := NewAccount(mock, WithRefreshRetry(service.RetryOptions{MaxAttempts: 1}))
	_, err := account.Refresh(context.Background())
	require.NoError(t, err)

	refreshing := make(chan struct{})
	var once sync.Once
	mock.GetBalanceFn = func(ctx context.Context) (decimal.Decimal, error) {
		once.Do(func() { close(refreshing) })
		<-ctx.Done()
		return decimal.Zero, &api.TransportError{Op: "balance", Err: ctx.Err()}
	}

	p, err := NewPipeline(Config{
		Transfers:      mock,
		Account:        account,
		Validator:      newTestValidator(),
		RefreshTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	pendingWithdrawal(t, p, "30", kenyanPhone)

	done := make(chan Outcome, 1)
	go func() {
		outcome, confirmErr := p.Withdraw().Confirm(context.Background())
		assert.NoError(t, confirmErr)
		done <- outcome
	}()

	<-refreshing
	assert.False(t, p.Withdraw().Busy())
	assert.Equal(t, model.StatusDraft, p.Withdraw().Intent().Status)

	select {
	case outcome := <-done:
		require.ErrorIs(t, outcome.RefreshErr, context.DeadlineExceeded)
		assert.Equal(t, model.StatusSettled, outcome.Intent.Status)
		assert.Equal(t, "70.00", account.Balance().StringFixed(2))
	case <-time.After(5 * time.Second):
		t.Fatal("confirm did not return after the refresh deadline")
	}
}
