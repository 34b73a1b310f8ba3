// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

// WithdrawRequest is the body of a withdrawal call.
type WithdrawRequest struct {
	Amount         decimal.Decimal
	Channel        model.Channel
	IdempotencyKey string
}

// DepositRequest is the body of a bank deposit call.
type DepositRequest struct {
	Amount         decimal.Decimal
	Bank           model.BankTransfer
	IdempotencyKey string
}

// MobileMoneyDepositRequest asks the provider to push a payment prompt to a
// phone.
type MobileMoneyDepositRequest struct {
	Phone          string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// MobileMoneyDispatch is the outcome of a push initiation. It says nothing
// about whether funds arrived.
type MobileMoneyDispatch struct {
	CheckoutRequestID string
	Message           string
}

// MobileMoneyStatus is the provider's view of a previously dispatched push.
type MobileMoneyStatus struct {
	Status            string
	ResultCode        string
	ResultDescription string
}

// TransferAPI is the set of money-moving calls the intent pipeline needs.
type TransferAPI interface {
	Withdraw(ctx context.Context, req WithdrawRequest) (decimal.Decimal, error)
	Deposit(ctx context.Context, req DepositRequest) (decimal.Decimal, error)
	InitiateMobileMoneyDeposit(ctx context.Context, req MobileMoneyDepositRequest) (MobileMoneyDispatch, error)
}

// AccountAPI reads the server-owned account snapshot.
type AccountAPI interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
}

// BankingAPI is everything the dashboard talks to.
type BankingAPI interface {
	TransferAPI
	AccountAPI
	MobileMoneyStatus(ctx context.Context, checkoutRequestID string) (MobileMoneyStatus, error)
	GetProfile(ctx context.Context) (*model.Profile, error)
	UpdateProfile(ctx context.Context, fullName string, avatarURL *string) (*model.Profile, error)
}

// SnapshotStore caches the last fetched account snapshot per user.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, userID string, snapshot model.Snapshot) error
	LoadSnapshot(ctx context.Context, userID string) (*model.Snapshot, error)
	ClearSnapshot(ctx context.Context, userID string) error
	Close() error
}

// DispatchStore remembers mobile-money pushes so their status can be
// checked later.
type DispatchStore interface {
	SaveDispatch(ctx context.Context, dispatch *model.Dispatch) error
	UpdateDispatchStatus(ctx context.Context, checkoutRequestID, status string) error
	GetDispatch(ctx context.Context, checkoutRequestID string) (*model.Dispatch, error)
	ListDispatches(ctx context.Context, userID string, limit int) ([]model.Dispatch, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
