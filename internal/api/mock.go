package api

import (
	"context"
	"sync"

	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/shopspring/decimal"
)

// MockClient is an in-memory service.BankingAPI for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	WithdrawFn          func(ctx context.Context, req service.WithdrawRequest) (decimal.Decimal, error)
	DepositFn           func(ctx context.Context, req service.DepositRequest) (decimal.Decimal, error)
	MobileDepositFn     func(ctx context.Context, req service.MobileMoneyDepositRequest) (service.MobileMoneyDispatch, error)
	MobileStatusFn      func(ctx context.Context, id string) (service.MobileMoneyStatus, error)
	GetBalanceFn        func(ctx context.Context) (decimal.Decimal, error)
	GetTransactionsFn   func(ctx context.Context) ([]model.Transaction, error)
	GetProfileFn        func(ctx context.Context) (*model.Profile, error)
	UpdateProfileFn     func(ctx context.Context, fullName string, avatarURL *string) (*model.Profile, error)
	Balance             decimal.Decimal
	Transactions        []model.Transaction
	WithdrawCalls       []service.WithdrawRequest
	DepositCalls        []service.DepositRequest
	MobileDepositCalls  []service.MobileMoneyDepositRequest
	GetBalanceCalls     int
	GetTransactionsCall int
	mu                  sync.Mutex
}

// NewMockClient creates a mock holding the given balance.
func NewMockClient(balance decimal.Decimal) *MockClient {
	return &MockClient{Balance: balance}
}

// Withdraw implements service.TransferAPI. By default it debits Balance.
func (m *MockClient) Withdraw(ctx context.Context, req service.WithdrawRequest) (decimal.Decimal, error) {
	m.mu.Lock()
	m.WithdrawCalls = append(m.WithdrawCalls, req)
	fn := m.WithdrawFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Amount.GreaterThan(m.Balance) {
		return decimal.Zero, &RemoteError{Op: "withdraw", StatusCode: 400, Message: "Insufficient balance"}
	}
	m.Balance = m.Balance.Sub(req.Amount)
	return m.Balance, nil
}

// Deposit implements service.TransferAPI. By default it credits Balance.
func (m *MockClient) Deposit(ctx context.Context, req service.DepositRequest) (decimal.Decimal, error) {
	m.mu.Lock()
	m.DepositCalls = append(m.DepositCalls, req)
	fn := m.DepositFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balance = m.Balance.Add(req.Amount)
	return m.Balance, nil
}

// InitiateMobileMoneyDeposit implements service.TransferAPI.
func (m *MockClient) InitiateMobileMoneyDeposit(ctx context.Context, req service.MobileMoneyDepositRequest) (service.MobileMoneyDispatch, error) {
	m.mu.Lock()
	m.MobileDepositCalls = append(m.MobileDepositCalls, req)
	fn := m.MobileDepositFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return service.MobileMoneyDispatch{CheckoutRequestID: "ws_CO_mock", Message: "Success. Request accepted for processing"}, nil
}

// MobileMoneyStatus implements service.BankingAPI.
func (m *MockClient) MobileMoneyStatus(ctx context.Context, id string) (service.MobileMoneyStatus, error) {
	if m.MobileStatusFn != nil {
		return m.MobileStatusFn(ctx, id)
	}
	return service.MobileMoneyStatus{Status: "pending"}, nil
}

// GetBalance implements service.AccountAPI.
func (m *MockClient) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	m.GetBalanceCalls++
	fn := m.GetBalanceFn
	balance := m.Balance
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return balance, nil
}

// GetTransactions implements service.AccountAPI.
func (m *MockClient) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	m.mu.Lock()
	m.GetTransactionsCall++
	fn := m.GetTransactionsFn
	txs := append([]model.Transaction(nil), m.Transactions...)
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return txs, nil
}

// GetProfile implements service.BankingAPI.
func (m *MockClient) GetProfile(ctx context.Context) (*model.Profile, error) {
	if m.GetProfileFn != nil {
		return m.GetProfileFn(ctx)
	}
	return &model.Profile{ID: "user-1", Email: "user@example.com"}, nil
}

// UpdateProfile implements service.BankingAPI.
func (m *MockClient) UpdateProfile(ctx context.Context, fullName string, avatarURL *string) (*model.Profile, error) {
	if m.UpdateProfileFn != nil {
		return m.UpdateProfileFn(ctx, fullName, avatarURL)
	}
	profile := &model.Profile{ID: "user-1", Email: "user@example.com", FullName: fullName}
	if avatarURL != nil {
		profile.AvatarURL = *avatarURL
	}
	return profile, nil
}

// Calls returns copies of the recorded transfer calls.
func (m *MockClient) Calls() (withdrawals []service.WithdrawRequest, deposits []service.DepositRequest, mobile []service.MobileMoneyDepositRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(withdrawals, m.WithdrawCalls...),
		append(deposits, m.DepositCalls...),
		append(mobile, m.MobileDepositCalls...)
}
