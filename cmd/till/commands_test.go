package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/config"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/Veraticus/till/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBank is a minimal banking API.
type fakeBank struct {
	requests  []string
	withdraws []map[string]any
	balance   float64
	mu        sync.Mutex
	expired   bool
}

func (b *fakeBank) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet && r.URL.Path == "/api/health" {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
		return
	}

	if b.expired || r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "GET /api/account/balance":
		_ = json.NewEncoder(w).Encode(map[string]any{"balance": b.balance})
	case "GET /api/account/transactions":
		_, _ = w.Write([]byte(`{"transactions":[
			{"id":2,"type":"withdrawal","amount":25,"description":"To M-PESA","created_at":"2025-03-02T10:00:00Z"},
			{"id":1,"type":"deposit","amount":125,"description":"From KCB","created_at":"2025-03-01T10:00:00Z"}
		]}`))
	case "GET /api/withdraw/history":
		_, _ = w.Write([]byte(`{"withdrawals":[
			{"id":2,"type":"withdrawal","amount":25,"description":"To M-PESA","created_at":"2025-03-02T10:00:00Z"}
		]}`))
	case "GET /api/deposit/history":
		_, _ = w.Write([]byte(`{"deposits":[
			{"id":3,"type":"deposit","amount":40,"description":"From Equity","created_at":"2025-03-03T10:00:00Z"},
			{"id":1,"type":"deposit","amount":125,"description":"From KCB","created_at":"2025-03-01T10:00:00Z"}
		]}`))
	case "POST /api/withdraw":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.withdraws = append(b.withdraws, body)
		b.balance -= body["amount"].(float64)
		_ = json.NewEncoder(w).Encode(map[string]any{"new_balance": b.balance})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

type testEnv struct {
	bank     *fakeBank
	sessions *session.Store
}

func setupTestEnv(t *testing.T, balance float64) *testEnv {
	t.Helper()

	bank := &fakeBank{balance: balance}
	srv := httptest.NewServer(bank)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	viper.Reset()
	t.Cleanup(viper.Reset)
	config.SetDefaults(viper.GetViper())
	viper.Set(config.KeyAPIURL, srv.URL+"/api")
	viper.Set(config.KeySessionPath, filepath.Join(dir, "session.json"))
	viper.Set(config.KeyDatabasePath, filepath.Join(dir, "till.db"))

	sessions, err := session.NewStore(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	require.NoError(t, sessions.Save(&session.Session{
		AccessToken: "test-token",
		UserID:      "user-1",
		Email:       "ada@example.com",
	}))

	return &testEnv{bank: bank, sessions: sessions}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBalanceCommand(t *testing.T) {
	setupTestEnv(t, 1234.5)

	out, err := execute(t, balanceCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "$1,234.50")
}

func TestBalanceCommand_RequiresLogin(t *testing.T) {
	env := setupTestEnv(t, 10)
	require.NoError(t, env.sessions.Clear())

	_, err := execute(t, balanceCmd())
	require.ErrorIs(t, err, common.ErrNoSession)
	assert.Contains(t, formatError(err), "till login")
}

func TestBalanceCommand_ExpiredSessionIsCleared(t *testing.T) {
	env := setupTestEnv(t, 10)
	env.bank.expired = true

	_, err := execute(t, balanceCmd())
	require.Error(t, err)
	assert.Contains(t, formatError(err), "till login")

	_, err = env.sessions.Load()
	require.ErrorIs(t, err, common.ErrNoSession)
}

func (b *fakeBank) requested(route string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if r == route {
			return true
		}
	}
	return false
}

func TestTransactionsCommand_All(t *testing.T) {
	env := setupTestEnv(t, 100)

	out, err := execute(t, transactionsCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "From KCB")
	assert.Contains(t, out, "To M-PESA")
	assert.True(t, env.bank.requested("GET /api/account/transactions"))
}

func TestTransactionsCommand_TypeUsesHistoryEndpoint(t *testing.T) {
	env := setupTestEnv(t, 100)

	out, err := execute(t, transactionsCmd(), "--type", "deposit", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "From Equity")
	assert.NotContains(t, out, "From KCB")
	assert.NotContains(t, out, "To M-PESA")
	assert.True(t, env.bank.requested("GET /api/deposit/history"))
	assert.False(t, env.bank.requested("GET /api/account/transactions"))

	out, err = execute(t, transactionsCmd(), "--type", "withdrawal")
	require.NoError(t, err)
	assert.Contains(t, out, "To M-PESA")
	assert.NotContains(t, out, "From KCB")
	assert.True(t, env.bank.requested("GET /api/withdraw/history"))

	_, err = execute(t, transactionsCmd(), "--type", "refund")
	require.Error(t, err)
}

func TestTransactionsCommand_TypeExpiredSession(t *testing.T) {
	env := setupTestEnv(t, 100)
	env.bank.expired = true

	_, err := execute(t, transactionsCmd(), "--type", "withdrawal")
	require.Error(t, err)
	assert.Contains(t, formatError(err), "till login")
}

func TestStatusCommand(t *testing.T) {
	env := setupTestEnv(t, 100)

	out, err := execute(t, statusCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Bank is healthy")
	assert.True(t, env.bank.requested("GET /api/health"))

	require.NoError(t, env.sessions.Clear())
	out, err = execute(t, statusCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestStatusCommand_Unreachable(t *testing.T) {
	setupTestEnv(t, 100)
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	viper.Set(config.KeyAPIURL, srv.URL+"/api")

	out, err := execute(t, statusCmd())
	require.Error(t, err)
	assert.Contains(t, out, "Bank unreachable")
	assert.Contains(t, formatError(err), "Cannot reach the bank")
}

func TestWithdrawCommand_MobileMoney(t *testing.T) {
	env := setupTestEnv(t, 100)

	out, err := execute(t, withdrawCmd(), "--amount", "40", "--mpesa", "0712 345 678", "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Confirm withdraw")
	assert.Contains(t, out, "Successfully withdrew")
	assert.Contains(t, out, "$60.00")

	require.Len(t, env.bank.withdraws, 1)
	body := env.bank.withdraws[0]
	assert.InDelta(t, 40.0, body["amount"], 0.001)
	assert.Equal(t, "mpesa", body["withdrawal_method"])
	assert.Equal(t, "+254", body["phone_country_code"])
	assert.Equal(t, "712345678", body["phone_number"])
}

func TestWithdrawCommand_DeclinedSendsNothing(t *testing.T) {
	env := setupTestEnv(t, 100)

	cmd := withdrawCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetArgs([]string{"--amount", "40", "--bank", "kcb", "--account", "1234567"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Nothing was sent")
	assert.Empty(t, env.bank.withdraws)
}

func TestWithdrawCommand_RejectsLettersInPhone(t *testing.T) {
	env := setupTestEnv(t, 100)

	_, err := execute(t, withdrawCmd(), "--amount", "40", "--mpesa", "71a2345678", "--yes")
	require.Error(t, err)
	assert.Contains(t, formatError(err), "phone number")
	assert.Empty(t, env.bank.withdraws)
}

func TestWithdrawCommand_RejectsExponentAmount(t *testing.T) {
	env := setupTestEnv(t, 100)

	_, err := execute(t, withdrawCmd(), "--amount", "1e99999999", "--mpesa", "712345678", "--yes")
	require.Error(t, err)
	assert.Equal(t, "Please enter a valid amount", formatError(err))
	assert.Empty(t, env.bank.withdraws)
}

func TestWithdrawCommand_ValidationFailsLocally(t *testing.T) {
	env := setupTestEnv(t, 100)

	_, err := execute(t, withdrawCmd(), "--amount", "500", "--mpesa", "712345678", "--yes")
	require.Error(t, err)
	assert.Equal(t, "Insufficient balance", formatError(err))
	assert.Empty(t, env.bank.withdraws)
}

func TestTransferFlags_Channel(t *testing.T) {
	cat := catalog.Default()

	ch, err := transferFlags{mpesa: "+254 712 345 678"}.channel(cat, "KE")
	require.NoError(t, err)
	assert.Equal(t, model.MobileMoney{CountryCallingCode: "+254", LocalNumber: "712345678"}, ch)

	ch, err = transferFlags{mpesa: "0772123456", country: "UG"}.channel(cat, "KE")
	require.NoError(t, err)
	assert.Equal(t, "+256", ch.(model.MobileMoney).CountryCallingCode)

	ch, err = transferFlags{bank: "kcb", account: " 123 "}.channel(cat, "KE")
	require.NoError(t, err)
	assert.Equal(t, model.BankTransfer{BankID: "kcb", AccountNumber: "123"}, ch)

	_, err = transferFlags{mpesa: "712345678", country: "XX"}.channel(cat, "KE")
	require.Error(t, err)
}

func TestLimitTransactions(t *testing.T) {
	txns := []model.Transaction{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	assert.Len(t, limitTransactions(txns, 0), 3)
	assert.Len(t, limitTransactions(txns, 5), 3)

	limited := limitTransactions(txns, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "2", limited[1].ID)
}

func TestDispatchStatus(t *testing.T) {
	tests := []struct {
		name   string
		status service.MobileMoneyStatus
		want   string
	}{
		{"no answer yet", service.MobileMoneyStatus{}, model.DispatchPending},
		{"pending text", service.MobileMoneyStatus{Status: "pending"}, model.DispatchPending},
		{"result code zero", service.MobileMoneyStatus{ResultCode: "0"}, model.DispatchCompleted},
		{"cancelled by user", service.MobileMoneyStatus{ResultCode: "1032"}, model.DispatchFailed},
		{"explicit success", service.MobileMoneyStatus{Status: "Completed"}, model.DispatchCompleted},
		{"explicit failure", service.MobileMoneyStatus{Status: "failed", ResultCode: "0"}, model.DispatchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dispatchStatus(tt.status))
		})
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "plain", formatError(errors.New("plain")))
	assert.Equal(t, "Friendly", formatError(common.NewUserError("Friendly", errors.New("cause"))))
}
