package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the ledger direction reported by the server.
type TransactionType string

// Transaction types as returned by the account endpoints.
const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// Transaction is one entry of the server-owned history. Clients never
// create or mutate these.
type Transaction struct {
	CreatedAt    time.Time
	BalanceAfter *decimal.Decimal
	ID           string
	Description  string
	Type         TransactionType
	Amount       decimal.Decimal
}

// SignedAmount returns the amount negated for withdrawals.
func (t Transaction) SignedAmount() decimal.Decimal {
	amt := t.Amount.Abs()
	if t.Type == TransactionWithdrawal {
		return amt.Neg()
	}
	return amt
}

// Snapshot is the client's cached view of the server-owned balance and
// history.
type Snapshot struct {
	FetchedAt    time.Time
	Balance      decimal.Decimal
	Transactions []Transaction
	// Stale is set when the snapshot came from the local cache rather than
	// the server.
	Stale bool
}

// User is the authenticated account holder.
type User struct {
	ID    string
	Email string
}

// Profile holds the editable account holder details.
type Profile struct {
	UpdatedAt time.Time
	ID        string
	Email     string
	FullName  string
	AvatarURL string
	Balance   decimal.Decimal
}

// Dispatch statuses. The provider reports its own strings; these are the
// ones the client acts on.
const (
	DispatchPending   = "pending"
	DispatchCompleted = "completed"
	DispatchFailed    = "failed"
)

// Dispatch is a mobile-money push the client initiated. Whether funds
// arrived is only known once the provider reports a final status.
type Dispatch struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Amount            decimal.Decimal
	CheckoutRequestID string
	UserID            string
	Phone             string
	IdempotencyKey    string
	Status            string
}

// Final reports whether the provider has settled the push either way.
func (d Dispatch) Final() bool {
	return d.Status == DispatchCompleted || d.Status == DispatchFailed
}
