package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

// createdAtLayouts are the timestamp shapes the API has been seen to emit.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
}

// flexibleID accepts both string and numeric ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		raw = ""
	}
	*f = flexibleID(raw)
	return nil
}

type transactionDTO struct {
	BalanceAfter decimal.NullDecimal `json:"balance_after"`
	ID           flexibleID          `json:"id"`
	Type         string              `json:"type"`
	Description  string              `json:"description"`
	CreatedAt    string              `json:"created_at"`
	Amount       decimal.Decimal     `json:"amount"`
}

func (d transactionDTO) toModel() (model.Transaction, error) {
	tx := model.Transaction{
		ID:          string(d.ID),
		Type:        model.TransactionType(strings.ToLower(d.Type)),
		Description: d.Description,
		Amount:      d.Amount,
	}
	if d.BalanceAfter.Valid {
		after := d.BalanceAfter.Decimal
		tx.BalanceAfter = &after
	}

	if d.CreatedAt != "" {
		created, err := parseTimestamp(d.CreatedAt)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		tx.CreatedAt = created
	}

	return tx, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toTransactions(dtos []transactionDTO) ([]model.Transaction, error) {
	txs := make([]model.Transaction, 0, len(dtos))
	for _, d := range dtos {
		tx, err := d.toModel()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GetBalance fetches the authoritative balance.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Balance decimal.NullDecimal `json:"balance"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "account/balance", op: "get balance", out: &out}); err != nil {
		return decimal.Zero, err
	}
	if !out.Balance.Valid {
		return decimal.Zero, &TransportError{Op: "get balance", Err: fmt.Errorf("response has no balance")}
	}
	return out.Balance.Decimal, nil
}

// GetTransactions fetches the transaction history, newest first.
func (c *Client) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	return c.history(ctx, "account/transactions", "transactions", "get transactions")
}

// WithdrawalHistory fetches withdrawals only.
func (c *Client) WithdrawalHistory(ctx context.Context) ([]model.Transaction, error) {
	return c.history(ctx, "withdraw/history", "withdrawals", "get withdrawal history")
}

// DepositHistory fetches deposits only.
func (c *Client) DepositHistory(ctx context.Context) ([]model.Transaction, error) {
	return c.history(ctx, "deposit/history", "deposits", "get deposit history")
}

func (c *Client) history(ctx context.Context, path, field, op string) ([]model.Transaction, error) {
	var out map[string]json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: path, op: op, out: &out}); err != nil {
		return nil, err
	}

	raw, ok := out[field]
	if !ok {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("response has no %s", field)}
	}

	var dtos []transactionDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to decode %s: %w", field, err)}
	}

	txs, err := toTransactions(dtos)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return txs, nil
}
