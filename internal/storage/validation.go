// Package storage provides the local SQLite cache for the till client.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/till/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidDispatch = errors.New("invalid dispatch")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateSnapshot(s model.Snapshot) error {
	if s.FetchedAt.IsZero() {
		return fmt.Errorf("%w: fetched_at is required", ErrInvalidSnapshot)
	}
	for i, txn := range s.Transactions {
		if strings.TrimSpace(txn.ID) == "" {
			return fmt.Errorf("%w: transaction at index %d has no id", ErrInvalidSnapshot, i)
		}
		if txn.Type != model.TransactionDeposit && txn.Type != model.TransactionWithdrawal {
			return fmt.Errorf("%w: transaction %s has type %q", ErrInvalidSnapshot, txn.ID, txn.Type)
		}
	}
	return nil
}

func validateDispatch(d *model.Dispatch) error {
	if d == nil {
		return fmt.Errorf("%w: dispatch is nil", ErrInvalidDispatch)
	}
	if strings.TrimSpace(d.CheckoutRequestID) == "" {
		return fmt.Errorf("%w: checkout request id is required", ErrInvalidDispatch)
	}
	if strings.TrimSpace(d.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidDispatch)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidDispatch)
	}
	return nil
}
