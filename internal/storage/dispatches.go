package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

const defaultDispatchLimit = 20

// SaveDispatch records a mobile-money push. Saving the same checkout id
// twice keeps the first record.
func (s *SQLiteStorage) SaveDispatch(ctx context.Context, dispatch *model.Dispatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDispatch(dispatch); err != nil {
		return err
	}

	status := dispatch.Status
	if status == "" {
		status = model.DispatchPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches (checkout_request_id, user_id, amount, phone, idempotency_key, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(checkout_request_id) DO NOTHING
	`, dispatch.CheckoutRequestID, dispatch.UserID, dispatch.Amount.String(),
		dispatch.Phone, dispatch.IdempotencyKey, status)
	if err != nil {
		return fmt.Errorf("failed to save dispatch: %w", err)
	}
	return nil
}

// UpdateDispatchStatus records the provider's latest status.
func (s *SQLiteStorage) UpdateDispatchStatus(ctx context.Context, checkoutRequestID, status string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(checkoutRequestID, "checkoutRequestID"); err != nil {
		return err
	}
	if err := validateString(status, "status"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE dispatches SET status = ? WHERE checkout_request_id = ?
	`, status, checkoutRequestID)
	if err != nil {
		return fmt.Errorf("failed to update dispatch: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("dispatch %s: %w", checkoutRequestID, common.ErrNotFound)
	}
	return nil
}

// GetDispatch returns one recorded push, or common.ErrNotFound.
func (s *SQLiteStorage) GetDispatch(ctx context.Context, checkoutRequestID string) (*model.Dispatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(checkoutRequestID, "checkoutRequestID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT checkout_request_id, user_id, amount, phone, idempotency_key, status, created_at, updated_at
		FROM dispatches
		WHERE checkout_request_id = ?
	`, checkoutRequestID)

	d, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDispatches returns the most recent pushes for userID, newest first.
func (s *SQLiteStorage) ListDispatches(ctx context.Context, userID string, limit int) ([]model.Dispatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultDispatchLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT checkout_request_id, user_id, amount, phone, idempotency_key, status, created_at, updated_at
		FROM dispatches
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dispatches []model.Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		dispatches = append(dispatches, *d)
	}
	return dispatches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispatch(row rowScanner) (*model.Dispatch, error) {
	var (
		d              model.Dispatch
		amount         string
		idempotencyKey sql.NullString
	)
	err := row.Scan(&d.CheckoutRequestID, &d.UserID, &amount, &d.Phone,
		&idempotencyKey, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan dispatch: %w", err)
	}

	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse dispatch amount: %w", err)
	}
	d.IdempotencyKey = idempotencyKey.String
	return &d, nil
}
