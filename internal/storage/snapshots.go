package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

// SaveSnapshot replaces the cached snapshot for userID.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, userID string, snapshot model.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear previous snapshot: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (user_id, balance, fetched_at)
			VALUES (?, ?, ?)
		`, userID, snapshot.Balance.String(), snapshot.FetchedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO snapshot_transactions
				(user_id, position, id, type, amount, description, balance_after, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, txn := range snapshot.Transactions {
			var balanceAfter sql.NullString
			if txn.BalanceAfter != nil {
				balanceAfter = sql.NullString{String: txn.BalanceAfter.String(), Valid: true}
			}
			var createdAt sql.NullTime
			if !txn.CreatedAt.IsZero() {
				createdAt = sql.NullTime{Time: txn.CreatedAt.UTC(), Valid: true}
			}

			if _, err := stmt.ExecContext(ctx,
				userID, i, txn.ID, string(txn.Type), txn.Amount.String(),
				txn.Description, balanceAfter, createdAt,
			); err != nil {
				return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
			}
		}

		return nil
	})
}

// LoadSnapshot returns the cached snapshot for userID, or common.ErrNotFound.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context, userID string) (*model.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var (
		balance   string
		fetchedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT balance, fetched_at FROM snapshots WHERE user_id = ?
	`, userID).Scan(&balance, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached balance %q: %w", balance, err)
	}

	txns, err := s.loadSnapshotTransactions(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	return &model.Snapshot{
		Balance:      amount,
		FetchedAt:    fetchedAt,
		Transactions: txns,
	}, nil
}

func (s *SQLiteStorage) loadSnapshotTransactions(ctx context.Context, q queryable, userID string) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, type, amount, description, balance_after, created_at
		FROM snapshot_transactions
		WHERE user_id = ?
		ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var (
			txn          model.Transaction
			txnType      string
			amount       string
			description  sql.NullString
			balanceAfter sql.NullString
			createdAt    sql.NullTime
		)
		if err := rows.Scan(&txn.ID, &txnType, &amount, &description, &balanceAfter, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached transaction: %w", err)
		}

		txn.Type = model.TransactionType(txnType)
		txn.Description = description.String
		if txn.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount of %s: %w", txn.ID, err)
		}
		if balanceAfter.Valid {
			after, err := decimal.NewFromString(balanceAfter.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse balance after %s: %w", txn.ID, err)
			}
			txn.BalanceAfter = &after
		}
		if createdAt.Valid {
			txn.CreatedAt = createdAt.Time
		}

		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// ClearSnapshot drops the cached snapshot for userID. Clearing a missing
// snapshot is not an error.
func (s *SQLiteStorage) ClearSnapshot(ctx context.Context, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	// Rows in snapshot_transactions go with it via ON DELETE CASCADE.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}
