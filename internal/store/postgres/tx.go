package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// withTx runs fn in a transaction, rolling back when fn fails.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("postgres: rollback tx: %w (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// violatedConstraint names the unique constraint err tripped, or "".
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

// reserveReference claims a code in the shared reference_codes table so that
// quotation, order and claim codes never collide with one another.
func reserveReference(ctx context.Context, q querier, reference, kind string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO reference_codes (reference, kind) VALUES ($1, $2)`,
		reference, kind)
	if err != nil {
		if violatedConstraint(err) == conReferenceCodesPK {
			return core.ErrDuplicateReference
		}
		return fmt.Errorf("reference_codes.insert: %w", err)
	}
	return nil
}
