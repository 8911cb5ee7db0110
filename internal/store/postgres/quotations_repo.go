package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuotationRepo struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

func NewQuotationRepo(pool *pgxpool.Pool, opTimeout time.Duration) *QuotationRepo {
	return &QuotationRepo{pool: pool, opTimeout: opTimeout}
}

const quotationColumns = `id, package_id, owner, brand, reference, contact, address,
	coverage_amount, premium, documents, status, created_at, updated_at`

func scanQuotation(row pgx.Row) (core.Quotation, error) {
	var q core.Quotation
	err := row.Scan(&q.ID, &q.PackageID, &q.Owner, &q.Brand, &q.Reference, &q.Contact,
		&q.Address, &q.CoverageAmount, &q.Premium, &q.Documents, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (repo *QuotationRepo) Create(ctx context.Context, q core.Quotation) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	return withTx(ctx, repo.pool, func(tx pgx.Tx) error {
		if err := reserveReference(ctx, tx, q.Reference, "quotation"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO quotations (`+quotationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			q.ID, q.PackageID, q.Owner, q.Brand, q.Reference, q.Contact, q.Address,
			q.CoverageAmount, q.Premium, nonNil(q.Documents), q.Status, q.CreatedAt, q.UpdatedAt)
		if err != nil {
			if violatedConstraint(err) != "" {
				return core.ErrDuplicateReference
			}
			return fmt.Errorf("quotations.insert: %w", err)
		}
		return nil
	})
}

func (repo *QuotationRepo) Get(ctx context.Context, id string) (core.Quotation, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	q, err := scanQuotation(repo.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Quotation{}, core.ErrQuotationNotFound
		}
		return core.Quotation{}, fmt.Errorf("quotations.get: %w", err)
	}
	return q, nil
}

func (repo *QuotationRepo) MarkOrdered(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	return markQuotationOrdered(ctx, repo.pool, id, at)
}

// markQuotationOrdered flips a pending quotation. Zero affected rows is told
// apart into not found and already ordered with a second lookup.
func markQuotationOrdered(ctx context.Context, q querier, id string, at time.Time) error {
	tag, err := q.Exec(ctx,
		`UPDATE quotations SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		core.QuotationStatusOrdered, at, id, core.QuotationStatusPending)
	if err != nil {
		return fmt.Errorf("quotations.markOrdered: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quotations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("quotations.exists: %w", err)
	}
	if !exists {
		return core.ErrQuotationNotFound
	}
	return core.ErrQuotationOrdered
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
