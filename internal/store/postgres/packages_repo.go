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

type PackageRepo struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

func NewPackageRepo(pool *pgxpool.Pool, opTimeout time.Duration) *PackageRepo {
	return &PackageRepo{pool: pool, opTimeout: opTimeout}
}

const packageColumns = `id, slug, name, category_id, unit_size, rate_per_unit, min_coverage,
	vat_rate_percent, discount_rate_percent, partner_code, insurance_company_code, channel`

func scanPackage(row pgx.Row) (core.Package, error) {
	var p core.Package
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.CategoryID, &p.UnitSize, &p.RatePerUnit,
		&p.MinCoverage, &p.VATRatePercent, &p.DiscountRatePercent, &p.PartnerCode,
		&p.InsuranceCompanyCode, &p.Channel)
	return p, err
}

func (repo *PackageRepo) List(ctx context.Context) ([]core.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	rows, err := repo.pool.Query(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("packages.list: %w", err)
	}
	defer rows.Close()

	out := []core.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("packages.scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("packages.rows: %w", err)
	}
	return out, nil
}

func (repo *PackageRepo) Get(ctx context.Context, id string) (core.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	p, err := scanPackage(repo.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Package{}, core.ErrPackageNotFound
		}
		return core.Package{}, fmt.Errorf("packages.get: %w", err)
	}
	return p, nil
}

// UpsertBySlug keeps the id of an existing package with the same slug.
func (repo *PackageRepo) UpsertBySlug(ctx context.Context, p core.Package) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	if p.Channel == "" {
		p.Channel = core.ChannelB2C
	}
	_, err := repo.pool.Exec(ctx, `
		INSERT INTO packages (`+packageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			category_id = EXCLUDED.category_id,
			unit_size = EXCLUDED.unit_size,
			rate_per_unit = EXCLUDED.rate_per_unit,
			min_coverage = EXCLUDED.min_coverage,
			vat_rate_percent = EXCLUDED.vat_rate_percent,
			discount_rate_percent = EXCLUDED.discount_rate_percent,
			partner_code = EXCLUDED.partner_code,
			insurance_company_code = EXCLUDED.insurance_company_code,
			channel = EXCLUDED.channel`,
		p.ID, p.Slug, p.Name, p.CategoryID, p.UnitSize, p.RatePerUnit, p.MinCoverage,
		p.VATRatePercent, p.DiscountRatePercent, p.PartnerCode, p.InsuranceCompanyCode, p.Channel)
	if err != nil {
		return fmt.Errorf("packages.upsert: %w", err)
	}
	return nil
}
