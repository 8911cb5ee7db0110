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

type ClaimRepo struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

func NewClaimRepo(pool *pgxpool.Pool, opTimeout time.Duration) *ClaimRepo {
	return &ClaimRepo{pool: pool, opTimeout: opTimeout}
}

const claimColumns = `id, policy_number, order_id, reference, incident_date, incident_time,
	location, description, police_report_filed, third_party_involved, witnesses_present,
	claimed_amount, documents, status, status_reason, created_at`

func scanClaim(row pgx.Row) (core.Claim, error) {
	var c core.Claim
	err := row.Scan(&c.ID, &c.PolicyNumber, &c.OrderID, &c.Reference,
		&c.Incident.Date, &c.Incident.Time, &c.Incident.Location, &c.Incident.Description,
		&c.Flags.PoliceReportFiled, &c.Flags.ThirdPartyInvolved, &c.Flags.WitnessesPresent,
		&c.ClaimedAmount, &c.Documents, &c.Status, &c.StatusReason, &c.CreatedAt)
	return c, err
}

// File adds to used_coverage in place and inserts the claim in one transaction.
func (repo *ClaimRepo) File(ctx context.Context, c core.Claim) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	if c.PolicyNumber == "" {
		return core.ErrPolicyNotFound
	}

	return withTx(ctx, repo.pool, func(tx pgx.Tx) error {
		var orderID string
		err := tx.QueryRow(ctx, `
			UPDATE orders SET used_coverage = used_coverage + $2, updated_at = $3
			WHERE policy_number = $1
			RETURNING id`,
			c.PolicyNumber, c.ClaimedAmount, c.CreatedAt).Scan(&orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return core.ErrPolicyNotFound
			}
			return fmt.Errorf("orders.incUsedCoverage: %w", err)
		}
		if c.OrderID == "" {
			c.OrderID = orderID
		}

		if err := reserveReference(ctx, tx, c.Reference, "claim"); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO claims (`+claimColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			c.ID, c.PolicyNumber, c.OrderID, c.Reference,
			c.Incident.Date, c.Incident.Time, c.Incident.Location, c.Incident.Description,
			c.Flags.PoliceReportFiled, c.Flags.ThirdPartyInvolved, c.Flags.WitnessesPresent,
			c.ClaimedAmount, nonNil(c.Documents), c.Status, c.StatusReason, c.CreatedAt)
		if err != nil {
			if violatedConstraint(err) != "" {
				return core.ErrDuplicateReference
			}
			return fmt.Errorf("claims.insert: %w", err)
		}
		return nil
	})
}

func (repo *ClaimRepo) Get(ctx context.Context, id string) (core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	c, err := scanClaim(repo.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Claim{}, core.ErrClaimNotFound
		}
		return core.Claim{}, fmt.Errorf("claims.get: %w", err)
	}
	return c, nil
}

func (repo *ClaimRepo) ListByPolicyNumbers(ctx context.Context, numbers []string) ([]core.Claim, error) {
	if len(numbers) == 0 {
		return []core.Claim{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	rows, err := repo.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE policy_number = ANY($1) ORDER BY created_at DESC`, numbers)
	if err != nil {
		return nil, fmt.Errorf("claims.list: %w", err)
	}
	defer rows.Close()

	claims := []core.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("claims.scan: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claims.rows: %w", err)
	}
	return claims, nil
}
