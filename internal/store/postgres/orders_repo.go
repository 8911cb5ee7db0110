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

type OrderRepo struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

func NewOrderRepo(pool *pgxpool.Pool, opTimeout time.Duration) *OrderRepo {
	return &OrderRepo{pool: pool, opTimeout: opTimeout}
}

// gateway_token and policy_number are NULL until set so their UNIQUE
// constraints ignore unassigned orders.
const orderColumns = `id, quotation_id, reference, package_id, owner, brand, contact, address,
	coverage_amount, premium, discount, vat, net, final_premium,
	COALESCE(gateway_token, ''), gateway_name, gateway_status, gateway_response, payment_reference,
	COALESCE(policy_number, ''), policy_start_date, policy_end_date,
	used_coverage, status, created_at, updated_at`

func scanOrder(row pgx.Row) (core.Order, error) {
	var o core.Order
	err := row.Scan(&o.ID, &o.QuotationID, &o.Reference, &o.PackageID, &o.Owner, &o.Brand,
		&o.Contact, &o.Address, &o.CoverageAmount, &o.Premium,
		&o.Discount, &o.VAT, &o.Net, &o.FinalPremium,
		&o.GatewayToken, &o.GatewayName, &o.GatewayStatus, &o.GatewayResponse, &o.PaymentReference,
		&o.PolicyNumber, &o.PolicyStartDate, &o.PolicyEndDate,
		&o.UsedCoverage, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (repo *OrderRepo) CreateFromQuotation(ctx context.Context, o core.Order) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	return withTx(ctx, repo.pool, func(tx pgx.Tx) error {
		if err := markQuotationOrdered(ctx, tx, o.QuotationID, o.CreatedAt); err != nil {
			return err
		}
		if err := reserveReference(ctx, tx, o.Reference, "order"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, quotation_id, reference, package_id, owner, brand, contact, address,
				coverage_amount, premium, discount, vat, net, final_premium,
				gateway_token, gateway_name, used_coverage, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				NULLIF($15, ''), $16, $17, $18, $19, $20)`,
			o.ID, o.QuotationID, o.Reference, o.PackageID, o.Owner, o.Brand, o.Contact, o.Address,
			o.CoverageAmount, o.Premium, o.Discount, o.VAT, o.Net, o.FinalPremium,
			o.GatewayToken, o.GatewayName, o.UsedCoverage, o.Status, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			switch violatedConstraint(err) {
			case "":
				return fmt.Errorf("orders.insert: %w", err)
			case conOrdersQuotation:
				return core.ErrQuotationOrdered
			case conOrdersGatewayToken:
				return core.ErrDuplicateGatewayToken
			default:
				return core.ErrDuplicateReference
			}
		}
		return nil
	})
}

func (repo *OrderRepo) Get(ctx context.Context, id string) (core.Order, error) {
	return repo.findOne(ctx, "orders.get", `id = $1`, id)
}

func (repo *OrderRepo) GetByGatewayToken(ctx context.Context, token string) (core.Order, error) {
	if token == "" {
		return core.Order{}, core.ErrOrderNotFound
	}
	return repo.findOne(ctx, "orders.getByToken", `gateway_token = $1`, token)
}

func (repo *OrderRepo) GetByPolicyNumber(ctx context.Context, number string) (core.Order, error) {
	if number == "" {
		return core.Order{}, core.ErrOrderNotFound
	}
	return repo.findOne(ctx, "orders.getByPolicy", `policy_number = $1`, number)
}

func (repo *OrderRepo) findOne(ctx context.Context, op, where string, arg any) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	o, err := scanOrder(repo.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Order{}, core.ErrOrderNotFound
		}
		return core.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (repo *OrderRepo) ListByOwner(ctx context.Context, owner string) ([]core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	rows, err := repo.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE owner = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("orders.list: %w", err)
	}
	defer rows.Close()

	orders := []core.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("orders.scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders.rows: %w", err)
	}
	return orders, nil
}

func (repo *OrderRepo) AssignGatewayToken(ctx context.Context, id, token, gatewayName string, at time.Time) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	o, err := scanOrder(repo.pool.QueryRow(ctx, `
		UPDATE orders SET gateway_token = $2, gateway_name = $3, updated_at = $4
		WHERE id = $1 AND gateway_token IS NULL
		RETURNING `+orderColumns,
		id, token, gatewayName, at))
	switch {
	case err == nil:
		return o, nil
	case errors.Is(err, pgx.ErrNoRows):
		// already assigned, or no such order
		return repo.Get(ctx, id)
	case violatedConstraint(err) == conOrdersGatewayToken:
		return core.Order{}, core.ErrDuplicateGatewayToken
	default:
		return core.Order{}, fmt.Errorf("orders.assignToken: %w", err)
	}
}

// ApplyGatewayResult locks the order row so concurrent callbacks for the same
// token are applied one after the other and only the first issues a policy.
func (repo *OrderRepo) ApplyGatewayResult(ctx context.Context, token string, res core.GatewayResult, issue core.PolicyIssuance) (core.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	if token == "" {
		return core.Order{}, false, core.ErrOrderNotFound
	}

	var (
		out    core.Order
		issued bool
	)
	err := withTx(ctx, repo.pool, func(tx pgx.Tx) error {
		// 1) Lock the order
		cur, err := scanOrder(tx.QueryRow(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE gateway_token = $1 FOR UPDATE`, token))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return core.ErrOrderNotFound
			}
			return fmt.Errorf("orders.lock: %w", err)
		}

		// 2) Decide status and issuance
		status := core.ResolveOrderStatus(cur.Status, res.Complete)
		issued = res.Complete && !cur.HasPolicy() && issue.PolicyNumber != ""
		var (
			number     *string
			start, end *time.Time
		)
		if issued {
			number, start, end = &issue.PolicyNumber, &issue.StartDate, &issue.EndDate
		}

		// 3) Write; COALESCE keeps an existing policy untouched
		out, err = scanOrder(tx.QueryRow(ctx, `
			UPDATE orders SET
				gateway_name = $2,
				gateway_status = $3,
				gateway_response = $4,
				payment_reference = $5,
				status = $6,
				updated_at = $7,
				policy_number = COALESCE(policy_number, $8),
				policy_start_date = COALESCE(policy_start_date, $9),
				policy_end_date = COALESCE(policy_end_date, $10)
			WHERE id = $1
			RETURNING `+orderColumns,
			cur.ID, res.GatewayName, res.GatewayStatus, res.GatewayResponse, res.PaymentReference,
			status, res.At, number, start, end))
		if err != nil {
			if violatedConstraint(err) == conOrdersPolicyNumber {
				return core.ErrDuplicatePolicyNumber
			}
			return fmt.Errorf("orders.applyGatewayResult: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Order{}, false, err
	}
	return out, issued, nil
}
