//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/postgres"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newDB(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("lifecycle"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(dsn))

	db, err := postgres.NewPool(ctx, postgres.Config{DSN: dsn, OpTimeout: 5 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func seed(t *testing.T, db *postgres.DB) (core.Quotation, core.Order) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, db.Packages().UpsertBySlug(ctx, core.Package{
		ID: "pkg-1", Slug: "travel", Name: "Travel",
		UnitSize: decimal.NewFromInt(50000), RatePerUnit: decimal.NewFromInt(250),
		VATRatePercent: decimal.NewFromInt(15), Channel: core.ChannelB2C,
	}))

	q := core.Quotation{
		ID: "q-1", PackageID: "pkg-1", Owner: "alice", Reference: "QUO-20260101-AAAAAA",
		Contact:        core.Contact{Name: "Alice", Email: "alice@example.com"},
		CoverageAmount: decimal.NewFromInt(75000), Premium: decimal.NewFromInt(500),
		Status:         core.QuotationStatusPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Quotations().Create(ctx, q))

	o := core.Order{
		ID: "o-1", QuotationID: q.ID, Reference: "ORD-20260101-AAAAAA", PackageID: "pkg-1",
		Owner: "alice", Contact: q.Contact, CoverageAmount: q.CoverageAmount, Premium: q.Premium,
		Charges: core.ComputeCharges(q.Premium, decimal.Zero, decimal.NewFromInt(15)),
		Status:  core.OrderStatusPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Orders().CreateFromQuotation(ctx, o))
	return q, o
}

func TestOrderLifecycle(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	q, o := seed(t, db)

	got, err := db.Quotations().Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, core.QuotationStatusOrdered, got.Status)

	dup := o
	dup.ID, dup.Reference = "o-2", "ORD-20260101-BBBBBB"
	assert.ErrorIs(t, db.Orders().CreateFromQuotation(ctx, dup), core.ErrQuotationOrdered)

	withToken, err := db.Orders().AssignGatewayToken(ctx, o.ID, "tok-1", "paygate", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", withToken.GatewayToken)

	again, err := db.Orders().AssignGatewayToken(ctx, o.ID, "tok-2", "paygate", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", again.GatewayToken)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issue := core.PolicyIssuance{PolicyNumber: "ABXYTI1260000000001", StartDate: start, EndDate: start.AddDate(1, 0, 0)}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := core.GatewayResult{GatewayName: "paygate", GatewayStatus: "Complete", Complete: true, At: time.Now()}
			_, ok, err := db.Orders().ApplyGatewayResult(ctx, "tok-1", res, issue)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, issued)

	declined, ok, err := db.Orders().ApplyGatewayResult(ctx, "tok-1",
		core.GatewayResult{GatewayName: "paygate", GatewayStatus: "Declined", At: time.Now()}, core.PolicyIssuance{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, core.OrderStatusCompleted, declined.Status)
	assert.Equal(t, issue.PolicyNumber, declined.PolicyNumber)
}

func TestClaimFilingAccumulatesCoverage(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	_, o := seed(t, db)

	_, err := db.Orders().AssignGatewayToken(ctx, o.ID, "tok-1", "paygate", time.Now())
	require.NoError(t, err)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _, err = db.Orders().ApplyGatewayResult(ctx, "tok-1",
		core.GatewayResult{GatewayStatus: "Complete", Complete: true, At: time.Now()},
		core.PolicyIssuance{PolicyNumber: "POL-1", StartDate: start, EndDate: start.AddDate(1, 0, 0)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := core.Claim{
				ID: "c-" + string(rune('a'+i)), PolicyNumber: "POL-1", OrderID: o.ID,
				Reference:     "CLM-20260101-00000" + string(rune('A'+i)),
				Incident:      core.Incident{Date: "2026-02-01", Time: "10:00", Location: "Cape Town", Description: "lost bag"},
				ClaimedAmount: decimal.NewFromInt(100), Status: core.ClaimStatusPending, CreatedAt: time.Now(),
			}
			assert.NoError(t, db.Claims().File(ctx, c))
		}(i)
	}
	wg.Wait()

	got, err := db.Orders().GetByPolicyNumber(ctx, "POL-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(got.UsedCoverage))

	claims, err := db.Claims().ListByPolicyNumbers(ctx, []string{"POL-1"})
	require.NoError(t, err)
	assert.Len(t, claims, 5)

	err = db.Claims().File(ctx, core.Claim{ID: "c-x", PolicyNumber: "POL-404", Reference: "CLM-X", ClaimedAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrPolicyNotFound)
}
