package core_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/memory"
	"github.com/stretchr/testify/require"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingNotifier records every event it receives.
type countingNotifier struct {
	mu     sync.Mutex
	issued []core.PolicyIssuedEvent
	filed  []core.ClaimFiledEvent
}

func (n *countingNotifier) NotifyPolicyIssued(_ context.Context, ev core.PolicyIssuedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.issued = append(n.issued, ev)
}

func (n *countingNotifier) NotifyClaimFiled(_ context.Context, ev core.ClaimFiledEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.filed = append(n.filed, ev)
}

func (n *countingNotifier) issuedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.issued)
}

func (n *countingNotifier) filedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.filed)
}

// fakeRefs is a ReferenceGenerator with overridable behaviour.
type fakeRefs struct {
	ReferenceFn    func(prefix string) string
	PolicyNumberFn func(partner, company string, b2b bool) string
	GatewayTokenFn func() string
}

func (f *fakeRefs) Reference(prefix string) string { return f.ReferenceFn(prefix) }
func (f *fakeRefs) PolicyNumber(partner, company string, b2b bool) string {
	return f.PolicyNumberFn(partner, company, b2b)
}
func (f *fakeRefs) GatewayToken() string { return f.GatewayTokenFn() }

type env struct {
	store      *memory.Store
	notifier   *countingNotifier
	quotations core.QuotationService
	orders     core.OrderService
	reconciler core.PaymentReconciler
	claims     core.ClaimService
	pkg        core.Package
}

func newEnv(t *testing.T) *env {
	return newEnvWithRefs(t, ids.NewGenerator("TI"))
}

func newEnvWithRefs(t *testing.T, refs core.ReferenceGenerator) *env {
	t.Helper()
	st := memory.New()
	n := &countingNotifier{}
	log := discardLogger()

	pkg := core.Package{
		ID:                   "pkg-travel",
		Slug:                 "travel-basic",
		Name:                 "Travel Basic",
		CategoryID:           "travel",
		UnitSize:             d("50000"),
		RatePerUnit:          d("250"),
		MinCoverage:          d("10000"),
		VATRatePercent:       d("15"),
		DiscountRatePercent:  d("5"),
		PartnerCode:          "AB",
		InsuranceCompanyCode: "XY",
		Channel:              core.ChannelB2C,
	}
	require.NoError(t, st.Packages().UpsertBySlug(context.Background(), pkg))

	return &env{
		store:      st,
		notifier:   n,
		quotations: core.NewQuotationService(st.Packages(), st.Quotations(), refs, log),
		orders:     core.NewOrderService(st.Orders(), st.Quotations(), st.Packages(), refs, log),
		reconciler: core.NewPaymentReconciler(st.Orders(), st.Packages(), refs, n, log),
		claims:     core.NewClaimService(st.Claims(), st.Orders(), refs, n, log),
		pkg:        pkg,
	}
}

func quotationInput(pkgID, coverage string) core.QuotationInput {
	return core.QuotationInput{
		PackageID:      pkgID,
		Brand:          "acme",
		Contact:        core.Contact{Name: "Alice Doe", Email: "alice@example.com", Phone: "+27110000000"},
		Address:        core.Address{Line1: "1 Main Rd", City: "Cape Town", Country: "ZA"},
		CoverageAmount: d(coverage),
		Documents:      []string{"docs/id.pdf"},
	}
}

func claimInput(amount string) core.ClaimInput {
	return core.ClaimInput{
		Incident: core.Incident{
			Date:        "2025-02-01",
			Time:        "14:30",
			Location:    "Lisbon airport",
			Description: "Luggage lost in transit",
		},
		Flags:         core.ClaimFlags{PoliceReportFiled: true},
		ClaimedAmount: d(amount),
	}
}

// paidOrder walks a quotation through ordering and a completed payment.
func (e *env) paidOrder(t *testing.T, owner, coverage string) core.Order {
	t.Helper()
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, coverage), owner)
	require.NoError(t, err)
	o, err := e.orders.Create(ctx, q.ID, owner)
	require.NoError(t, err)
	o, err = e.orders.BeginPayment(ctx, o.ID, "payfast", owner)
	require.NoError(t, err)

	res, err := e.reconciler.Reconcile(ctx, core.GatewayCallback{
		CorrelationToken: o.GatewayToken,
		GatewayStatus:    core.GatewayStatusComplete,
		GatewayName:      "payfast",
	})
	require.NoError(t, err)
	require.True(t, res.Issued)
	return res.Order
}
