package transporthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	transporthttp "github.com/MrKriegler/insurance-lifecycle/internal/http"
	"github.com/MrKriegler/insurance-lifecycle/internal/http/handlers"
	"github.com/MrKriegler/insurance-lifecycle/internal/http/health"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/metrics"
	"github.com/MrKriegler/insurance-lifecycle/internal/store/memory"
)

type api struct {
	t       *testing.T
	handler http.Handler
	auth    *middleware.Authenticator
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	refs := ids.NewGenerator(ids.DefaultCategoryCode)

	require.NoError(t, st.Packages().UpsertBySlug(context.Background(), core.Package{
		ID: "pkg-travel", Slug: "travel-basic", Name: "Travel Basic",
		UnitSize: decimal.NewFromInt(50000), RatePerUnit: decimal.NewFromInt(250),
		MinCoverage: decimal.NewFromInt(10000), VATRatePercent: decimal.NewFromInt(15),
		DiscountRatePercent: decimal.NewFromInt(5), PartnerCode: "AB", InsuranceCompanyCode: "XY",
		Channel: core.ChannelB2C,
	}))

	auth, err := middleware.NewAuthenticator("test-secret", "")
	require.NoError(t, err)
	m := metrics.New()

	quotations := core.NewQuotationService(st.Packages(), st.Quotations(), refs, log)
	orders := core.NewOrderService(st.Orders(), st.Quotations(), st.Packages(), refs, log)
	reconciler := core.NewPaymentReconciler(st.Orders(), st.Packages(), refs, core.NopNotifier{}, log)
	claims := core.NewClaimService(st.Claims(), st.Orders(), refs, core.NopNotifier{}, log)

	h := transporthttp.NewRouter(transporthttp.Deps{
		Log: log,
		Mounts: []handlers.Mountable{
			handlers.NewPackageHandler(st.Packages(), log),
			handlers.NewQuotationHandler(quotations, orders, handlers.BrandResolver{Default: "default"}, m, log),
			handlers.NewOrderHandler(orders, "paygate", log),
			handlers.NewPaymentHandler(reconciler, m, log),
			handlers.NewClaimHandler(claims, m, log),
		},
		Auth:    auth,
		Health:  health.New(log, st, time.Second),
		Metrics: m,
	})
	return &api{t: t, handler: h, auth: auth}
}

func (a *api) do(method, path, user string, body any, header ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		tok, err := a.auth.IssueToken(user, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func quotationBody() map[string]any {
	return map[string]any{
		"package_id":      "pkg-travel",
		"coverage_amount": "75000",
		"contact":         map[string]any{"name": "Alice Doe", "email": "alice@example.com"},
		"address":         map[string]any{"city": "Cape Town", "country": "ZA"},
	}
}

func TestPackages(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/v1/packages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Package](t, rec), 1)

	rec = a.do(http.MethodGet, "/api/v1/packages/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousQuotationShowsPriceWith401(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/quotations", "", quotationBody())
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decode[struct {
		Status    int            `json:"status"`
		Quotation core.Quotation `json:"quotation"`
	}](t, rec)
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	assert.True(t, decimal.NewFromInt(500).Equal(body.Quotation.Premium))
	assert.Empty(t, body.Quotation.ID)
}

func TestQuotationValidationListsFields(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/quotations", "alice", map[string]any{"package_id": "pkg-travel"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		Errors []core.FieldError `json:"errors"`
	}](t, rec)
	var fields []string
	for _, f := range body.Errors {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"coverage_amount", "contact.name", "contact.email"}, fields)
}

func TestPurchaseToClaimOverHTTP(t *testing.T) {
	a := newAPI(t)

	// 1) Quotation under the header brand
	rec := a.do(http.MethodPost, "/api/v1/quotations", "alice", quotationBody(), handlers.BrandHeader, "acme")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := decode[core.Quotation](t, rec)
	assert.Equal(t, "acme", q.Brand)

	rec = a.do(http.MethodGet, "/api/v1/quotations/"+q.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), q.Reference)

	// 2) Order, twice
	rec = a.do(http.MethodPost, "/api/v1/quotations/"+q.ID+"/order", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[core.Order](t, rec)
	assert.True(t, decimal.RequireFromString("550").Equal(o.FinalPremium))

	rec = a.do(http.MethodPost, "/api/v1/quotations/"+q.ID+"/order", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 3) Payment token
	rec = a.do(http.MethodPost, "/api/v1/orders/"+o.ID+"/payment", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o = decode[core.Order](t, rec)
	require.NotEmpty(t, o.GatewayToken)
	assert.Equal(t, "paygate", o.GatewayName)

	// 4) Form-encoded machine callback
	form := url.Values{
		"correlation_token": {o.GatewayToken},
		"gateway_status":    {"Complete"},
		"gateway_response":  {"https://pay.example.com/return?paymentId=PAY-77"},
		"machine":           {"true"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	cb := httptest.NewRecorder()
	a.handler.ServeHTTP(cb, req)
	require.Equal(t, http.StatusOK, cb.Code, cb.Body.String())
	summary := decode[core.PaymentSummary](t, cb)
	assert.Equal(t, core.OrderStatusCompleted, summary.Status)
	assert.Equal(t, "PAY-77", summary.PaymentReference)
	require.NotEmpty(t, summary.PolicyNumber)

	// 5) Replayed JSON callback, not machine: order view, same policy
	rec = a.do(http.MethodPost, "/api/v1/payments/callback", "", map[string]any{
		"correlation_token": o.GatewayToken, "gateway_status": "Complete",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, summary.PolicyNumber, decode[core.Order](t, rec).PolicyNumber)

	// 6) Claim
	claim := map[string]any{
		"incident":       map[string]any{"date": "2026-02-01", "time": "14:30", "location": "Lisbon", "description": "Luggage stolen"},
		"flags":          map[string]any{"police_report_filed": true},
		"claimed_amount": "1200",
	}
	rec = a.do(http.MethodPost, "/api/v1/policies/"+summary.PolicyNumber+"/claims", "bob", claim)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/policies/"+summary.PolicyNumber+"/claims", "alice", claim)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[core.Claim](t, rec)
	assert.Equal(t, core.ClaimStatusPending, c.Status)

	rec = a.do(http.MethodGet, "/api/v1/claims", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Claim](t, rec), 1)

	rec = a.do(http.MethodGet, "/api/v1/orders/"+o.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decimal.NewFromInt(1200).Equal(decode[core.Order](t, rec).UsedCoverage))

	// counters surface on /metrics
	rec = a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `insurance_lifecycle_events_total{event="policy.issued"} 1`)
}

func TestCallbackErrors(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/payments/callback", "", map[string]any{
		"correlation_token": "unknown", "gateway_status": "Complete",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	bad := httptest.NewRecorder()
	a.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestAnonymousListsRequireAuthentication(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/api/v1/orders", "/api/v1/claims"} {
		rec := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/readyz", "", nil).Code)
}
