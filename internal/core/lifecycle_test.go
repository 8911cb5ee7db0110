package core_test

import (
	"context"
	"testing"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "200000"), alice)
	require.NoError(t, err)
	assert.True(t, q.Premium.Equal(d("1000")))

	o, err := e.orders.Create(ctx, q.ID, alice)
	require.NoError(t, err)
	assert.True(t, o.Discount.Equal(d("50")))
	assert.True(t, o.VAT.Equal(d("150")))
	assert.True(t, o.Net.Equal(d("800")))
	assert.True(t, o.FinalPremium.Equal(d("1100")))

	o, err = e.orders.BeginPayment(ctx, o.ID, "payfast", alice)
	require.NoError(t, err)

	res, err := e.reconciler.Reconcile(ctx, core.GatewayCallback{
		CorrelationToken: o.GatewayToken,
		GatewayStatus:    "Complete",
		GatewayName:      "payfast",
	})
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusCompleted, res.Order.Status)
	assert.Regexp(t, policyNumberPattern, res.Order.PolicyNumber)

	_, err = e.claims.File(ctx, res.Order.PolicyNumber, claimInput("5000"), alice)
	require.NoError(t, err)

	final, err := e.orders.Get(ctx, o.ID, alice)
	require.NoError(t, err)
	assert.True(t, final.UsedCoverage.Equal(d("5000")))
	assert.Equal(t, 1, e.notifier.issuedCount())
	assert.Equal(t, 1, e.notifier.filedCount())
}
