package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "200000"), alice)
	require.NoError(t, err)

	o, err := e.orders.Create(ctx, q.ID, alice)
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-\d{8}-[A-Z0-9]{6}$`, o.Reference)
	assert.Equal(t, core.OrderStatusPending, o.Status)
	assert.Equal(t, q.Contact, o.Contact)
	assert.Equal(t, q.Address, o.Address)
	assert.Equal(t, "acme", o.Brand)
	assert.Empty(t, o.PolicyNumber)
	assert.Empty(t, o.GatewayToken)
	assert.True(t, o.UsedCoverage.IsZero())
	assert.True(t, o.Discount.Equal(d("50")))
	assert.True(t, o.VAT.Equal(d("150")))
	assert.True(t, o.Net.Equal(d("800")))
	assert.True(t, o.FinalPremium.Equal(d("1100")))

	stored, err := e.quotations.Get(ctx, q.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, core.QuotationStatusOrdered, stored.Status)

	assert.Zero(t, e.notifier.issuedCount())
}

func TestOrderCreateTwiceFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)
	_, err = e.orders.Create(ctx, q.ID, alice)
	require.NoError(t, err)

	_, err = e.orders.Create(ctx, q.ID, alice)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestOrderCreateConcurrentSingleWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.orders.Create(ctx, q.ID, alice); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	orders, err := e.orders.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestOrderCreateForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)

	_, err = e.orders.Create(ctx, q.ID, bob)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = e.orders.Create(ctx, "missing", alice)
	assert.ErrorIs(t, err, core.ErrQuotationNotFound)
}

func TestOrderGetAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)
	o, err := e.orders.Create(ctx, q.ID, alice)
	require.NoError(t, err)

	got, err := e.orders.Get(ctx, o.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = e.orders.Get(ctx, o.ID, bob)
	assert.ErrorIs(t, err, core.ErrForbidden)

	list, err := e.orders.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.orders.List(ctx, "")
	assert.ErrorIs(t, err, core.ErrAuthenticationRequired)
}

func TestOrderBeginPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)
	o, err := e.orders.Create(ctx, q.ID, alice)
	require.NoError(t, err)

	first, err := e.orders.BeginPayment(ctx, o.ID, "payfast", alice)
	require.NoError(t, err)
	require.NotEmpty(t, first.GatewayToken)
	assert.Equal(t, "payfast", first.GatewayName)

	again, err := e.orders.BeginPayment(ctx, o.ID, "payfast", alice)
	require.NoError(t, err)
	assert.Equal(t, first.GatewayToken, again.GatewayToken)

	_, err = e.orders.BeginPayment(ctx, o.ID, "payfast", bob)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestOrderBeginPaymentClosed(t *testing.T) {
	e := newEnv(t)
	o := e.paidOrder(t, alice, "20000")

	_, err := e.orders.BeginPayment(context.Background(), o.ID, "payfast", alice)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}
