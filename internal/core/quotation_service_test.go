package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotationSubmit(t *testing.T) {
	e := newEnv(t)

	q, err := e.quotations.Submit(context.Background(), quotationInput(e.pkg.ID, "200000"), alice)
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Regexp(t, `^QUO-\d{8}-[A-Z0-9]{6}$`, q.Reference)
	assert.Equal(t, core.QuotationStatusPending, q.Status)
	assert.Equal(t, alice, q.Owner)
	assert.Equal(t, "acme", q.Brand)
	assert.True(t, q.Premium.Equal(d("1000")), "premium %s", q.Premium)

	stored, err := e.quotations.Get(context.Background(), q.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, q.Reference, stored.Reference)
}

func TestQuotationSubmitAnonymous(t *testing.T) {
	e := newEnv(t)

	q, err := e.quotations.Submit(context.Background(), quotationInput(e.pkg.ID, "100001"), "")
	require.ErrorIs(t, err, core.ErrAuthenticationRequired)

	assert.Empty(t, q.ID)
	assert.Empty(t, q.Owner)
	assert.True(t, q.Premium.Equal(d("750")))
}

func TestQuotationSubmitValidation(t *testing.T) {
	e := newEnv(t)

	in := quotationInput("", "0")
	in.Contact = core.Contact{Email: "nope"}

	_, err := e.quotations.Submit(context.Background(), in, alice)
	require.ErrorIs(t, err, core.ErrValidation)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"package_id", "coverage_amount", "contact.name", "contact.email"}, fields)
}

func TestQuotationSubmitBelowMinimum(t *testing.T) {
	e := newEnv(t)

	_, err := e.quotations.Submit(context.Background(), quotationInput(e.pkg.ID, "9999"), alice)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestQuotationSubmitUnknownPackage(t *testing.T) {
	e := newEnv(t)

	_, err := e.quotations.Submit(context.Background(), quotationInput("missing", "20000"), alice)
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestQuotationReferenceCollisionRetry(t *testing.T) {
	calls := 0
	refs := &fakeRefs{
		ReferenceFn: func(prefix string) string {
			calls++
			if calls <= 2 {
				return prefix + "-20250101-AAAAAA"
			}
			return prefix + "-20250101-BBBBBB"
		},
		GatewayTokenFn: func() string { return "tok" },
	}
	e := newEnvWithRefs(t, refs)
	ctx := context.Background()

	first, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)
	assert.Equal(t, "QUO-20250101-AAAAAA", first.Reference)

	second, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)
	assert.Equal(t, "QUO-20250101-BBBBBB", second.Reference)
	assert.Equal(t, 3, calls)
}

func TestQuotationReferenceCollisionGivesUp(t *testing.T) {
	refs := &fakeRefs{
		ReferenceFn:    func(prefix string) string { return prefix + "-20250101-AAAAAA" },
		GatewayTokenFn: func() string { return "tok" },
	}
	e := newEnvWithRefs(t, refs)
	ctx := context.Background()

	_, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)

	_, err = e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	assert.ErrorIs(t, err, core.ErrDuplicateReference)
}

func TestQuotationGetOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)

	_, err = e.quotations.Get(ctx, q.ID, bob)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = e.quotations.Get(ctx, q.ID, "")
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = e.quotations.Get(ctx, "nope", alice)
	assert.ErrorIs(t, err, core.ErrQuotationNotFound)
}

func TestQuotationMarkOrderedOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	q, err := e.quotations.Submit(ctx, quotationInput(e.pkg.ID, "20000"), alice)
	require.NoError(t, err)

	require.NoError(t, e.quotations.MarkOrdered(ctx, q.ID))
	assert.ErrorIs(t, e.quotations.MarkOrdered(ctx, q.ID), core.ErrInvalidTransition)
}
