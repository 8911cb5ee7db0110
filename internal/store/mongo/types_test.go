package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

func TestDecimalRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1100.5", "75000", "0.0001", "-12.34"} {
		d := decimal.RequireFromString(s)
		assert.True(t, d.Equal(fromDec(toDec(d))), s)
	}
}

func TestDuplicateKeyIndex(t *testing.T) {
	write := mongodrv.WriteException{WriteErrors: mongodrv.WriteErrors{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: lifecycle.orders index: orders_reference_unique dup key: { reference: "ORD-1" }`,
	}}}
	assert.Equal(t, idxOrdersReference, duplicateKeyIndex(write))
	assert.Equal(t, idxOrdersReference, duplicateKeyIndex(fmt.Errorf("orders.insert: %w", write)))

	cmd := mongodrv.CommandError{Code: 11000, Message: "E11000 duplicate key error index: orders_gateway_token_unique"}
	assert.Equal(t, idxOrdersGatewayToken, duplicateKeyIndex(cmd))

	other := mongodrv.WriteException{WriteErrors: mongodrv.WriteErrors{{Code: 121, Message: "validation"}}}
	assert.Empty(t, duplicateKeyIndex(other))
	assert.Empty(t, duplicateKeyIndex(errors.New("boom")))

	assert.Equal(t, "unknown", indexFromMessage("E11000 duplicate key error"))
}

func TestOrderDocRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	o := core.Order{
		ID:              "o-1",
		QuotationID:     "q-1",
		Reference:       "ORD-20260301-ABCDEF",
		Owner:           "alice",
		CoverageAmount:  decimal.NewFromInt(75000),
		Premium:         decimal.NewFromInt(500),
		Charges:         core.ComputeCharges(decimal.NewFromInt(500), decimal.NewFromInt(5), decimal.NewFromInt(15)),
		PolicyNumber:    "ABXYTI1260000000001",
		PolicyStartDate: &start,
		PolicyEndDate:   &end,
		UsedCoverage:    decimal.RequireFromString("120.25"),
		Status:          core.OrderStatusCompleted,
		CreatedAt:       start,
	}

	back := fromOrderDoc(toOrderDoc(o))
	assert.Equal(t, o.PolicyNumber, back.PolicyNumber)
	assert.Equal(t, o.Status, back.Status)
	assert.True(t, o.FinalPremium.Equal(back.FinalPremium))
	assert.True(t, o.UsedCoverage.Equal(back.UsedCoverage))
	assert.Equal(t, start, *back.PolicyStartDate)

	doc := toOrderDoc(core.Order{ID: "o-2"})
	assert.Empty(t, doc.GatewayToken)
	assert.Empty(t, doc.PolicyNumber)
}
