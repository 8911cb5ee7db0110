package core

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatusComplete is the only gateway status that settles an order.
const GatewayStatusComplete = "Complete"

// GatewayCallback is the payload a payment gateway posts back.
type GatewayCallback struct {
	CorrelationToken       string
	GatewayStatus          string
	GatewayResponsePayload string
	GatewayName            string
	IsMachineCaller        bool
}

// PaymentSummary is returned to machine callers instead of the order view.
type PaymentSummary struct {
	OrderID          string          `json:"order_id"`
	Reference        string          `json:"reference"`
	Status           OrderStatus     `json:"status"`
	GatewayStatus    string          `json:"gateway_status"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	FinalPremium     decimal.Decimal `json:"final_premium"`
	PolicyNumber     string          `json:"policy_number,omitempty"`
	PolicyStartDate  *time.Time      `json:"policy_start_date,omitempty"`
	PolicyEndDate    *time.Time      `json:"policy_end_date,omitempty"`
}

type ReconcileResult struct {
	Order   Order
	Issued  bool
	Summary *PaymentSummary
}

type PaymentReconciler interface {
	Reconcile(ctx context.Context, cb GatewayCallback) (ReconcileResult, error)
}

var paymentReferenceKeys = []string{"paymentId", "payment_id", "PaymentID", "paymentReference", "ref"}

// ExtractPaymentReference pulls the gateway's payment id out of a redirect URL or
// query string. It returns "" when none of the known keys is present.
func ExtractPaymentReference(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}
	raw := payload
	if i := strings.IndexByte(payload, '?'); i >= 0 {
		raw = payload[i+1:]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	values, err := url.ParseQuery(raw)
	if err != nil && len(values) == 0 {
		return ""
	}
	for _, k := range paymentReferenceKeys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func summarize(o Order) *PaymentSummary {
	return &PaymentSummary{
		OrderID:          o.ID,
		Reference:        o.Reference,
		Status:           o.Status,
		GatewayStatus:    o.GatewayStatus,
		PaymentReference: o.PaymentReference,
		FinalPremium:     o.FinalPremium,
		PolicyNumber:     o.PolicyNumber,
		PolicyStartDate:  o.PolicyStartDate,
		PolicyEndDate:    o.PolicyEndDate,
	}
}
