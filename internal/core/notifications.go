package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event types carried to the broker.
const (
	EventPolicyIssued = "policy.issued"
	EventClaimFiled   = "claim.filed"
)

type PolicyIssuedEvent struct {
	OrderID      string          `json:"order_id"`
	Reference    string          `json:"reference"`
	PolicyNumber string          `json:"policy_number"`
	Owner        string          `json:"owner"`
	Brand        string          `json:"brand,omitempty"`
	Contact      Contact         `json:"contact"`
	FinalPremium decimal.Decimal `json:"final_premium"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
}

type ClaimFiledEvent struct {
	ClaimID       string          `json:"claim_id"`
	Reference     string          `json:"reference"`
	PolicyNumber  string          `json:"policy_number"`
	OrderID       string          `json:"order_id"`
	Owner         string          `json:"owner"`
	Contact       Contact         `json:"contact"`
	ClaimedAmount decimal.Decimal `json:"claimed_amount"`
	FiledAt       time.Time       `json:"filed_at"`
}

// Notifier hands events to the delivery side. Calls must not block on delivery
// and never fail the caller.
type Notifier interface {
	NotifyPolicyIssued(ctx context.Context, ev PolicyIssuedEvent)
	NotifyClaimFiled(ctx context.Context, ev ClaimFiledEvent)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyPolicyIssued(context.Context, PolicyIssuedEvent) {}
func (NopNotifier) NotifyClaimFiled(context.Context, ClaimFiledEvent)     {}
