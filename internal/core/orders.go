package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order is a quotation the customer committed to, carrying its financials,
// payment-gateway correlation data and, once paid, the policy.
type Order struct {
	ID             string          `json:"id"`
	QuotationID    string          `json:"quotation_id"`
	Reference      string          `json:"reference"`
	PackageID      string          `json:"package_id"`
	Owner          string          `json:"owner"`
	Brand          string          `json:"brand,omitempty"`
	Contact        Contact         `json:"contact"`
	Address        Address         `json:"address"`
	CoverageAmount decimal.Decimal `json:"coverage_amount"`
	Premium        decimal.Decimal `json:"premium"`
	Charges

	GatewayToken     string `json:"gateway_token,omitempty"`
	GatewayName      string `json:"gateway_name,omitempty"`
	GatewayStatus    string `json:"gateway_status,omitempty"`
	GatewayResponse  string `json:"gateway_response,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`

	PolicyNumber    string     `json:"policy_number,omitempty"`
	PolicyStartDate *time.Time `json:"policy_start_date,omitempty"`
	PolicyEndDate   *time.Time `json:"policy_end_date,omitempty"`

	UsedCoverage decimal.Decimal `json:"used_coverage"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// GatewayResult is what a payment callback writes onto an order.
type GatewayResult struct {
	GatewayName      string
	GatewayStatus    string
	GatewayResponse  string
	PaymentReference string
	Complete         bool
	At               time.Time
}

// PolicyIssuance is written at most once per order.
type PolicyIssuance struct {
	PolicyNumber string
	StartDate    time.Time
	EndDate      time.Time
}

type OrderRepo interface {
	// CreateFromQuotation stores o and flips o.QuotationID from pending to ordered
	// atomically. ErrQuotationOrdered when the quotation is no longer pending,
	// ErrDuplicateReference when the reference code is taken.
	CreateFromQuotation(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	GetByGatewayToken(ctx context.Context, token string) (Order, error)
	GetByPolicyNumber(ctx context.Context, number string) (Order, error)
	ListByOwner(ctx context.Context, owner string) ([]Order, error)
	// AssignGatewayToken sets the token only while the order has none and returns
	// the stored order either way.
	AssignGatewayToken(ctx context.Context, id, token, gatewayName string, at time.Time) (Order, error)
	// ApplyGatewayResult overwrites the gateway fields of the order holding token and
	// moves its status with ResolveOrderStatus. When res.Complete and the order has no
	// policy yet, issue is written in the same operation and issued is true.
	ApplyGatewayResult(ctx context.Context, token string, res GatewayResult, issue PolicyIssuance) (o Order, issued bool, err error)
}

type OrderService interface {
	Create(ctx context.Context, quotationID, user string) (Order, error)
	Get(ctx context.Context, id, user string) (Order, error)
	List(ctx context.Context, user string) ([]Order, error)
	// BeginPayment hands out the gateway correlation token for a pending order.
	BeginPayment(ctx context.Context, id, gatewayName, user string) (Order, error)
}

// ResolveOrderStatus is the status an order moves to after a gateway callback.
// A completed order is never downgraded.
func ResolveOrderStatus(current OrderStatus, complete bool) OrderStatus {
	if complete || current == OrderStatusCompleted {
		return OrderStatusCompleted
	}
	return OrderStatusRejected
}

func (o Order) OwnedBy(user string) bool {
	return user != "" && o.Owner == user
}

func (o Order) HasPolicy() bool { return o.PolicyNumber != "" }

var (
	ErrOrderNotFound         = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrOrderClosed           = fmt.Errorf("%w: order is no longer awaiting payment", ErrInvalidTransition)
	ErrDuplicateGatewayToken = fmt.Errorf("%w: gateway token already in use", ErrConflict)
	ErrDuplicatePolicyNumber = fmt.Errorf("%w: policy number already issued", ErrConflict)
)
