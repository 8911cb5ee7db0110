package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
	"github.com/shopspring/decimal"
)

type orderService struct {
	orders     OrderRepo
	quotations QuotationRepo
	packages   PackageRepo
	refs       ReferenceGenerator
	log        *slog.Logger
	clock      func() time.Time
}

func NewOrderService(orders OrderRepo, quotations QuotationRepo, packages PackageRepo, refs ReferenceGenerator, log *slog.Logger) OrderService {
	return &orderService{
		orders:     orders,
		quotations: quotations,
		packages:   packages,
		refs:       refs,
		log:        log,
		clock:      time.Now,
	}
}

func (s *orderService) Create(ctx context.Context, quotationID, user string) (Order, error) {
	if quotationID == "" {
		return Order{}, fmt.Errorf("%w: missing quotation ID", ErrValidation)
	}

	// 1) Load quotation
	q, err := s.quotations.Get(ctx, quotationID)
	if err != nil {
		return Order{}, err
	}
	if !q.OwnedBy(user) {
		return Order{}, ErrForbidden
	}
	if q.Status != QuotationStatusPending {
		return Order{}, ErrQuotationOrdered
	}

	// 2) Load package for the rates
	p, err := s.packages.Get(ctx, q.PackageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, fmt.Errorf("%w: %q", ErrPackageNotFound, q.PackageID)
		}
		return Order{}, err
	}

	// 3) Build order from the stored premium
	now := s.clock()
	o := Order{
		ID:             ids.New(),
		QuotationID:    q.ID,
		PackageID:      q.PackageID,
		Owner:          q.Owner,
		Brand:          q.Brand,
		Contact:        q.Contact,
		Address:        q.Address,
		CoverageAmount: q.CoverageAmount,
		Premium:        q.Premium,
		Charges:        ComputeCharges(q.Premium, p.DiscountRatePercent, p.VATRatePercent),
		UsedCoverage:   decimal.Zero,
		Status:         OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// 4) Persist together with the quotation flip
	err = withReference(s.refs, PrefixOrder, func(ref string) error {
		o.Reference = ref
		return s.orders.CreateFromQuotation(ctx, o)
	})
	if err != nil {
		return Order{}, err
	}

	s.log.InfoContext(ctx, "order created",
		"order_id", o.ID, "reference", o.Reference, "quotation_id", q.ID)
	return o, nil
}

func (s *orderService) Get(ctx context.Context, id, user string) (Order, error) {
	if id == "" {
		return Order{}, fmt.Errorf("%w: missing order ID", ErrValidation)
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !o.OwnedBy(user) {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *orderService) List(ctx context.Context, user string) ([]Order, error) {
	if user == "" {
		return nil, ErrAuthenticationRequired
	}
	return s.orders.ListByOwner(ctx, user)
}

func (s *orderService) BeginPayment(ctx context.Context, id, gatewayName, user string) (Order, error) {
	o, err := s.Get(ctx, id, user)
	if err != nil {
		return Order{}, err
	}
	if o.Status != OrderStatusPending {
		return Order{}, ErrOrderClosed
	}
	if o.GatewayToken != "" {
		return o, nil
	}

	o, err = s.orders.AssignGatewayToken(ctx, id, s.refs.GatewayToken(), gatewayName, s.clock())
	if err != nil {
		return Order{}, err
	}
	s.log.InfoContext(ctx, "payment started", "order_id", o.ID, "gateway", o.GatewayName)
	return o, nil
}
