package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
)

type claimService struct {
	claims   ClaimRepo
	orders   OrderRepo
	refs     ReferenceGenerator
	notifier Notifier
	log      *slog.Logger
	clock    func() time.Time
}

func NewClaimService(claims ClaimRepo, orders OrderRepo, refs ReferenceGenerator, notifier Notifier, log *slog.Logger) ClaimService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &claimService{
		claims:   claims,
		orders:   orders,
		refs:     refs,
		notifier: notifier,
		log:      log,
		clock:    time.Now,
	}
}

func (s *claimService) File(ctx context.Context, policyNumber string, in ClaimInput, user string) (Claim, error) {
	// 1) Resolve the policy
	o, err := s.policyOrder(ctx, policyNumber)
	if err != nil {
		return Claim{}, err
	}
	if !o.OwnedBy(user) {
		return Claim{}, ErrForbidden
	}

	// 2) Validate
	if err := in.Validate(); err != nil {
		return Claim{}, err
	}

	// 3) Debit coverage and insert in one store call
	c := Claim{
		ID:            ids.New(),
		PolicyNumber:  o.PolicyNumber,
		OrderID:       o.ID,
		Incident:      in.Incident,
		Flags:         in.Flags,
		ClaimedAmount: in.ClaimedAmount,
		Documents:     nonNil(in.Documents),
		Status:        ClaimStatusPending,
		CreatedAt:     s.clock(),
	}
	err = withReference(s.refs, PrefixClaim, func(ref string) error {
		c.Reference = ref
		return s.claims.File(ctx, c)
	})
	if err != nil {
		return Claim{}, err
	}

	s.log.InfoContext(ctx, "claim filed",
		"claim_id", c.ID, "reference", c.Reference, "policy_number", c.PolicyNumber)

	// 4) Notify
	s.notifier.NotifyClaimFiled(ctx, ClaimFiledEvent{
		ClaimID:       c.ID,
		Reference:     c.Reference,
		PolicyNumber:  c.PolicyNumber,
		OrderID:       c.OrderID,
		Owner:         o.Owner,
		Contact:       o.Contact,
		ClaimedAmount: c.ClaimedAmount,
		FiledAt:       c.CreatedAt,
	})
	return c, nil
}

func (s *claimService) List(ctx context.Context, user string) ([]Claim, error) {
	if user == "" {
		return nil, ErrAuthenticationRequired
	}
	orders, err := s.orders.ListByOwner(ctx, user)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.HasPolicy() {
			numbers = append(numbers, o.PolicyNumber)
		}
	}
	if len(numbers) == 0 {
		return []Claim{}, nil
	}
	return s.claims.ListByPolicyNumbers(ctx, numbers)
}

func (s *claimService) Get(ctx context.Context, id, user string) (Claim, error) {
	if id == "" {
		return Claim{}, fmt.Errorf("%w: missing claim ID", ErrValidation)
	}
	c, err := s.claims.Get(ctx, id)
	if err != nil {
		return Claim{}, err
	}
	o, err := s.orders.GetByPolicyNumber(ctx, c.PolicyNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Claim{}, ErrForbidden
		}
		return Claim{}, err
	}
	if !o.OwnedBy(user) {
		return Claim{}, ErrForbidden
	}
	return c, nil
}

func (s *claimService) policyOrder(ctx context.Context, policyNumber string) (Order, error) {
	if policyNumber == "" {
		return Order{}, ErrPolicyNotFound
	}
	o, err := s.orders.GetByPolicyNumber(ctx, policyNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, fmt.Errorf("%w: %q", ErrPolicyNotFound, policyNumber)
		}
		return Order{}, err
	}
	return o, nil
}
