package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
)

type quotationService struct {
	packages   PackageRepo
	quotations QuotationRepo
	refs       ReferenceGenerator
	log        *slog.Logger
	clock      func() time.Time
}

func NewQuotationService(packages PackageRepo, quotations QuotationRepo, refs ReferenceGenerator, log *slog.Logger) QuotationService {
	return &quotationService{
		packages:   packages,
		quotations: quotations,
		refs:       refs,
		log:        log,
		clock:      time.Now,
	}
}

func (s *quotationService) Submit(ctx context.Context, in QuotationInput, user string) (Quotation, error) {
	// 1) validate inputs
	if err := in.Validate(); err != nil {
		return Quotation{}, err
	}

	// 2) load package
	p, err := s.packages.Get(ctx, in.PackageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quotation{}, fmt.Errorf("%w: %q", ErrPackageNotFound, in.PackageID)
		}
		return Quotation{}, err
	}

	// 3) validation against package bounds
	if in.CoverageAmount.LessThan(p.MinCoverage) {
		v := &ValidationError{}
		v.Add("coverage_amount", fmt.Sprintf("must be at least %s", p.MinCoverage))
		return Quotation{}, v
	}

	// 4) price
	premium, err := ComputePremium(in.CoverageAmount, p.UnitSize, p.RatePerUnit)
	if err != nil {
		return Quotation{}, err
	}

	now := s.clock()
	q := Quotation{
		PackageID:      p.ID,
		Brand:          in.Brand,
		Contact:        in.Contact,
		Address:        in.Address,
		CoverageAmount: in.CoverageAmount,
		Premium:        premium,
		Documents:      nonNil(in.Documents),
		Status:         QuotationStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// 5) anonymous callers get the computed price back but nothing is stored
	if user == "" {
		return q, ErrAuthenticationRequired
	}

	// 6) persist
	q.ID = ids.New()
	q.Owner = user
	err = withReference(s.refs, PrefixQuotation, func(ref string) error {
		q.Reference = ref
		return s.quotations.Create(ctx, q)
	})
	if err != nil {
		return Quotation{}, err
	}

	s.log.InfoContext(ctx, "quotation created",
		"quotation_id", q.ID, "reference", q.Reference, "package_id", q.PackageID)
	return q, nil
}

func (s *quotationService) Get(ctx context.Context, id, user string) (Quotation, error) {
	if id == "" {
		return Quotation{}, fmt.Errorf("%w: missing quotation ID", ErrValidation)
	}
	q, err := s.quotations.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !q.OwnedBy(user) {
		return Quotation{}, ErrForbidden
	}
	return q, nil
}

func (s *quotationService) MarkOrdered(ctx context.Context, id string) error {
	return s.quotations.MarkOrdered(ctx, id, s.clock())
}

func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
