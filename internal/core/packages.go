package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type Channel string

const (
	ChannelB2B Channel = "b2b"
	ChannelB2C Channel = "b2c"
)

// Package is a sellable coverage product together with the rates used to price it.
type Package struct {
	ID                   string          `json:"id"`
	Slug                 string          `json:"slug"`
	Name                 string          `json:"name"`
	CategoryID           string          `json:"category_id"`
	UnitSize             decimal.Decimal `json:"unit_size"`     // coverage covered by one premium unit
	RatePerUnit          decimal.Decimal `json:"rate_per_unit"` // premium charged per started unit
	MinCoverage          decimal.Decimal `json:"min_coverage"`
	VATRatePercent       decimal.Decimal `json:"vat_rate_percent"`
	DiscountRatePercent  decimal.Decimal `json:"discount_rate_percent"`
	PartnerCode          string          `json:"partner_code,omitempty"`
	InsuranceCompanyCode string          `json:"insurance_company_code,omitempty"`
	Channel              Channel         `json:"channel"`
}

// PackageRepo is the package catalog.
type PackageRepo interface {
	List(ctx context.Context) ([]Package, error)
	Get(ctx context.Context, id string) (Package, error)
	UpsertBySlug(ctx context.Context, p Package) error
}

func (p Package) IsB2B() bool { return p.Channel == ChannelB2B }

func (p Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrValidation)
	}
	if p.Slug == "" {
		return fmt.Errorf("%w: missing slug", ErrValidation)
	}
	if !p.UnitSize.IsPositive() {
		return fmt.Errorf("%w: unit size must be > 0", ErrValidation)
	}
	if !p.RatePerUnit.IsPositive() {
		return fmt.Errorf("%w: rate per unit must be > 0", ErrValidation)
	}
	if p.MinCoverage.IsNegative() {
		return fmt.Errorf("%w: minimum coverage must be >= 0", ErrValidation)
	}
	if p.VATRatePercent.IsNegative() || p.DiscountRatePercent.IsNegative() {
		return fmt.Errorf("%w: rates must be >= 0", ErrValidation)
	}
	return nil
}

var (
	ErrPackageNotFound = fmt.Errorf("%w: package not found", ErrNotFound)
)
