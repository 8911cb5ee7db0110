package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type QuotationStatus string

const (
	QuotationStatusPending QuotationStatus = "pending"
	QuotationStatusOrdered QuotationStatus = "ordered"
)

// Contact is the person the quotation and any resulting order are issued to.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Address is stored as one bundle on quotations and orders.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type QuotationInput struct {
	PackageID      string          `json:"package_id"`
	Brand          string          `json:"brand,omitempty"`
	Contact        Contact         `json:"contact"`
	Address        Address         `json:"address"`
	CoverageAmount decimal.Decimal `json:"coverage_amount"`
	Documents      []string        `json:"documents,omitempty"` // paths returned by the document store
}

// Quotation is a priced, non-binding request for coverage.
type Quotation struct {
	ID             string          `json:"id,omitempty"`
	PackageID      string          `json:"package_id"`
	Owner          string          `json:"owner,omitempty"`
	Brand          string          `json:"brand,omitempty"`
	Reference      string          `json:"reference"`
	Contact        Contact         `json:"contact"`
	Address        Address         `json:"address"`
	CoverageAmount decimal.Decimal `json:"coverage_amount"`
	Premium        decimal.Decimal `json:"premium"`
	Documents      []string        `json:"documents"`
	Status         QuotationStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type QuotationRepo interface {
	// Create returns ErrDuplicateReference when the reference code is taken.
	Create(ctx context.Context, q Quotation) error
	Get(ctx context.Context, id string) (Quotation, error)
	// MarkOrdered flips pending to ordered and fails with ErrInvalidTransition otherwise.
	MarkOrdered(ctx context.Context, id string, at time.Time) error
}

type QuotationService interface {
	// Submit prices and stores a quotation for user. With an empty user the computed,
	// unsaved quotation is returned together with ErrAuthenticationRequired.
	Submit(ctx context.Context, in QuotationInput, user string) (Quotation, error)
	Get(ctx context.Context, id, user string) (Quotation, error)
	MarkOrdered(ctx context.Context, id string) error
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (c Contact) validate(v *ValidationError) {
	if strings.TrimSpace(c.Name) == "" {
		v.Add("contact.name", "is required")
	}
	switch {
	case c.Email == "":
		v.Add("contact.email", "is required")
	case !emailRegex.MatchString(c.Email):
		v.Add("contact.email", "invalid format")
	}
}

func (in QuotationInput) Validate() error {
	v := &ValidationError{}
	if in.PackageID == "" {
		v.Add("package_id", "is required")
	}
	if !in.CoverageAmount.IsPositive() {
		v.Add("coverage_amount", "must be > 0")
	}
	in.Contact.validate(v)
	return v.OrNil()
}

// OwnedBy reports whether user may see the quotation.
func (q Quotation) OwnedBy(user string) bool {
	return user != "" && q.Owner == user
}

var (
	ErrQuotationNotFound  = fmt.Errorf("%w: quotation not found", ErrNotFound)
	ErrQuotationOrdered   = fmt.Errorf("%w: quotation already ordered", ErrInvalidTransition)
	ErrDuplicateReference = fmt.Errorf("%w: reference code already in use", ErrConflict)
)
