package mongo

import (
	"errors"
	"strings"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

const (
	ColPackages   = "packages"
	ColQuotations = "quotations"
	ColOrders     = "orders"
	ColClaims     = "claims"
)

// Money is stored as Decimal128 so $inc stays exact.
func toDec(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDec(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// duplicateKeyIndex returns the name of the unique index a write collided with,
// or "" when err is not a duplicate key error.
func duplicateKeyIndex(err error) string {
	var we mongodrv.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return indexFromMessage(e.Message)
			}
		}
	}
	var ce mongodrv.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return indexFromMessage(ce.Message)
	}
	return ""
}

func indexFromMessage(msg string) string {
	const marker = "index: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "unknown"
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexByte(rest, ' '); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// Package
type PackageDoc struct {
	ID                   string               `bson:"_id"`
	Slug                 string               `bson:"slug"` // unique index
	Name                 string               `bson:"name"`
	CategoryID           string               `bson:"category_id"`
	UnitSize             primitive.Decimal128 `bson:"unit_size"`
	RatePerUnit          primitive.Decimal128 `bson:"rate_per_unit"`
	MinCoverage          primitive.Decimal128 `bson:"min_coverage"`
	VATRatePercent       primitive.Decimal128 `bson:"vat_rate_percent"`
	DiscountRatePercent  primitive.Decimal128 `bson:"discount_rate_percent"`
	PartnerCode          string               `bson:"partner_code"`
	InsuranceCompanyCode string               `bson:"insurance_company_code"`
	Channel              string               `bson:"channel"`
}

func fromPackageDoc(d PackageDoc) core.Package {
	return core.Package{
		ID:                   d.ID,
		Slug:                 d.Slug,
		Name:                 d.Name,
		CategoryID:           d.CategoryID,
		UnitSize:             fromDec(d.UnitSize),
		RatePerUnit:          fromDec(d.RatePerUnit),
		MinCoverage:          fromDec(d.MinCoverage),
		VATRatePercent:       fromDec(d.VATRatePercent),
		DiscountRatePercent:  fromDec(d.DiscountRatePercent),
		PartnerCode:          d.PartnerCode,
		InsuranceCompanyCode: d.InsuranceCompanyCode,
		Channel:              core.Channel(d.Channel),
	}
}

func toPackageDoc(p core.Package) PackageDoc {
	return PackageDoc{
		ID:                   p.ID,
		Slug:                 p.Slug,
		Name:                 p.Name,
		CategoryID:           p.CategoryID,
		UnitSize:             toDec(p.UnitSize),
		RatePerUnit:          toDec(p.RatePerUnit),
		MinCoverage:          toDec(p.MinCoverage),
		VATRatePercent:       toDec(p.VATRatePercent),
		DiscountRatePercent:  toDec(p.DiscountRatePercent),
		PartnerCode:          p.PartnerCode,
		InsuranceCompanyCode: p.InsuranceCompanyCode,
		Channel:              string(p.Channel),
	}
}

type ContactDoc struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Phone string `bson:"phone,omitempty"`
}

type AddressDoc struct {
	Line1      string `bson:"line1,omitempty"`
	Line2      string `bson:"line2,omitempty"`
	City       string `bson:"city,omitempty"`
	Region     string `bson:"region,omitempty"`
	PostalCode string `bson:"postal_code,omitempty"`
	Country    string `bson:"country,omitempty"`
}

func toContactDoc(c core.Contact) ContactDoc {
	return ContactDoc{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func fromContactDoc(c ContactDoc) core.Contact {
	return core.Contact{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func toAddressDoc(a core.Address) AddressDoc {
	return AddressDoc(a)
}

func fromAddressDoc(a AddressDoc) core.Address {
	return core.Address(a)
}

// Quotation
type QuotationDoc struct {
	ID             string               `bson:"_id"`
	PackageID      string               `bson:"package_id"`
	Owner          string               `bson:"owner"`
	Brand          string               `bson:"brand,omitempty"`
	Reference      string               `bson:"reference"` // unique index
	Contact        ContactDoc           `bson:"contact"`
	Address        AddressDoc           `bson:"address"`
	CoverageAmount primitive.Decimal128 `bson:"coverage_amount"`
	Premium        primitive.Decimal128 `bson:"premium"`
	Documents      []string             `bson:"documents"`
	Status         string               `bson:"status"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

func toQuotationDoc(q core.Quotation) QuotationDoc {
	return QuotationDoc{
		ID:             q.ID,
		PackageID:      q.PackageID,
		Owner:          q.Owner,
		Brand:          q.Brand,
		Reference:      q.Reference,
		Contact:        toContactDoc(q.Contact),
		Address:        toAddressDoc(q.Address),
		CoverageAmount: toDec(q.CoverageAmount),
		Premium:        toDec(q.Premium),
		Documents:      q.Documents,
		Status:         string(q.Status),
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

func fromQuotationDoc(d QuotationDoc) core.Quotation {
	return core.Quotation{
		ID:             d.ID,
		PackageID:      d.PackageID,
		Owner:          d.Owner,
		Brand:          d.Brand,
		Reference:      d.Reference,
		Contact:        fromContactDoc(d.Contact),
		Address:        fromAddressDoc(d.Address),
		CoverageAmount: fromDec(d.CoverageAmount),
		Premium:        fromDec(d.Premium),
		Documents:      d.Documents,
		Status:         core.QuotationStatus(d.Status),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// Order. gateway_token and policy_number are stored as "" until set so the
// guarded updates can filter on them.
type OrderDoc struct {
	ID               string               `bson:"_id"`
	QuotationID      string               `bson:"quotation_id"` // unique index
	Reference        string               `bson:"reference"`    // unique index
	PackageID        string               `bson:"package_id"`
	Owner            string               `bson:"owner"`
	Brand            string               `bson:"brand,omitempty"`
	Contact          ContactDoc           `bson:"contact"`
	Address          AddressDoc           `bson:"address"`
	CoverageAmount   primitive.Decimal128 `bson:"coverage_amount"`
	Premium          primitive.Decimal128 `bson:"premium"`
	Discount         primitive.Decimal128 `bson:"discount"`
	VAT              primitive.Decimal128 `bson:"vat"`
	Net              primitive.Decimal128 `bson:"net"`
	FinalPremium     primitive.Decimal128 `bson:"final_premium"`
	GatewayToken     string               `bson:"gateway_token"`
	GatewayName      string               `bson:"gateway_name"`
	GatewayStatus    string               `bson:"gateway_status"`
	GatewayResponse  string               `bson:"gateway_response"`
	PaymentReference string               `bson:"payment_reference"`
	PolicyNumber     string               `bson:"policy_number"`
	PolicyStartDate  *time.Time           `bson:"policy_start_date,omitempty"`
	PolicyEndDate    *time.Time           `bson:"policy_end_date,omitempty"`
	UsedCoverage     primitive.Decimal128 `bson:"used_coverage"`
	Status           string               `bson:"status"`
	CreatedAt        time.Time            `bson:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at"`
}

func toOrderDoc(o core.Order) OrderDoc {
	return OrderDoc{
		ID:               o.ID,
		QuotationID:      o.QuotationID,
		Reference:        o.Reference,
		PackageID:        o.PackageID,
		Owner:            o.Owner,
		Brand:            o.Brand,
		Contact:          toContactDoc(o.Contact),
		Address:          toAddressDoc(o.Address),
		CoverageAmount:   toDec(o.CoverageAmount),
		Premium:          toDec(o.Premium),
		Discount:         toDec(o.Discount),
		VAT:              toDec(o.VAT),
		Net:              toDec(o.Net),
		FinalPremium:     toDec(o.FinalPremium),
		GatewayToken:     o.GatewayToken,
		GatewayName:      o.GatewayName,
		GatewayStatus:    o.GatewayStatus,
		GatewayResponse:  o.GatewayResponse,
		PaymentReference: o.PaymentReference,
		PolicyNumber:     o.PolicyNumber,
		PolicyStartDate:  o.PolicyStartDate,
		PolicyEndDate:    o.PolicyEndDate,
		UsedCoverage:     toDec(o.UsedCoverage),
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func fromOrderDoc(d OrderDoc) core.Order {
	return core.Order{
		ID:             d.ID,
		QuotationID:    d.QuotationID,
		Reference:      d.Reference,
		PackageID:      d.PackageID,
		Owner:          d.Owner,
		Brand:          d.Brand,
		Contact:        fromContactDoc(d.Contact),
		Address:        fromAddressDoc(d.Address),
		CoverageAmount: fromDec(d.CoverageAmount),
		Premium:        fromDec(d.Premium),
		Charges: core.Charges{
			Discount:     fromDec(d.Discount),
			VAT:          fromDec(d.VAT),
			Net:          fromDec(d.Net),
			FinalPremium: fromDec(d.FinalPremium),
		},
		GatewayToken:     d.GatewayToken,
		GatewayName:      d.GatewayName,
		GatewayStatus:    d.GatewayStatus,
		GatewayResponse:  d.GatewayResponse,
		PaymentReference: d.PaymentReference,
		PolicyNumber:     d.PolicyNumber,
		PolicyStartDate:  utcPtr(d.PolicyStartDate),
		PolicyEndDate:    utcPtr(d.PolicyEndDate),
		UsedCoverage:     fromDec(d.UsedCoverage),
		Status:           core.OrderStatus(d.Status),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// Claim
type ClaimDoc struct {
	ID            string               `bson:"_id"`
	PolicyNumber  string               `bson:"policy_number"`
	OrderID       string               `bson:"order_id"`
	Reference     string               `bson:"reference"` // unique index
	Incident      IncidentDoc          `bson:"incident"`
	Flags         ClaimFlagsDoc        `bson:"flags"`
	ClaimedAmount primitive.Decimal128 `bson:"claimed_amount"`
	Documents     []string             `bson:"documents"`
	Status        string               `bson:"status"`
	StatusReason  string               `bson:"status_reason,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
}

type IncidentDoc struct {
	Date        string `bson:"date"`
	Time        string `bson:"time"`
	Location    string `bson:"location"`
	Description string `bson:"description"`
}

type ClaimFlagsDoc struct {
	PoliceReportFiled  bool `bson:"police_report_filed"`
	ThirdPartyInvolved bool `bson:"third_party_involved"`
	WitnessesPresent   bool `bson:"witnesses_present"`
}

func toClaimDoc(c core.Claim) ClaimDoc {
	return ClaimDoc{
		ID:            c.ID,
		PolicyNumber:  c.PolicyNumber,
		OrderID:       c.OrderID,
		Reference:     c.Reference,
		Incident:      IncidentDoc(c.Incident),
		Flags:         ClaimFlagsDoc(c.Flags),
		ClaimedAmount: toDec(c.ClaimedAmount),
		Documents:     c.Documents,
		Status:        string(c.Status),
		StatusReason:  c.StatusReason,
		CreatedAt:     c.CreatedAt,
	}
}

func fromClaimDoc(d ClaimDoc) core.Claim {
	return core.Claim{
		ID:            d.ID,
		PolicyNumber:  d.PolicyNumber,
		OrderID:       d.OrderID,
		Reference:     d.Reference,
		Incident:      core.Incident(d.Incident),
		Flags:         core.ClaimFlags(d.Flags),
		ClaimedAmount: fromDec(d.ClaimedAmount),
		Documents:     d.Documents,
		Status:        core.ClaimStatus(d.Status),
		StatusReason:  d.StatusReason,
		CreatedAt:     d.CreatedAt,
	}
}
