package dynamo

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

// Num stores a decimal as a DynamoDB number so ADD stays exact.
type Num struct {
	decimal.Decimal
}

func num(d decimal.Decimal) Num { return Num{d} }

func (n Num) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: n.Decimal.String()}, nil
}

func (n *Num) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return fmt.Errorf("decode number %q: %w", v.Value, err)
		}
		n.Decimal = d
		return nil
	case *types.AttributeValueMemberNULL:
		n.Decimal = decimal.Zero
		return nil
	default:
		return errors.New("decode number: unexpected attribute type")
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

type PackageItem struct {
	ID                   string `dynamodbav:"id"`
	Slug                 string `dynamodbav:"slug"`
	Name                 string `dynamodbav:"name"`
	CategoryID           string `dynamodbav:"category_id"`
	UnitSize             Num    `dynamodbav:"unit_size"`
	RatePerUnit          Num    `dynamodbav:"rate_per_unit"`
	MinCoverage          Num    `dynamodbav:"min_coverage"`
	VATRatePercent       Num    `dynamodbav:"vat_rate_percent"`
	DiscountRatePercent  Num    `dynamodbav:"discount_rate_percent"`
	PartnerCode          string `dynamodbav:"partner_code"`
	InsuranceCompanyCode string `dynamodbav:"insurance_company_code"`
	Channel              string `dynamodbav:"channel"`
}

func (i PackageItem) ToCore() core.Package {
	return core.Package{
		ID:                   i.ID,
		Slug:                 i.Slug,
		Name:                 i.Name,
		CategoryID:           i.CategoryID,
		UnitSize:             i.UnitSize.Decimal,
		RatePerUnit:          i.RatePerUnit.Decimal,
		MinCoverage:          i.MinCoverage.Decimal,
		VATRatePercent:       i.VATRatePercent.Decimal,
		DiscountRatePercent:  i.DiscountRatePercent.Decimal,
		PartnerCode:          i.PartnerCode,
		InsuranceCompanyCode: i.InsuranceCompanyCode,
		Channel:              core.Channel(i.Channel),
	}
}

func packageItemFromCore(p core.Package) PackageItem {
	return PackageItem{
		ID:                   p.ID,
		Slug:                 p.Slug,
		Name:                 p.Name,
		CategoryID:           p.CategoryID,
		UnitSize:             num(p.UnitSize),
		RatePerUnit:          num(p.RatePerUnit),
		MinCoverage:          num(p.MinCoverage),
		VATRatePercent:       num(p.VATRatePercent),
		DiscountRatePercent:  num(p.DiscountRatePercent),
		PartnerCode:          p.PartnerCode,
		InsuranceCompanyCode: p.InsuranceCompanyCode,
		Channel:              string(p.Channel),
	}
}

type ContactItem struct {
	Name  string `dynamodbav:"name"`
	Email string `dynamodbav:"email"`
	Phone string `dynamodbav:"phone,omitempty"`
}

type AddressItem struct {
	Line1      string `dynamodbav:"line1,omitempty"`
	Line2      string `dynamodbav:"line2,omitempty"`
	City       string `dynamodbav:"city,omitempty"`
	Region     string `dynamodbav:"region,omitempty"`
	PostalCode string `dynamodbav:"postal_code,omitempty"`
	Country    string `dynamodbav:"country,omitempty"`
}

type QuotationItem struct {
	ID             string      `dynamodbav:"id"`
	PackageID      string      `dynamodbav:"package_id"`
	Owner          string      `dynamodbav:"owner"`
	Brand          string      `dynamodbav:"brand,omitempty"`
	Reference      string      `dynamodbav:"reference"`
	Contact        ContactItem `dynamodbav:"contact"`
	Address        AddressItem `dynamodbav:"address"`
	CoverageAmount Num         `dynamodbav:"coverage_amount"`
	Premium        Num         `dynamodbav:"premium"`
	Documents      []string    `dynamodbav:"documents"`
	Status         string      `dynamodbav:"status"`
	CreatedAt      string      `dynamodbav:"created_at"`
	UpdatedAt      string      `dynamodbav:"updated_at"`
}

func (i QuotationItem) ToCore() core.Quotation {
	return core.Quotation{
		ID:             i.ID,
		PackageID:      i.PackageID,
		Owner:          i.Owner,
		Brand:          i.Brand,
		Reference:      i.Reference,
		Contact:        core.Contact(i.Contact),
		Address:        core.Address(i.Address),
		CoverageAmount: i.CoverageAmount.Decimal,
		Premium:        i.Premium.Decimal,
		Documents:      nonNil(i.Documents),
		Status:         core.QuotationStatus(i.Status),
		CreatedAt:      parseTime(i.CreatedAt),
		UpdatedAt:      parseTime(i.UpdatedAt),
	}
}

func quotationItemFromCore(q core.Quotation) QuotationItem {
	return QuotationItem{
		ID:             q.ID,
		PackageID:      q.PackageID,
		Owner:          q.Owner,
		Brand:          q.Brand,
		Reference:      q.Reference,
		Contact:        ContactItem(q.Contact),
		Address:        AddressItem(q.Address),
		CoverageAmount: num(q.CoverageAmount),
		Premium:        num(q.Premium),
		Documents:      q.Documents,
		Status:         string(q.Status),
		CreatedAt:      formatTime(q.CreatedAt),
		UpdatedAt:      formatTime(q.UpdatedAt),
	}
}

// OrderItem omits gateway_token and policy_number until they are set; both are
// GSI keys and may not be empty.
type OrderItem struct {
	ID               string      `dynamodbav:"id"`
	QuotationID      string      `dynamodbav:"quotation_id"`
	Reference        string      `dynamodbav:"reference"`
	PackageID        string      `dynamodbav:"package_id"`
	Owner            string      `dynamodbav:"owner"`
	Brand            string      `dynamodbav:"brand,omitempty"`
	Contact          ContactItem `dynamodbav:"contact"`
	Address          AddressItem `dynamodbav:"address"`
	CoverageAmount   Num         `dynamodbav:"coverage_amount"`
	Premium          Num         `dynamodbav:"premium"`
	Discount         Num         `dynamodbav:"discount"`
	VAT              Num         `dynamodbav:"vat"`
	Net              Num         `dynamodbav:"net"`
	FinalPremium     Num         `dynamodbav:"final_premium"`
	GatewayToken     string      `dynamodbav:"gateway_token,omitempty"`
	GatewayName      string      `dynamodbav:"gateway_name,omitempty"`
	GatewayStatus    string      `dynamodbav:"gateway_status,omitempty"`
	GatewayResponse  string      `dynamodbav:"gateway_response,omitempty"`
	PaymentReference string      `dynamodbav:"payment_reference,omitempty"`
	PolicyNumber     string      `dynamodbav:"policy_number,omitempty"`
	PolicyStartDate  string      `dynamodbav:"policy_start_date,omitempty"`
	PolicyEndDate    string      `dynamodbav:"policy_end_date,omitempty"`
	UsedCoverage     Num         `dynamodbav:"used_coverage"`
	Status           string      `dynamodbav:"status"`
	CreatedAt        string      `dynamodbav:"created_at"`
	UpdatedAt        string      `dynamodbav:"updated_at"`
}

func (i OrderItem) ToCore() core.Order {
	return core.Order{
		ID:             i.ID,
		QuotationID:    i.QuotationID,
		Reference:      i.Reference,
		PackageID:      i.PackageID,
		Owner:          i.Owner,
		Brand:          i.Brand,
		Contact:        core.Contact(i.Contact),
		Address:        core.Address(i.Address),
		CoverageAmount: i.CoverageAmount.Decimal,
		Premium:        i.Premium.Decimal,
		Charges: core.Charges{
			Discount:     i.Discount.Decimal,
			VAT:          i.VAT.Decimal,
			Net:          i.Net.Decimal,
			FinalPremium: i.FinalPremium.Decimal,
		},
		GatewayToken:     i.GatewayToken,
		GatewayName:      i.GatewayName,
		GatewayStatus:    i.GatewayStatus,
		GatewayResponse:  i.GatewayResponse,
		PaymentReference: i.PaymentReference,
		PolicyNumber:     i.PolicyNumber,
		PolicyStartDate:  parseTimePtr(i.PolicyStartDate),
		PolicyEndDate:    parseTimePtr(i.PolicyEndDate),
		UsedCoverage:     i.UsedCoverage.Decimal,
		Status:           core.OrderStatus(i.Status),
		CreatedAt:        parseTime(i.CreatedAt),
		UpdatedAt:        parseTime(i.UpdatedAt),
	}
}

func orderItemFromCore(o core.Order) OrderItem {
	return OrderItem{
		ID:               o.ID,
		QuotationID:      o.QuotationID,
		Reference:        o.Reference,
		PackageID:        o.PackageID,
		Owner:            o.Owner,
		Brand:            o.Brand,
		Contact:          ContactItem(o.Contact),
		Address:          AddressItem(o.Address),
		CoverageAmount:   num(o.CoverageAmount),
		Premium:          num(o.Premium),
		Discount:         num(o.Discount),
		VAT:              num(o.VAT),
		Net:              num(o.Net),
		FinalPremium:     num(o.FinalPremium),
		GatewayToken:     o.GatewayToken,
		GatewayName:      o.GatewayName,
		GatewayStatus:    o.GatewayStatus,
		GatewayResponse:  o.GatewayResponse,
		PaymentReference: o.PaymentReference,
		PolicyNumber:     o.PolicyNumber,
		PolicyStartDate:  formatTimePtr(o.PolicyStartDate),
		PolicyEndDate:    formatTimePtr(o.PolicyEndDate),
		UsedCoverage:     num(o.UsedCoverage),
		Status:           string(o.Status),
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
}

type IncidentItem struct {
	Date        string `dynamodbav:"date"`
	Time        string `dynamodbav:"time"`
	Location    string `dynamodbav:"location"`
	Description string `dynamodbav:"description"`
}

type ClaimFlagsItem struct {
	PoliceReportFiled  bool `dynamodbav:"police_report_filed"`
	ThirdPartyInvolved bool `dynamodbav:"third_party_involved"`
	WitnessesPresent   bool `dynamodbav:"witnesses_present"`
}

type ClaimItem struct {
	ID            string         `dynamodbav:"id"`
	PolicyNumber  string         `dynamodbav:"policy_number"`
	OrderID       string         `dynamodbav:"order_id"`
	Reference     string         `dynamodbav:"reference"`
	Incident      IncidentItem   `dynamodbav:"incident"`
	Flags         ClaimFlagsItem `dynamodbav:"flags"`
	ClaimedAmount Num            `dynamodbav:"claimed_amount"`
	Documents     []string       `dynamodbav:"documents"`
	Status        string         `dynamodbav:"status"`
	StatusReason  string         `dynamodbav:"status_reason,omitempty"`
	CreatedAt     string         `dynamodbav:"created_at"`
}

func (i ClaimItem) ToCore() core.Claim {
	return core.Claim{
		ID:            i.ID,
		PolicyNumber:  i.PolicyNumber,
		OrderID:       i.OrderID,
		Reference:     i.Reference,
		Incident:      core.Incident(i.Incident),
		Flags:         core.ClaimFlags(i.Flags),
		ClaimedAmount: i.ClaimedAmount.Decimal,
		Documents:     nonNil(i.Documents),
		Status:        core.ClaimStatus(i.Status),
		StatusReason:  i.StatusReason,
		CreatedAt:     parseTime(i.CreatedAt),
	}
}

func claimItemFromCore(c core.Claim) ClaimItem {
	return ClaimItem{
		ID:            c.ID,
		PolicyNumber:  c.PolicyNumber,
		OrderID:       c.OrderID,
		Reference:     c.Reference,
		Incident:      IncidentItem(c.Incident),
		Flags:         ClaimFlagsItem(c.Flags),
		ClaimedAmount: num(c.ClaimedAmount),
		Documents:     c.Documents,
		Status:        string(c.Status),
		StatusReason:  c.StatusReason,
		CreatedAt:     formatTime(c.CreatedAt),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
