package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

const (
	incidentDateLayout = "2006-01-02"
	incidentTimeLayout = "15:04"
)

type Incident struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
	Location    string `json:"location"`
	Description string `json:"description"`
}

// ClaimFlags are the investigative questions asked at filing.
type ClaimFlags struct {
	PoliceReportFiled  bool `json:"police_report_filed"`
	ThirdPartyInvolved bool `json:"third_party_involved"`
	WitnessesPresent   bool `json:"witnesses_present"`
}

type ClaimInput struct {
	Incident      Incident        `json:"incident"`
	Flags         ClaimFlags      `json:"flags"`
	ClaimedAmount decimal.Decimal `json:"claimed_amount"`
	Documents     []string        `json:"documents,omitempty"`
}

type Claim struct {
	ID            string          `json:"id"`
	PolicyNumber  string          `json:"policy_number"`
	OrderID       string          `json:"order_id"`
	Reference     string          `json:"reference"`
	Incident      Incident        `json:"incident"`
	Flags         ClaimFlags      `json:"flags"`
	ClaimedAmount decimal.Decimal `json:"claimed_amount"`
	Documents     []string        `json:"documents"`
	Status        ClaimStatus     `json:"status"`
	StatusReason  string          `json:"status_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ClaimRepo interface {
	// File adds c.ClaimedAmount to the used coverage of the order holding
	// c.PolicyNumber and inserts c, all or nothing. ErrPolicyNotFound when no order
	// carries the policy number, ErrDuplicateReference on a reference collision.
	File(ctx context.Context, c Claim) error
	Get(ctx context.Context, id string) (Claim, error)
	ListByPolicyNumbers(ctx context.Context, numbers []string) ([]Claim, error)
}

type ClaimService interface {
	File(ctx context.Context, policyNumber string, in ClaimInput, user string) (Claim, error)
	List(ctx context.Context, user string) ([]Claim, error)
	Get(ctx context.Context, id, user string) (Claim, error)
}

func (in ClaimInput) Validate() error {
	v := &ValidationError{}
	if !in.ClaimedAmount.IsPositive() {
		v.Add("claimed_amount", "must be > 0")
	}
	switch {
	case in.Incident.Date == "":
		v.Add("incident.date", "is required")
	default:
		if _, err := time.Parse(incidentDateLayout, in.Incident.Date); err != nil {
			v.Add("incident.date", "must be YYYY-MM-DD")
		}
	}
	switch {
	case in.Incident.Time == "":
		v.Add("incident.time", "is required")
	default:
		if _, err := time.Parse(incidentTimeLayout, in.Incident.Time); err != nil {
			v.Add("incident.time", "must be HH:MM")
		}
	}
	if strings.TrimSpace(in.Incident.Location) == "" {
		v.Add("incident.location", "is required")
	}
	if strings.TrimSpace(in.Incident.Description) == "" {
		v.Add("incident.description", "is required")
	}
	return v.OrNil()
}

var (
	ErrClaimNotFound  = fmt.Errorf("%w: claim not found", ErrNotFound)
	ErrPolicyNotFound = fmt.Errorf("%w: policy not found", ErrNotFound)
)
