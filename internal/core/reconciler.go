package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// policyTermYears is how long an issued policy runs.
	policyTermYears = 1
	// issueAttempts bounds policy-number regeneration after a collision.
	issueAttempts = 2
)

type paymentReconciler struct {
	orders   OrderRepo
	packages PackageRepo
	refs     ReferenceGenerator
	notifier Notifier
	log      *slog.Logger
	clock    func() time.Time
}

func NewPaymentReconciler(orders OrderRepo, packages PackageRepo, refs ReferenceGenerator, notifier Notifier, log *slog.Logger) PaymentReconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &paymentReconciler{
		orders:   orders,
		packages: packages,
		refs:     refs,
		notifier: notifier,
		log:      log,
		clock:    time.Now,
	}
}

func (r *paymentReconciler) Reconcile(ctx context.Context, cb GatewayCallback) (ReconcileResult, error) {
	if cb.CorrelationToken == "" {
		return ReconcileResult{}, ErrOrderNotFound
	}

	// 1) Resolve order by correlation token
	current, err := r.orders.GetByGatewayToken(ctx, cb.CorrelationToken)
	if err != nil {
		return ReconcileResult{}, err
	}

	// 2) Prepare the result and, for a settled payment, a policy number
	now := r.clock()
	res := GatewayResult{
		GatewayName:      cb.GatewayName,
		GatewayStatus:    cb.GatewayStatus,
		GatewayResponse:  cb.GatewayResponsePayload,
		PaymentReference: ExtractPaymentReference(cb.GatewayResponsePayload),
		Complete:         cb.GatewayStatus == GatewayStatusComplete,
		At:               now,
	}
	if res.GatewayName == "" {
		res.GatewayName = current.GatewayName
	}

	var issue PolicyIssuance
	if res.Complete && !current.HasPolicy() {
		issue = r.newIssuance(ctx, current, now)
	}

	// 3) Apply atomically; the store decides whether this call issued the policy
	o, issued, err := r.orders.ApplyGatewayResult(ctx, cb.CorrelationToken, res, issue)
	for attempt := 1; attempt < issueAttempts && issue.PolicyNumber != "" && errors.Is(err, ErrDuplicatePolicyNumber); attempt++ {
		r.log.WarnContext(ctx, "policy number collision, regenerating",
			"order_id", current.ID, "policy_number", issue.PolicyNumber)
		issue = r.newIssuance(ctx, current, now)
		o, issued, err = r.orders.ApplyGatewayResult(ctx, cb.CorrelationToken, res, issue)
	}
	if err != nil {
		return ReconcileResult{}, err
	}

	log := r.log.With("order_id", o.ID, "gateway_status", cb.GatewayStatus, "status", o.Status)
	if issued {
		log.InfoContext(ctx, "policy issued", "policy_number", o.PolicyNumber)
		r.notifier.NotifyPolicyIssued(ctx, PolicyIssuedEvent{
			OrderID:      o.ID,
			Reference:    o.Reference,
			PolicyNumber: o.PolicyNumber,
			Owner:        o.Owner,
			Brand:        o.Brand,
			Contact:      o.Contact,
			FinalPremium: o.FinalPremium,
			StartDate:    *o.PolicyStartDate,
			EndDate:      *o.PolicyEndDate,
		})
	} else {
		log.InfoContext(ctx, "gateway callback recorded")
	}

	out := ReconcileResult{Order: o, Issued: issued}
	if cb.IsMachineCaller {
		out.Summary = summarize(o)
	}
	return out, nil
}

func (r *paymentReconciler) newIssuance(ctx context.Context, o Order, now time.Time) PolicyIssuance {
	partner, company, b2b := "", "", false
	p, err := r.packages.Get(ctx, o.PackageID)
	switch {
	case err == nil:
		partner, company, b2b = p.PartnerCode, p.InsuranceCompanyCode, p.IsB2B()
	case errors.Is(err, ErrNotFound):
		r.log.WarnContext(ctx, "package missing at issuance, using default codes",
			"order_id", o.ID, "package_id", o.PackageID)
	default:
		r.log.WarnContext(ctx, "package lookup failed at issuance, using default codes",
			"order_id", o.ID, "package_id", o.PackageID, "err", err)
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return PolicyIssuance{
		PolicyNumber: r.refs.PolicyNumber(partner, company, b2b),
		StartDate:    start,
		EndDate:      start.AddDate(policyTermYears, 0, 0),
	}
}
