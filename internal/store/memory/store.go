// Package memory is a process-local store used by tests and DB_TYPE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

// Store holds every collection behind one mutex so the multi-entity operations
// (order creation, issuance, claim filing) are atomic.
type Store struct {
	mu         sync.Mutex
	packages   map[string]core.Package
	quotations map[string]core.Quotation
	orders     map[string]core.Order
	claims     map[string]core.Claim
	references map[string]struct{}
}

var (
	_ core.PackageRepo   = (*PackageRepo)(nil)
	_ core.QuotationRepo = (*QuotationRepo)(nil)
	_ core.OrderRepo     = (*OrderRepo)(nil)
	_ core.ClaimRepo     = (*ClaimRepo)(nil)
)

func New() *Store {
	return &Store{
		packages:   make(map[string]core.Package),
		quotations: make(map[string]core.Quotation),
		orders:     make(map[string]core.Order),
		claims:     make(map[string]core.Claim),
		references: make(map[string]struct{}),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Packages() *PackageRepo     { return &PackageRepo{s} }
func (s *Store) Quotations() *QuotationRepo { return &QuotationRepo{s} }
func (s *Store) Orders() *OrderRepo         { return &OrderRepo{s} }
func (s *Store) Claims() *ClaimRepo         { return &ClaimRepo{s} }

type PackageRepo struct{ s *Store }

func (r *PackageRepo) List(ctx context.Context) ([]core.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]core.Package, 0, len(r.s.packages))
	for _, p := range r.s.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *PackageRepo) Get(ctx context.Context, id string) (core.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.packages[id]
	if !ok {
		return core.Package{}, core.ErrPackageNotFound
	}
	return p, nil
}

func (r *PackageRepo) UpsertBySlug(ctx context.Context, p core.Package) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.packages {
		if existing.Slug == p.Slug {
			p.ID = id
			break
		}
	}
	r.s.packages[p.ID] = p
	return nil
}

type QuotationRepo struct{ s *Store }

func (r *QuotationRepo) Create(ctx context.Context, q core.Quotation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.references[q.Reference]; taken {
		return core.ErrDuplicateReference
	}
	r.s.references[q.Reference] = struct{}{}
	q.Documents = append([]string(nil), q.Documents...)
	r.s.quotations[q.ID] = q
	return nil
}

func (r *QuotationRepo) Get(ctx context.Context, id string) (core.Quotation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotations[id]
	if !ok {
		return core.Quotation{}, core.ErrQuotationNotFound
	}
	return q, nil
}

func (r *QuotationRepo) MarkOrdered(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.markOrderedLocked(id, at)
}

func (s *Store) markOrderedLocked(id string, at time.Time) error {
	q, ok := s.quotations[id]
	if !ok {
		return core.ErrQuotationNotFound
	}
	if q.Status != core.QuotationStatusPending {
		return core.ErrQuotationOrdered
	}
	q.Status = core.QuotationStatusOrdered
	q.UpdatedAt = at
	s.quotations[id] = q
	return nil
}

type OrderRepo struct{ s *Store }

func (r *OrderRepo) CreateFromQuotation(ctx context.Context, o core.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.references[o.Reference]; taken {
		return core.ErrDuplicateReference
	}
	q, ok := r.s.quotations[o.QuotationID]
	if !ok {
		return core.ErrQuotationNotFound
	}
	if q.Status != core.QuotationStatusPending {
		return core.ErrQuotationOrdered
	}
	if err := r.s.markOrderedLocked(o.QuotationID, o.CreatedAt); err != nil {
		return err
	}
	r.s.references[o.Reference] = struct{}{}
	r.s.orders[o.ID] = o
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (core.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return core.Order{}, core.ErrOrderNotFound
	}
	return o, nil
}

func (r *OrderRepo) GetByGatewayToken(ctx context.Context, token string) (core.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.findOrderLocked(func(o core.Order) bool { return token != "" && o.GatewayToken == token })
	if !ok {
		return core.Order{}, core.ErrOrderNotFound
	}
	return r.s.orders[id], nil
}

func (r *OrderRepo) GetByPolicyNumber(ctx context.Context, number string) (core.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.findOrderLocked(func(o core.Order) bool { return number != "" && o.PolicyNumber == number })
	if !ok {
		return core.Order{}, core.ErrOrderNotFound
	}
	return r.s.orders[id], nil
}

func (r *OrderRepo) ListByOwner(ctx context.Context, owner string) ([]core.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []core.Order{}
	for _, o := range r.s.orders {
		if o.Owner == owner {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) AssignGatewayToken(ctx context.Context, id, token, gatewayName string, at time.Time) (core.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return core.Order{}, core.ErrOrderNotFound
	}
	if o.GatewayToken != "" {
		return o, nil
	}
	if _, taken := r.s.findOrderLocked(func(x core.Order) bool { return x.GatewayToken == token }); taken {
		return core.Order{}, core.ErrDuplicateGatewayToken
	}
	o.GatewayToken = token
	o.GatewayName = gatewayName
	o.UpdatedAt = at
	r.s.orders[id] = o
	return o, nil
}

func (r *OrderRepo) ApplyGatewayResult(ctx context.Context, token string, res core.GatewayResult, issue core.PolicyIssuance) (core.Order, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.findOrderLocked(func(o core.Order) bool { return token != "" && o.GatewayToken == token })
	if !ok {
		return core.Order{}, false, core.ErrOrderNotFound
	}
	o := r.s.orders[id]

	issuing := res.Complete && !o.HasPolicy() && issue.PolicyNumber != ""
	if issuing {
		if _, taken := r.s.findOrderLocked(func(other core.Order) bool { return other.PolicyNumber == issue.PolicyNumber }); taken {
			return core.Order{}, false, core.ErrDuplicatePolicyNumber
		}
	}

	o.GatewayName = res.GatewayName
	o.GatewayStatus = res.GatewayStatus
	o.GatewayResponse = res.GatewayResponse
	o.PaymentReference = res.PaymentReference
	o.Status = core.ResolveOrderStatus(o.Status, res.Complete)
	o.UpdatedAt = res.At

	issued := false
	if issuing {
		start, end := issue.StartDate, issue.EndDate
		o.PolicyNumber = issue.PolicyNumber
		o.PolicyStartDate = &start
		o.PolicyEndDate = &end
		issued = true
	}
	r.s.orders[id] = o
	return o, issued, nil
}

func (s *Store) findOrderLocked(match func(core.Order) bool) (string, bool) {
	for id, o := range s.orders {
		if match(o) {
			return id, true
		}
	}
	return "", false
}

type ClaimRepo struct{ s *Store }

func (r *ClaimRepo) File(ctx context.Context, c core.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.findOrderLocked(func(o core.Order) bool { return c.PolicyNumber != "" && o.PolicyNumber == c.PolicyNumber })
	if !ok {
		return core.ErrPolicyNotFound
	}
	if _, taken := r.s.references[c.Reference]; taken {
		return core.ErrDuplicateReference
	}
	o := r.s.orders[id]
	o.UsedCoverage = o.UsedCoverage.Add(c.ClaimedAmount)
	o.UpdatedAt = c.CreatedAt
	r.s.orders[id] = o

	r.s.references[c.Reference] = struct{}{}
	c.Documents = append([]string(nil), c.Documents...)
	r.s.claims[c.ID] = c
	return nil
}

func (r *ClaimRepo) Get(ctx context.Context, id string) (core.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok {
		return core.Claim{}, core.ErrClaimNotFound
	}
	return c, nil
}

func (r *ClaimRepo) ListByPolicyNumbers(ctx context.Context, numbers []string) ([]core.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		want[n] = struct{}{}
	}
	out := []core.Claim{}
	for _, c := range r.s.claims {
		if _, ok := want[c.PolicyNumber]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
