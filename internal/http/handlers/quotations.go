package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
	"github.com/MrKriegler/insurance-lifecycle/pkg/problem"
)

type QuotationHandler struct {
	Svc    core.QuotationService
	Orders core.OrderService
	Brand  BrandResolver
	Events EventRecorder
	Log    *slog.Logger
}

func NewQuotationHandler(svc core.QuotationService, orders core.OrderService, brand BrandResolver, events EventRecorder, log *slog.Logger) *QuotationHandler {
	return &QuotationHandler{Svc: svc, Orders: orders, Brand: brand, Events: orNop(events), Log: log}
}

func (h *QuotationHandler) Mount(r chi.Router) {
	r.Route("/quotations", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/{quotation_id}", h.Get)
		r.Post("/{quotation_id}/order", h.Order)
	})
}

// anonymousQuotation is the 401 body for callers that are not signed in: the
// price is shown but nothing is stored.
type anonymousQuotation struct {
	problem.Problem
	Quotation core.Quotation `json:"quotation"`
}

// Submit prices and stores a quotation.
// 201: JSON; 400: validation; 401: anonymous (body carries the computed quotation); 404: unknown package.
func (h *QuotationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in core.QuotationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badJSON(w)
		return
	}
	in.Brand = h.Brand.Resolve(r)

	q, err := h.Svc.Submit(r.Context(), in, middleware.UserFrom(r.Context()))
	switch {
	case errors.Is(err, core.ErrAuthenticationRequired):
		problem.Render(w, http.StatusUnauthorized, anonymousQuotation{
			Problem:   problem.New(http.StatusUnauthorized, "Unauthorized", "Sign in to save this quotation."),
			Quotation: q,
		})
		return
	case err != nil:
		writeError(r.Context(), h.Log, w, err)
		return
	}

	h.Events.Event("quotation.submitted")
	writeJSON(h.Log, w, http.StatusCreated, q)
}

// Get returns a quotation owned by the caller.
// 200: JSON; 403: not the owner; 404: not found.
func (h *QuotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.Get(r.Context(), chi.URLParam(r, "quotation_id"), middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, q)
}

// Order turns the caller's pending quotation into an order.
// 201: JSON; 401: anonymous; 403: not the owner; 404: not found; 409: already ordered.
func (h *QuotationHandler) Order(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Create(r.Context(), chi.URLParam(r, "quotation_id"), middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	h.Events.Event("order.created")
	writeJSON(h.Log, w, http.StatusCreated, o)
}
