package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
)

type OrderHandler struct {
	Svc            core.OrderService
	DefaultGateway string
	Log            *slog.Logger
}

func NewOrderHandler(svc core.OrderService, defaultGateway string, log *slog.Logger) *OrderHandler {
	return &OrderHandler{Svc: svc, DefaultGateway: defaultGateway, Log: log}
}

func (h *OrderHandler) Mount(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{order_id}", h.Get)
		r.Post("/{order_id}/payment", h.BeginPayment)
	})
}

// List returns the caller's orders, newest first.
// 200: JSON array; 401: anonymous.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Svc.List(r.Context(), middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, orders)
}

// Get returns one of the caller's orders.
// 200: JSON; 403: not the owner; 404: not found.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "order_id"), middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, o)
}

type beginPaymentRequest struct {
	GatewayName string `json:"gateway_name"`
}

// BeginPayment hands out the correlation token the gateway will echo back.
// Calling it again returns the same token. An empty body is allowed.
// 200: JSON; 403: not the owner; 404: not found; 409: order no longer pending.
func (h *OrderHandler) BeginPayment(w http.ResponseWriter, r *http.Request) {
	var req beginPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badJSON(w)
		return
	}
	if req.GatewayName == "" {
		req.GatewayName = h.DefaultGateway
	}

	o, err := h.Svc.BeginPayment(r.Context(), chi.URLParam(r, "order_id"), req.GatewayName, middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, o)
}
