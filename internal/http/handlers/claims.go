package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
)

type ClaimHandler struct {
	Svc    core.ClaimService
	Events EventRecorder
	Log    *slog.Logger
}

func NewClaimHandler(svc core.ClaimService, events EventRecorder, log *slog.Logger) *ClaimHandler {
	return &ClaimHandler{Svc: svc, Events: orNop(events), Log: log}
}

func (h *ClaimHandler) Mount(r chi.Router) {
	r.Post("/policies/{policy_number}/claims", h.File)
	r.Route("/claims", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{claim_id}", h.Get)
	})
}

// File records a claim against one of the caller's policies.
// 201: JSON; 400: validation; 403: not the policy owner; 404: unknown policy.
func (h *ClaimHandler) File(w http.ResponseWriter, r *http.Request) {
	var in core.ClaimInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badJSON(w)
		return
	}

	c, err := h.Svc.File(r.Context(), chi.URLParam(r, "policy_number"), in, middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	h.Events.Event(core.EventClaimFiled)
	writeJSON(h.Log, w, http.StatusCreated, c)
}

func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Svc.List(r.Context(), middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, claims)
}

func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "claim_id"), middleware.UserFrom(r.Context()))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, c)
}
