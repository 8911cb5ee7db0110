package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

type PackageHandler struct {
	Repo core.PackageRepo
	Log  *slog.Logger
}

func NewPackageHandler(repo core.PackageRepo, log *slog.Logger) *PackageHandler {
	return &PackageHandler{Repo: repo, Log: log}
}

func (h *PackageHandler) Mount(r chi.Router) {
	r.Route("/packages", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{package_id}", h.Get)
	})
}

// List returns the catalog.
// 200: JSON array; 500: internal error.
func (h *PackageHandler) List(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, pkgs)
}

// Get returns one package.
// 200: JSON; 404: not found; 500: internal error.
func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.Get(r.Context(), chi.URLParam(r, "package_id"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, p)
}
