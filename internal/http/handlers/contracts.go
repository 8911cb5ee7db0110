package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Mount(r chi.Router)
}

// EventRecorder counts lifecycle events; *metrics.Metrics satisfies it.
type EventRecorder interface {
	Event(name string)
}

type nopEvents struct{}

func (nopEvents) Event(string) {}

func orNop(e EventRecorder) EventRecorder {
	if e == nil {
		return nopEvents{}
	}
	return e
}

// BrandHeader selects the storefront a quotation is sold under.
const BrandHeader = "X-Brand"

// BrandResolver returns the brand named by the request or the fallback.
type BrandResolver struct {
	Default string
}

func (b BrandResolver) Resolve(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(BrandHeader)); v != "" {
		return v
	}
	return b.Default
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}
