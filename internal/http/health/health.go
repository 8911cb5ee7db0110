package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker serves liveness and readiness probes.
type Checker struct {
	log       *slog.Logger
	store     Pinger
	opTimeout time.Duration
}

func New(log *slog.Logger, store Pinger, opTimeout time.Duration) *Checker {
	return &Checker{log: log, store: store, opTimeout: opTimeout}
}

func (c *Checker) Mount(r chi.Router) {
	r.Get("/health", c.Live)
	r.Get("/readyz", c.Ready)
}

// Live reports that the process is up.
func (c *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready pings the store.
func (c *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.opTimeout)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		c.log.Warn("readiness failed", "err", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
