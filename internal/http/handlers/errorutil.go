package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/pkg/problem"
)

// writeError maps core errors onto problem responses. Forbidden responses carry
// a fixed detail so they never describe the entity that was asked for.
func writeError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		log.WarnContext(ctx, "validation failed", "err", err)
		p := problem.New(http.StatusBadRequest, "Validation Error", "One or more fields are invalid.")
		p.Errors = verr.Fields
		problem.Render(w, http.StatusBadRequest, p)

	case errors.Is(err, core.ErrValidation):
		log.WarnContext(ctx, "validation failed", "err", err)
		problem.Write(w, http.StatusBadRequest, "Validation Error", err.Error())

	case errors.Is(err, core.ErrNotFound):
		log.WarnContext(ctx, "resource not found", "err", err)
		problem.Write(w, http.StatusNotFound, "Not Found", err.Error())

	case errors.Is(err, core.ErrForbidden):
		log.WarnContext(ctx, "forbidden operation", "err", err)
		problem.Write(w, http.StatusForbidden, "Forbidden", "You do not have access to this resource.")

	case errors.Is(err, core.ErrInvalidTransition), errors.Is(err, core.ErrConflict):
		log.WarnContext(ctx, "resource conflict", "err", err)
		problem.Write(w, http.StatusConflict, "Conflict", err.Error())

	case errors.Is(err, core.ErrAuthenticationRequired):
		log.InfoContext(ctx, "authentication required", "err", err)
		problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Sign in to continue.")

	case errors.Is(err, context.DeadlineExceeded):
		log.ErrorContext(ctx, "operation timeout", "err", err)
		problem.Write(w, http.StatusGatewayTimeout, "Timeout", "Operation took too long.")

	default:
		log.ErrorContext(ctx, "internal server error", "err", err)
		problem.Write(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong.")
	}
}

func badJSON(w http.ResponseWriter) {
	problem.Write(w, http.StatusBadRequest, "Invalid JSON", "Body could not be decoded.")
}
