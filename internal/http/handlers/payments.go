package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/pkg/problem"
)

type PaymentHandler struct {
	Reconciler core.PaymentReconciler
	Events     EventRecorder
	Log        *slog.Logger
}

func NewPaymentHandler(rec core.PaymentReconciler, events EventRecorder, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{Reconciler: rec, Events: orNop(events), Log: log}
}

func (h *PaymentHandler) Mount(r chi.Router) {
	r.Post("/payments/callback", h.Callback)
}

type callbackRequest struct {
	CorrelationToken string `json:"correlation_token"`
	GatewayStatus    string `json:"gateway_status"`
	GatewayResponse  string `json:"gateway_response"`
	GatewayName      string `json:"gateway_name"`
	Machine          bool   `json:"machine"`
}

// Callback is the unauthenticated webhook the payment gateway calls. Replays are
// safe: the order state machine makes repeated callbacks idempotent.
// 200: payment summary for machine callers, order otherwise; 400: bad body; 404: unknown token.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCallback(r)
	if !ok {
		problem.Write(w, http.StatusBadRequest, "Invalid Body", "Callback body could not be decoded.")
		return
	}

	res, err := h.Reconciler.Reconcile(r.Context(), core.GatewayCallback{
		CorrelationToken:       req.CorrelationToken,
		GatewayStatus:          req.GatewayStatus,
		GatewayResponsePayload: req.GatewayResponse,
		GatewayName:            req.GatewayName,
		IsMachineCaller:        req.Machine,
	})
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	if res.Issued {
		h.Events.Event(core.EventPolicyIssued)
	}

	if res.Summary != nil {
		writeJSON(h.Log, w, http.StatusOK, res.Summary)
		return
	}
	writeJSON(h.Log, w, http.StatusOK, res.Order)
}

// decodeCallback accepts JSON or form-encoded bodies with the same field names.
func decodeCallback(r *http.Request) (callbackRequest, bool) {
	var req callbackRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			return req, false
		}
		req.CorrelationToken = r.PostFormValue("correlation_token")
		req.GatewayStatus = r.PostFormValue("gateway_status")
		req.GatewayResponse = r.PostFormValue("gateway_response")
		req.GatewayName = r.PostFormValue("gateway_name")
		req.Machine, _ = strconv.ParseBool(r.PostFormValue("machine"))
		return req, true
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
		return req, true
	}
}
