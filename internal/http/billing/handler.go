package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cnstrctnetwork/cnstrct/internal/billing"
	"github.com/cnstrctnetwork/cnstrct/internal/metrics"
)

// Stripe events are small; anything bigger is not a webhook.
const maxPayloadSize = 1 << 20

type Handler struct {
	reconciler *billing.Reconciler
}

func NewHandler(reconciler *billing.Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.receive)
	r.Options("/", h.preflight)
}

type messageResponse struct {
	Message        string `json:"message"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// receive answers Stripe with the status that drives its retry policy:
// 2xx settles the delivery, anything else has Stripe try again later.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read body"})
		return
	}

	event, err := h.reconciler.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrMissingSignature):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No signature found"})
		case errors.Is(err, billing.ErrSecretNotConfigured):
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Webhook secret not configured"})
		default:
			slog.Error("failed to verify webhook signature", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid signature"})
		}

		metrics.RecordWebhookEvent("unknown", "rejected")

		return
	}

	eventType := string(event.Type)

	outcome, err := h.reconciler.Apply(r.Context(), event)
	if err != nil {
		var failure *billing.Failure

		switch {
		case errors.Is(err, billing.ErrUserNotFound):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unable to find associated user"})
		case errors.As(err, &failure):
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failure.Message, Details: failure.Details})
		default:
			slog.Error("failed to process webhook", "type", eventType, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}

		metrics.RecordWebhookEvent(eventType, "failed")

		return
	}

	metrics.RecordWebhookEvent(eventType, "ok")
	writeJSON(w, http.StatusOK, messageResponse{Message: outcome.Message, SubscriptionID: outcome.SubscriptionID})
}
