// Package http exposes the tracker over the webhook and dashboard endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
	"github.com/colispro/delivery_tracker/internal/tracker_service/inbound"
)

// TrackerApp is the application surface the handlers call into.
type TrackerApp interface {
	Reconcile(ctx context.Context, msg domain.InboundMessage) (*domain.Client, error)
	ConfirmDelivery(ctx context.Context, name string, qty int) (string, error)
	DeleteClient(ctx context.Context, name string, clientID *int64) error
	ListClients(ctx context.Context) ([]domain.Client, error)
	ListMessages(ctx context.Context) ([]domain.MessageWithClientName, error)
	Ping(ctx context.Context) error
}

// TrackerHandler serves the webhook ingest, admin mutations, and the
// dashboard read endpoints.
type TrackerHandler struct {
	app        TrackerApp
	normalizer *inbound.Normalizer
	logger     *slog.Logger
	validate   *validator.Validate
}

func NewTrackerHandler(app TrackerApp, normalizer *inbound.Normalizer, logger *slog.Logger, validate *validator.Validate) *TrackerHandler {
	return &TrackerHandler{
		app:        app,
		normalizer: normalizer,
		logger:     logger.With("handler", "tracker"),
		validate:   validate,
	}
}

// HandleHome answers the liveness probe used by uptime checks.
func (h *TrackerHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Delivery Tracker API Running"))
}

// HandleHealthz reports readiness including store connectivity.
func (h *TrackerHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSMS ingests one webhook message. Webhook providers retire endpoints
// that return non-2xx, so parse failures degrade to placeholder records and
// the response is 200 "OK" in every case short of a store failure.
func (h *TrackerHandler) HandleSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	payload := decodePayload(r)
	smsReceivedCounter.WithLabelValues(payloadKindLabel(payload.Kind)).Inc()

	msg := h.normalizer.Normalize(payload)
	logger.DebugContext(ctx, "webhook payload normalized",
		"kind", payloadKindLabel(payload.Kind),
		"phone", msg.Phone,
		"name", msg.Name,
	)

	client, err := h.app.Reconcile(ctx, msg)
	if err != nil {
		logger.ErrorContext(ctx, "failed to store inbound message", "error", err, "phone", msg.Phone)
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "storage failure"})
		return
	}

	logger.InfoContext(ctx, "sms saved", "phone", client.Phone, "status_term", client.StatusTerm)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// HandleListClients serves the dashboard client projection.
func (h *TrackerHandler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.app.ListClients(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list clients"})
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

// HandleListMessages serves the message history, newest first.
func (h *TrackerHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.app.ListMessages(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list messages"})
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// HandleDeliver confirms delivered boxes for a named client and returns the
// recomputed status.
func (h *TrackerHandler) HandleDeliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req DeliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed: " + err.Error()})
		return
	}

	qty := 1
	if req.DeliveredQty != nil {
		qty = *req.DeliveredQty
	}

	status, err := h.app.ConfirmDelivery(ctx, req.Name, qty)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "Client not found"})
	case errors.Is(err, domain.ErrValidation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		logger.ErrorContext(ctx, "delivery confirmation failed", "error", err, "name", req.Name)
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "storage failure"})
	default:
		respondJSON(w, http.StatusOK, DeliverResponse{Status: status})
	}
}

// HandleDeleteClient removes a client by name or ID. 400 when neither
// identifier is supplied, 404 when nothing matches.
func (h *TrackerHandler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req DeleteClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	err := h.app.DeleteClient(ctx, req.Name, req.ClientID)
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, DeleteClientResponse{Deleted: false, Error: "Client not found"})
	case err != nil:
		logger.ErrorContext(ctx, "client deletion failed", "error", err, "name", req.Name)
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "storage failure"})
	default:
		respondJSON(w, http.StatusOK, DeleteClientResponse{Deleted: true})
	}
}

// decodePayload maps the request body onto the tagged payload union by
// content type: JSON and form bodies become field maps, anything else is kept
// as raw text. A body that fails to decode degrades to raw rather than
// erroring, matching the always-200 webhook contract.
func decodePayload(r *http.Request) inbound.Payload {
	ct := r.Header.Get("Content-Type")

	switch {
	case strings.Contains(ct, "application/json"):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return inbound.Payload{Kind: inbound.KindRaw}
		}
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return inbound.Payload{Kind: inbound.KindRaw, Raw: string(body)}
		}
		return inbound.Payload{Kind: inbound.KindJSON, Fields: stringifyFields(decoded)}

	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return inbound.Payload{Kind: inbound.KindRaw}
		}
		return formPayload(r)

	case strings.Contains(ct, "multipart/form-data"):
		// ParseForm skips multipart bodies; ParseMultipartForm merges the
		// field values into r.PostForm.
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return inbound.Payload{Kind: inbound.KindRaw}
		}
		return formPayload(r)

	default:
		body, _ := io.ReadAll(r.Body)
		return inbound.Payload{Kind: inbound.KindRaw, Raw: string(body)}
	}
}

func formPayload(r *http.Request) inbound.Payload {
	fields := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return inbound.Payload{Kind: inbound.KindForm, Fields: fields}
}

// stringifyFields flattens a decoded JSON object to string values; nested
// values keep their printed form.
func stringifyFields(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			// fmt.Sprint renders large numbers in scientific notation,
			// which mangles numeric phone fields.
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func payloadKindLabel(k inbound.PayloadKind) string {
	switch k {
	case inbound.KindJSON:
		return "json"
	case inbound.KindForm:
		return "form"
	default:
		return "raw"
	}
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
