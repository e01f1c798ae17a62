package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pranhealth/drai/internal/assistant"
	"github.com/pranhealth/drai/pkg/logging"
)

var webhookTracer = otel.Tracer("drai.internal.httpapi")

// ResponsePipeline produces at most one reply for an inbound user message.
type ResponsePipeline interface {
	Handle(ctx context.Context, in assistant.Inbound) (string, bool)
}

// webhookRequest is the action-server payload posted by the chat channel.
type webhookRequest struct {
	SenderID string          `json:"sender_id"`
	Message  string          `json:"message"`
	Metadata webhookMetadata `json:"metadata"`
}

type webhookMetadata struct {
	PatientID string `json:"patient_id"`
}

type webhookResponse struct {
	Responses []responseItem `json:"responses"`
}

type responseItem struct {
	Text string `json:"text"`
}

// Handler handles assistant webhook requests.
type Handler struct {
	pipeline ResponsePipeline
	logger   *logging.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(pipeline ResponsePipeline, logger *logging.Logger) *Handler {
	if pipeline == nil {
		panic("httpapi: pipeline cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pipeline: pipeline, logger: logger}
}

// Webhook handles POST /webhooks/assistant requests. A suppressed reply
// returns an empty responses array, never an error.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "httpapi.webhook")
	defer span.End()

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode webhook payload", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}

	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" {
		err := errors.New("missing sender_id")
		h.logger.Error("invalid webhook payload", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	span.SetAttributes(attribute.String("drai.sender_id", req.SenderID))

	reply, sent := h.pipeline.Handle(ctx, assistant.Inbound{
		SenderID:  req.SenderID,
		Message:   req.Message,
		PatientID: strings.TrimSpace(req.Metadata.PatientID),
	})

	resp := webhookResponse{Responses: []responseItem{}}
	if sent {
		resp.Responses = append(resp.Responses, responseItem{Text: reply})
	}
	span.SetAttributes(attribute.Bool("drai.replied", sent))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode webhook response", "error", err)
	}
}

// HealthCheck handles GET /health requests.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
