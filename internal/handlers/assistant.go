// Package handlers exposes the assistant over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"quote-orchestrator/internal/convo"
	"quote-orchestrator/internal/metrics"
)

const maxRequestBytes = 64 << 10

// Conversation runs one dialogue turn.
type Conversation interface {
	HandleMessage(ctx context.Context, req convo.Request) (*convo.Response, error)
}

// AssistantHandler serves POST /assistant.
type AssistantHandler struct {
	conversation Conversation
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewAssistantHandler constructs the handler.
func NewAssistantHandler(conversation Conversation, m *metrics.Metrics, logger *slog.Logger) *AssistantHandler {
	if m == nil {
		m = metrics.New("", nil)
	}
	return &AssistantHandler{
		conversation: conversation,
		metrics:      m,
		logger:       logger.With("component", "assistant_handler"),
	}
}

func (h *AssistantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req convo.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		h.metrics.Errors.WithLabelValues("assistant_decode").Inc()
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.conversation.HandleMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Debug("client went away", "session_id", req.SessionID)
			return
		}
		h.metrics.Errors.WithLabelValues("assistant").Inc()
		h.logger.Error("assistant turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
