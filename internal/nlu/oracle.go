// Package nlu talks to the language model used as an advisory fallback for
// classification, extraction and prompt rendering.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"quote-orchestrator/internal/metrics"
)

// ErrOracleUnavailable marks any failure to obtain usable text from the model.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// Oracle generates free text for a prompt.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaConfig holds the settings of a local Ollama server.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaClient calls the Ollama /api/generate endpoint without streaming.
type OllamaClient struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	baseURL    string
	model      string
	timeout    time.Duration
}

// NewOllama creates an Ollama oracle.
func NewOllama(logger *slog.Logger, m *metrics.Metrics, cfg OllamaConfig) *OllamaClient {
	if m == nil {
		m = metrics.New("", nil)
	}
	return &OllamaClient{
		logger:     logger.With("component", "nlu", "provider", "ollama"),
		metrics:    m,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Model    *string `json:"model"`
	Response *string `json:"response"`
	Done     *bool   `json:"done"`
}

func (r ollamaResponse) isEnvelope() bool {
	return r.Response != nil || r.Model != nil || r.Done != nil
}

// Generate returns the model's "response" field, or the raw body when the
// server answers with something other than the usual JSON envelope. An
// envelope with an empty response is reported as ErrOracleUnavailable.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(ollamaRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.OracleRequests.WithLabelValues("ollama", "error").Inc()
		return "", fmt.Errorf("%w: ollama http: %v", ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.OracleLatency.WithLabelValues("ollama").Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.OracleRequests.WithLabelValues("ollama", "error").Inc()
		return "", fmt.Errorf("%w: read body: %v", ErrOracleUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.OracleRequests.WithLabelValues("ollama", strconv.Itoa(resp.StatusCode)).Inc()
		return "", fmt.Errorf("%w: ollama status=%d", ErrOracleUnavailable, resp.StatusCode)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		c.metrics.OracleRequests.WithLabelValues("ollama", "empty").Inc()
		return "", fmt.Errorf("%w: ollama returned an empty body", ErrOracleUnavailable)
	}
	if !strings.HasPrefix(text, "{") {
		c.metrics.OracleRequests.WithLabelValues("ollama", "success").Inc()
		return text, nil
	}
	var decoded ollamaResponse
	if err := json.Unmarshal([]byte(text), &decoded); err != nil || !decoded.isEnvelope() {
		c.logger.Debug("ollama body is not the generate envelope, using raw text", "error", err)
		c.metrics.OracleRequests.WithLabelValues("ollama", "success").Inc()
		return text, nil
	}
	var out string
	if decoded.Response != nil {
		out = strings.TrimSpace(*decoded.Response)
	}
	if out == "" {
		c.metrics.OracleRequests.WithLabelValues("ollama", "empty").Inc()
		return "", fmt.Errorf("%w: ollama envelope without response", ErrOracleUnavailable)
	}
	c.metrics.OracleRequests.WithLabelValues("ollama", "success").Inc()
	return out, nil
}

// OpenAIConfig holds the settings of an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ChatModelOracle adapts an eino chat model to the Oracle interface.
type ChatModelOracle struct {
	chat     model.BaseChatModel
	provider string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewOpenAI builds an oracle on top of the eino OpenAI chat model.
func NewOpenAI(ctx context.Context, logger *slog.Logger, m *metrics.Metrics, cfg OpenAIConfig) (*ChatModelOracle, error) {
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init openai chat model: %w", err)
	}
	return NewChatModelOracle(chat, "openai", logger, m, cfg.Timeout), nil
}

// NewChatModelOracle wraps any eino chat model.
func NewChatModelOracle(chat model.BaseChatModel, provider string, logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *ChatModelOracle {
	if m == nil {
		m = metrics.New("", nil)
	}
	return &ChatModelOracle{
		chat:     chat,
		provider: provider,
		logger:   logger.With("component", "nlu", "provider", provider),
		metrics:  m,
		timeout:  timeout,
	}
}

// Generate sends prompt as a single user message.
func (o *ChatModelOracle) Generate(ctx context.Context, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := o.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	o.metrics.OracleLatency.WithLabelValues(o.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.OracleRequests.WithLabelValues(o.provider, "error").Inc()
		return "", fmt.Errorf("%w: %s generate: %v", ErrOracleUnavailable, o.provider, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		o.metrics.OracleRequests.WithLabelValues(o.provider, "empty").Inc()
		return "", fmt.Errorf("%w: %s returned no content", ErrOracleUnavailable, o.provider)
	}
	o.metrics.OracleRequests.WithLabelValues(o.provider, "success").Inc()
	return strings.TrimSpace(msg.Content), nil
}
