// Package backend is the REST client for the backend data service that owns
// clients, branches and quotes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quote-orchestrator/internal/cache"
	"quote-orchestrator/internal/metrics"
)

const defaultBranchCacheTTL = 10 * time.Minute

var (
	// ErrNotFound is returned when the backend answers 404 for a lookup.
	ErrNotFound = errors.New("backend record not found")
	// ErrUnavailable marks failures where the backend could not be consulted at all.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnauthorized indicates the backend rejected the service token.
	ErrUnauthorized = errors.New("backend unauthorized")
)

// StatusError carries a non-2xx backend answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend error: status=%d body=%s", e.Status, e.Body)
}

// Config holds backend client configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	BranchCacheTTL time.Duration
}

// Client provides typed access to the backend data service.
type Client struct {
	logger    *slog.Logger
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	metrics   *metrics.Metrics
	cache     *cache.Redis
	branchTTL time.Duration
}

// New creates a backend client. redis may be nil, in which case branch lookups are not cached.
func New(cfg Config, tokens TokenSource, logger *slog.Logger, m *metrics.Metrics, redis *cache.Redis) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.BranchCacheTTL
	if ttl <= 0 {
		ttl = defaultBranchCacheTTL
	}
	if m == nil {
		m = metrics.New("", nil)
	}
	return &Client{
		logger:    logger.With("component", "backend"),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		tokens:    tokens,
		metrics:   m,
		cache:     redis,
		branchTTL: ttl,
	}
}

// SearchClientsByName queries the client directory. A 404 means no matches;
// auth, server and network failures come back wrapped in ErrUnavailable.
func (c *Client) SearchClientsByName(ctx context.Context, name string) ([]ClientRecord, error) {
	endpoint := "/users/search?q=" + url.QueryEscape(strings.TrimSpace(name))
	body, err := c.do(ctx, http.MethodGet, endpoint, "/users/search", nil)
	if errors.Is(err, ErrNotFound) {
		c.logger.Info("client search returned 404", "name", name)
		return []ClientRecord{}, nil
	}
	if err != nil {
		c.logger.Warn("client search failed", "name", name, "error", err)
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	records, err := decodeClientList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return records, nil
}

// GetClientByID fetches one client. Missing clients yield ErrNotFound.
func (c *Client) GetClientByID(ctx context.Context, id string) (*ClientRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/users/user/"+url.PathEscape(id), "/users/user/{id}", nil)
	if err != nil {
		return nil, err
	}
	var rec ClientRecord
	if err := json.Unmarshal(unwrapData(body), &rec); err != nil {
		return nil, fmt.Errorf("decode client: %w", err)
	}
	if rec.ID == "" {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// GetBranch fetches one branch, through the redis cache when configured.
func (c *Client) GetBranch(ctx context.Context, id string) (*Branch, error) {
	cacheKey := "quote:branch:" + id
	if c.cache != nil {
		var cached Branch
		ok, err := c.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			c.logger.Warn("read branch cache failed", "error", err)
		} else if ok {
			return &cached, nil
		}
	}

	body, err := c.do(ctx, http.MethodGet, "/sucursales/"+url.PathEscape(id), "/sucursales/{id}", nil)
	if err != nil {
		return nil, err
	}
	var b Branch
	if err := json.Unmarshal(unwrapData(body), &b); err != nil {
		return nil, fmt.Errorf("decode branch: %w", err)
	}
	if b.ID == "" {
		b.ID = id
	}
	if b.Name == "" {
		b.Name = id
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, b, c.branchTTL); err != nil {
			c.logger.Warn("set branch cache failed", "error", err)
		}
	}
	return &b, nil
}

// Branches lists a client's branches: embedded ones as-is, referenced ids resolved
// one by one. Ids the backend no longer knows are skipped.
func (c *Client) Branches(ctx context.Context, rec ClientRecord) ([]Branch, error) {
	out := make([]Branch, 0, len(rec.Branches)+len(rec.BranchIDs))
	out = append(out, rec.Branches...)
	for _, id := range rec.BranchIDs {
		b, err := c.GetBranch(ctx, id)
		if errors.Is(err, ErrNotFound) {
			c.logger.Warn("branch referenced by client not found", "client_id", rec.ID, "branch_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve branch %s: %w", id, err)
		}
		out = append(out, *b)
	}
	return out, nil
}

// CreateQuote posts the assembled quote payload.
func (c *Client) CreateQuote(ctx context.Context, payload map[string]any) (*QuoteRecord, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal quote: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/cotizaciones", "/cotizaciones", bytes.NewReader(raw))
	if err != nil {
		c.logger.Error("create quote failed", "error", err)
		return nil, fmt.Errorf("create quote: %w", err)
	}
	var decoded map[string]any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
	}
	return parseQuoteRecord(decoded), nil
}

func (c *Client) do(ctx context.Context, method, endpoint, label string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "quote-orchestrator/backend-client")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(label, "error").Inc()
		return nil, fmt.Errorf("%w: backend request: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	statusLabel := strconv.Itoa(res.StatusCode)
	c.metrics.BackendRequests.WithLabelValues(label, statusLabel).Inc()
	c.metrics.BackendLatency.WithLabelValues(label, statusLabel).Observe(time.Since(start).Seconds())

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if res.StatusCode >= 400 {
		return nil, classifyHTTPError(res.StatusCode, string(bodyBytes))
	}
	return bodyBytes, nil
}

func classifyHTTPError(status int, body string) error {
	statusErr := &StatusError{Status: status, Body: strings.TrimSpace(body)}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, statusErr)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, statusErr)
	case status >= 500:
		return fmt.Errorf("%w: %w", ErrUnavailable, statusErr)
	default:
		return statusErr
	}
}

// unwrapData returns the "data" member of an envelope, or body unchanged.
func unwrapData(body []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if inner, ok := env["data"]; ok && len(inner) > 0 && inner[0] == '{' {
		return inner
	}
	return body
}
