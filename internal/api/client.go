// Package api provides a typed HTTP client for the personal-trainer REST API.
//
// Customers are addressed by the absolute self link the server hands out;
// trainings are addressed by numeric id. The two schemes are kept apart on
// purpose and surface as distinct types in the method signatures.
package api

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
	"strings"
	"time"

	"github.com/DukeRupert/trainerdesk/internal/domain"
	"github.com/DukeRupert/trainerdesk/internal/metrics"
)

const (
	// DefaultBaseURL is the public personal-trainer API.
	DefaultBaseURL = "https://customer-rest-service-frontend-personaltrainer.2.rahtiapp.fi/api"

	customersPath     = "/customers"
	trainingsPath     = "/trainings"
	trainingsFlatPath = "/gettrainings"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4 << 10
)

// Config holds API client configuration.
type Config struct {
	// BaseURL is the API root (for example: https://host/api).
	BaseURL string
	// Timeout is the per-request timeout. Zero leaves the transport default.
	Timeout time.Duration
	// HTTPClient overrides the underlying client; Timeout is ignored when set.
	HTTPClient *http.Client
	// Logger receives debug lines for every call. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is the typed HTTP client for customers and trainings. It holds no
// state besides its configuration and is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("api: BaseURL must be an absolute URL, got %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues one request and decodes a 2xx JSON body into out (when out is
// non-nil). Failures are classified as network, upstream or internal errors.
func (c *Client) do(ctx context.Context, op, method, target string, body, out any) error {
	started := time.Now()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return domain.Internal(err, op, "failed to encode request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return domain.Internal(err, op, "failed to build request")
	}
	req.Header.Set("Accept", "application/hal+json, application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRemoteCall(op, "network_error", started)
		c.logger.Debug("api call failed", "op", op, "method", method, "url", target, "error", err)
		return domain.Network(err, op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.ObserveRemoteCall(op, "server_error", started)
		c.logger.Debug("api call rejected", "op", op, "method", method, "url", target, "status", resp.StatusCode)
		return domain.Upstream(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			metrics.ObserveRemoteCall(op, "decode_error", started)
			return domain.Internal(err, op, "failed to decode response")
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	metrics.ObserveRemoteCall(op, "ok", started)
	c.logger.Debug("api call", "op", op, "method", method, "url", target, "status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}
