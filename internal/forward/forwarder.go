// Package forward delivers normalized billing payloads to the downstream
// automation endpoint. Delivery is strictly best effort: the webhook handler
// acknowledges the provider no matter what happens here, so every failure
// path ends in a log line rather than a propagated error.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"payrelay/internal/types"
)

// maxResponseBodyRead limits how much of a response body we read for error
// reporting.
const maxResponseBodyRead = 4096

// Config holds the forwarder settings.
type Config struct {
	// URL is the downstream endpoint. Empty disables forwarding.
	URL string

	// Timeout bounds each delivery attempt. Zero defaults to 10s.
	Timeout time.Duration

	// UserAgent is sent as the User-Agent header.
	UserAgent string
}

// Forwarder POSTs forward payloads as JSON to a single configured endpoint.
type Forwarder struct {
	client    *http.Client
	url       string
	userAgent string
	logger    *slog.Logger
}

// New creates a Forwarder. The httpClient may be nil, in which case a client
// with the configured timeout is constructed.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Forwarder{
		client:    httpClient,
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Enabled reports whether a downstream endpoint is configured.
func (f *Forwarder) Enabled() bool {
	return f.url != ""
}

// Deliver POSTs the payload to the downstream endpoint. It returns an error
// for the caller to log; callers must never let that error affect the
// webhook acknowledgement.
//
// Each delivery carries an X-Delivery-Id header so the consumer can
// deduplicate provider webhook retries.
func (f *Forwarder) Deliver(ctx context.Context, payload *types.ForwardPayload) error {
	if !f.Enabled() {
		return fmt.Errorf("forward endpoint not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding forward payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.NewString())
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if reqID := types.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering forward payload: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("forward endpoint returned %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	f.logger.InfoContext(ctx, "forward payload delivered",
		"event", payload.Event,
		"status", resp.StatusCode,
	)
	return nil
}

// truncateBody shortens a response body for log output.
func truncateBody(body []byte) string {
	const maxLen = 256
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "..."
}
