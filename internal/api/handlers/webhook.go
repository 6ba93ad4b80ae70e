// Package handlers contains the HTTP handler implementations for the payrelay API.
//
// This file implements the Razorpay webhook ingress. The endpoint is NOT
// behind any auth middleware -- it is called directly by Razorpay. Security
// is provided by verifying the X-Razorpay-Signature header (HMAC-SHA256 over
// the raw body) against the shared webhook secret.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payrelay/internal/billing"
	"payrelay/internal/core"
	"payrelay/internal/types"
)

// maxWebhookBodySize is the maximum allowed size of a Razorpay webhook
// payload (64 KB). Billing webhook payloads are small; this limit protects
// against abuse.
const maxWebhookBodySize = 64 * 1024

// razorpaySignatureHeader carries the hex HMAC-SHA256 of the raw body.
const razorpaySignatureHeader = "X-Razorpay-Signature"

// EventForwarder delivers classified billable events to the downstream
// automation endpoint. Satisfied by *forward.Forwarder.
type EventForwarder interface {
	// Enabled reports whether a downstream URL is configured.
	Enabled() bool
	// Deliver posts the payload downstream. Best effort: the webhook
	// handler never propagates delivery failures to the sender.
	Deliver(ctx context.Context, payload *types.ForwardPayload) error
}

// WebhookHandler handles asynchronous billing events from Razorpay.
// It is unauthenticated (no session) but verifies the provider signature
// before trusting a single byte of the payload.
type WebhookHandler struct {
	forwarder EventForwarder
	secret    string
	logger    *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler with the provided dependencies.
// An empty secret is tolerated at construction; the handler reports it as a
// configuration error on each request instead of failing startup.
func NewWebhookHandler(forwarder EventForwarder, secret string, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		forwarder: forwarder,
		secret:    secret,
		logger:    logger,
	}
}

// RegisterRoutes mounts the webhook ingress endpoint. This is registered at
// the router root (not under /v1) because webhook routes are public.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/razorpay", h.Handle)
}

// webhookAck is the acknowledgement body returned for every authenticated
// webhook, billable or not.
type webhookAck struct {
	OK bool `json:"ok"`
}

// Handle processes an incoming Razorpay webhook event:
//
//  1. Reads the raw body (size-limited) and the X-Razorpay-Signature header.
//  2. Verifies the signature over the exact raw bytes. Fail closed: a missing
//     signature or missing secret never passes.
//  3. Classifies the event; non-billable events are acknowledged and dropped.
//  4. Forwards billable events downstream. Delivery failures are logged but
//     never surfaced to the sender -- Razorpay would otherwise retry an event
//     whose signature we already accepted.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"failed to read request body",
			err,
		))
		return
	}

	if h.secret == "" {
		h.logger.ErrorContext(r.Context(), "webhook secret is not configured")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConfigMissingWebhookSecret,
			"webhook secret is not configured",
			nil,
		))
		return
	}

	signature := r.Header.Get(razorpaySignatureHeader)
	if signature == "" {
		h.logger.WarnContext(r.Context(), "missing webhook signature header",
			"header", razorpaySignatureHeader,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeSignatureMissing,
			"missing "+razorpaySignatureHeader+" header",
			nil,
		))
		return
	}

	if !billing.VerifyWebhookSignature(body, signature, h.secret) {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeSignatureMismatch,
			"webhook signature verification failed",
			nil,
		))
		return
	}

	// Past this point the payload is authenticated. Every outcome below is
	// an acknowledgement: failing would only make Razorpay redeliver a body
	// we have already accepted.
	var event types.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to parse authenticated webhook body",
			"error", err,
		)
		core.JSON(w, r, http.StatusOK, webhookAck{OK: true})
		return
	}

	payload := billing.Classify(&event, body)
	if payload == nil {
		h.logger.InfoContext(r.Context(), "ignoring non-billable webhook event",
			"event", event.Event,
		)
		core.JSON(w, r, http.StatusOK, webhookAck{OK: true})
		return
	}

	h.logger.InfoContext(r.Context(), "processing billable webhook event",
		"event", payload.Event,
		"payment_id", payload.PaymentID,
		"subscription_id", payload.SubscriptionID,
	)

	if h.forwarder == nil || !h.forwarder.Enabled() {
		h.logger.WarnContext(r.Context(), "no forward URL configured, dropping billable event",
			"event", payload.Event,
			"payment_id", payload.PaymentID,
		)
	} else if err := h.forwarder.Deliver(r.Context(), payload); err != nil {
		h.logger.ErrorContext(r.Context(), "downstream delivery failed",
			"error_code", types.ErrCodeForwardFailed,
			"event", payload.Event,
			"payment_id", payload.PaymentID,
			"error", err,
		)
	}

	core.JSON(w, r, http.StatusOK, webhookAck{OK: true})
}
