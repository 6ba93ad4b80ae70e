package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payrelay/internal/core"
	"payrelay/internal/types"
)

// SubscriptionStarter creates or reuses a recurring subscription with the
// payment provider. Satisfied by *billing.Reconciler.
type SubscriptionStarter interface {
	StartSubscription(ctx context.Context, req types.SubscriptionRequest) (*types.Subscription, bool, error)
}

// SubscriptionHandler handles subscription creation requests.
type SubscriptionHandler struct {
	starter    SubscriptionStarter
	validator  *core.Validator
	configured bool
	logger     *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler. configured
// reports whether the provider API credentials are present; when false the
// handler rejects every request with a configuration error instead of
// letting the provider client fail with an opaque 401.
func NewSubscriptionHandler(starter SubscriptionStarter, validator *core.Validator, configured bool, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{
		starter:    starter,
		validator:  validator,
		configured: configured,
		logger:     logger,
	}
}

// RegisterRoutes mounts the subscription endpoints (under /v1).
func (h *SubscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/subscriptions", h.Create)
}

// subscriptionResponse is the success body for subscription creation.
// Reused distinguishes an idempotent hit on an existing open subscription
// from a freshly created one; both outcomes answer 200 so the frontend
// handles them uniformly.
type subscriptionResponse struct {
	OK           bool                `json:"ok"`
	Subscription *types.Subscription `json:"subscription"`
	Reused       bool                `json:"reused"`
}

// Create handles POST /v1/subscriptions.
//
// The operation is idempotent with respect to open subscriptions: if the
// resolved customer already has a subscription on the requested plan in a
// pre-active state, that subscription is returned instead of creating a
// duplicate billing schedule.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.configured {
		h.logger.ErrorContext(r.Context(), "provider API keys are not configured")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConfigMissingProviderKeys,
			"payment provider keys are not configured",
			nil,
		))
		return
	}

	var req types.SubscriptionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sub, reused, err := h.starter.StartSubscription(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "subscription start failed",
			"plan_id", req.PlanID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "subscription ready",
		"subscription_id", sub.ID,
		"plan_id", sub.PlanID,
		"status", sub.Status,
		"reused", reused,
	)

	core.JSON(w, r, http.StatusOK, subscriptionResponse{
		OK:           true,
		Subscription: sub,
		Reused:       reused,
	})
}
