package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payrelay/internal/core"
	"payrelay/internal/types"
)

// CheckoutVerification validates a completed checkout against the provider.
// Satisfied by *billing.CheckoutVerifier.
type CheckoutVerification interface {
	Verify(ctx context.Context, paymentID, subscriptionID, signature string) (types.VerificationResult, error)
}

// VerifyHandler handles post-checkout verification requests from the
// frontend. The field names mirror what the Razorpay checkout widget hands
// to its success callback.
type VerifyHandler struct {
	verifier   CheckoutVerification
	validator  *core.Validator
	configured bool
	logger     *slog.Logger
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(verifier CheckoutVerification, validator *core.Validator, configured bool, logger *slog.Logger) *VerifyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyHandler{
		verifier:   verifier,
		validator:  validator,
		configured: configured,
		logger:     logger,
	}
}

// RegisterRoutes mounts the verification endpoint (under /v1).
func (h *VerifyHandler) RegisterRoutes(r chi.Router) {
	r.Post("/subscriptions/verify", h.Verify)
}

// verifyRequest is the checkout callback payload. The signature is optional:
// this endpoint is called by our own frontend right after checkout, and the
// provider lookups gate the outcome regardless.
type verifyRequest struct {
	PaymentID      string `json:"razorpay_payment_id" validate:"required"`
	SubscriptionID string `json:"razorpay_subscription_id" validate:"required"`
	Signature      string `json:"razorpay_signature"`
}

// verifyResponse is the success body: the checkout is confirmed and the
// captured payment is summarized.
type verifyResponse struct {
	OK      bool                   `json:"ok"`
	Payment *types.PaymentSnapshot `json:"payment"`
}

// Verify handles POST /v1/subscriptions/verify.
//
// A supplied checkout signature is checked first (no provider round-trips
// for a forged request), then the payment must be captured and the
// subscription active or authenticated. Any failed check is a 400 with the
// specific reason as the error code; provider transport failures surface as
// upstream errors.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if !h.configured {
		h.logger.ErrorContext(r.Context(), "provider API keys are not configured")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConfigMissingProviderKeys,
			"payment provider keys are not configured",
			nil,
		))
		return
	}

	var req verifyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.verifier.Verify(r.Context(), req.PaymentID, req.SubscriptionID, req.Signature)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "checkout verification failed upstream",
			"payment_id", req.PaymentID,
			"subscription_id", req.SubscriptionID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	if !result.Verified {
		h.logger.WarnContext(r.Context(), "checkout verification rejected",
			"payment_id", req.PaymentID,
			"subscription_id", req.SubscriptionID,
			"reason", result.Reason,
		)
		core.Error(w, r, verificationError(result))
		return
	}

	h.logger.InfoContext(r.Context(), "checkout verified",
		"payment_id", req.PaymentID,
		"subscription_id", req.SubscriptionID,
	)

	core.JSON(w, r, http.StatusOK, verifyResponse{
		OK:      true,
		Payment: result.Payment,
	})
}

// verificationError maps a rejected verification result onto the error
// taxonomy. Every reason maps to a 400.
func verificationError(result types.VerificationResult) *types.AppError {
	switch result.Reason {
	case types.VerifyReasonSignatureMismatch:
		return types.NewAppError(
			types.ErrCodeSignatureMismatch,
			"checkout signature verification failed",
			nil,
		)
	case types.VerifyReasonPaymentNotCaptured:
		return types.NewAppErrorWithDetails(
			types.ErrCodePaymentNotCaptured,
			"payment is not captured",
			nil,
			map[string]any{"status": string(result.Status)},
		)
	case types.VerifyReasonSubscriptionNotActive:
		return types.NewAppError(
			types.ErrCodeSubscriptionNotActive,
			"subscription is not active",
			nil,
		)
	default:
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"verification failed for an unknown reason",
			nil,
		)
	}
}
