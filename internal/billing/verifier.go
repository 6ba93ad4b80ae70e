package billing

import (
	"context"
	"log/slog"

	"payrelay/internal/types"
)

// PaymentLookup is the slice of the provider API the checkout verifier
// needs. *external.RazorpayClient satisfies it.
type PaymentLookup interface {
	FetchPayment(ctx context.Context, paymentID string) (*types.Payment, error)
	FetchSubscription(ctx context.Context, subscriptionID string) (*types.Subscription, error)
}

// CheckoutVerifier validates the signature a checkout flow hands back to the
// browser and confirms server-side that the money was actually collected.
// The browser-supplied signature alone is never trusted as proof of payment.
type CheckoutVerifier struct {
	provider  PaymentLookup
	keySecret string
	logger    *slog.Logger
}

// NewCheckoutVerifier creates a CheckoutVerifier keyed with the API key
// secret used to countersign checkout results.
func NewCheckoutVerifier(provider PaymentLookup, keySecret string, logger *slog.Logger) *CheckoutVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutVerifier{
		provider:  provider,
		keySecret: keySecret,
		logger:    logger,
	}
}

// Verify checks a completed checkout in three steps:
//  1. A supplied signature must match HMAC-SHA256("<paymentID>|<subscriptionID>")
//     under the API key secret. An absent signature is tolerated (the caller
//     is the frontend right after checkout, not an untrusted third party);
//     the provider lookups below gate the outcome either way.
//  2. The payment, fetched fresh from the provider, must be captured.
//  3. The subscription, fetched fresh from the provider, must be active or
//     authenticated.
//
// A failed check returns a result with Verified false and the reason; err is
// reserved for provider transport failures.
func (v *CheckoutVerifier) Verify(ctx context.Context, paymentID, subscriptionID, signature string) (types.VerificationResult, error) {
	if signature == "" {
		v.logger.WarnContext(ctx, "checkout verification requested without a signature",
			"payment_id", paymentID,
			"subscription_id", subscriptionID,
		)
	} else if !VerifyCheckoutSignature(paymentID, subscriptionID, signature, v.keySecret) {
		v.logger.WarnContext(ctx, "checkout signature mismatch",
			"payment_id", paymentID,
			"subscription_id", subscriptionID,
		)
		return types.VerificationResult{
			Verified: false,
			Reason:   types.VerifyReasonSignatureMismatch,
		}, nil
	}

	payment, err := v.provider.FetchPayment(ctx, paymentID)
	if err != nil {
		return types.VerificationResult{}, err
	}
	if payment.Status != types.PaymentStatusCaptured {
		return types.VerificationResult{
			Verified: false,
			Reason:   types.VerifyReasonPaymentNotCaptured,
			Status:   payment.Status,
		}, nil
	}

	sub, err := v.provider.FetchSubscription(ctx, subscriptionID)
	if err != nil {
		return types.VerificationResult{}, err
	}
	if !sub.Status.ProvesCheckout() {
		return types.VerificationResult{
			Verified: false,
			Reason:   types.VerifyReasonSubscriptionNotActive,
		}, nil
	}

	return types.VerificationResult{
		Verified: true,
		Payment: &types.PaymentSnapshot{
			ID:     payment.ID,
			Status: payment.Status,
			Amount: payment.Amount,
		},
	}, nil
}
