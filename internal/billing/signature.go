// Package billing implements the payment-provider integration logic:
// webhook signature verification, billable-event classification,
// subscription reconciliation, and checkout verification.
//
// The service holds no state of its own. Every decision is made from the
// incoming request plus fresh provider lookups.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// computeHMAC computes the HMAC-SHA256 of content using the given key
// and returns it as a lowercase hex string.
func computeHMAC(content []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(content)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a raw webhook body against the signature the
// provider sent in X-Razorpay-Signature. The signature is HMAC-SHA256 over
// the exact body bytes, hex encoded.
//
// Verification fails closed: a missing signature or an unconfigured secret
// is a mismatch, never a pass. Comparison is constant time.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := computeHMAC(body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// VerifyCheckoutSignature checks the signature the provider's checkout
// returns to the browser after a subscription payment. The signed content is
// "<paymentID>|<subscriptionID>" keyed with the API key secret.
func VerifyCheckoutSignature(paymentID, subscriptionID, signature, keySecret string) bool {
	if signature == "" || keySecret == "" {
		return false
	}
	expected := computeHMAC([]byte(paymentID+"|"+subscriptionID), keySecret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
