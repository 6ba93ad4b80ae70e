// Package types defines the domain model and shared utility types for the
// payrelay service: Razorpay webhook envelopes, provider-owned entities,
// the normalized forward payload, and the error taxonomy.
//
// The service holds no authoritative copy of any entity in this file --
// customers, subscriptions, and payments are owned by the payment provider
// and reconstructed fresh on every request.
package types

import "encoding/json"

// SubscriptionStatus is the provider-owned subscription lifecycle state.
// Lifecycle: created -> authenticated -> active -> {completed|cancelled|expired},
// with pending as a transient pre-active state.
type SubscriptionStatus string

const (
	SubStatusCreated       SubscriptionStatus = "created"
	SubStatusPending       SubscriptionStatus = "pending"
	SubStatusAuthenticated SubscriptionStatus = "authenticated"
	SubStatusActive        SubscriptionStatus = "active"
	SubStatusCompleted     SubscriptionStatus = "completed"
	SubStatusCancelled     SubscriptionStatus = "cancelled"
	SubStatusExpired       SubscriptionStatus = "expired"
)

// Reusable reports whether an existing subscription in this state should be
// returned instead of creating a duplicate billing schedule.
func (s SubscriptionStatus) Reusable() bool {
	switch s {
	case SubStatusCreated, SubStatusPending, SubStatusAuthenticated:
		return true
	}
	return false
}

// ProvesCheckout reports whether this state is acceptable proof of a
// successful checkout.
func (s SubscriptionStatus) ProvesCheckout() bool {
	return s == SubStatusActive || s == SubStatusAuthenticated
}

// PaymentStatus is the provider-owned payment state.
type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// ---------------------------------------------------------------------------
// Inbound webhook envelope
// ---------------------------------------------------------------------------

// WebhookEvent is the decoded Razorpay webhook body: an event name plus a
// payload mapping entity kinds to wrapped entities.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// WebhookPayload carries the entity kinds observed on billing webhooks.
// Each kind is optional; Razorpay wraps every entity in an {entity: ...}
// envelope.
type WebhookPayload struct {
	Subscription *SubscriptionWrapper `json:"subscription,omitempty"`
	Payment      *PaymentWrapper      `json:"payment,omitempty"`
	Customer     *CustomerWrapper     `json:"customer,omitempty"`
	Order        *OrderWrapper        `json:"order,omitempty"`
}

type SubscriptionWrapper struct {
	Entity *SubscriptionEntity `json:"entity"`
}

type PaymentWrapper struct {
	Entity *PaymentEntity `json:"entity"`
}

type CustomerWrapper struct {
	Entity *CustomerEntity `json:"entity"`
}

type OrderWrapper struct {
	Entity *OrderEntity `json:"entity"`
}

// SubscriptionEntity is the subscription as echoed back on webhooks.
// Notes is the only channel carrying caller-supplied identity back through
// the provider; it is set by this service at subscription-creation time and
// round-tripped verbatim.
type SubscriptionEntity struct {
	ID         string             `json:"id"`
	PlanID     string             `json:"plan_id"`
	CustomerID string             `json:"customer_id"`
	Status     SubscriptionStatus `json:"status"`
	Notes      map[string]string  `json:"notes"`
}

// PaymentEntity is the payment as delivered on webhooks.
// Amount is in the smallest currency unit (paise for INR).
type PaymentEntity struct {
	ID       string        `json:"id"`
	Status   PaymentStatus `json:"status"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	Email    string        `json:"email"`
	Contact  string        `json:"contact"`
	OrderID  string        `json:"order_id"`
}

type CustomerEntity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type OrderEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ---------------------------------------------------------------------------
// Outbound forward payload
// ---------------------------------------------------------------------------

// ForwardPayload is the normalized record sent to the downstream automation
// endpoint. It is only ever constructed for billable events. Email and Name
// are pointers so that "unknown" serializes as an explicit null rather than
// being omitted; Raw always carries the original webhook body so the consumer
// can recover any field not surfaced here.
type ForwardPayload struct {
	Event          string          `json:"event"`
	PaymentID      string          `json:"payment_id,omitempty"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	OrderID        string          `json:"order_id,omitempty"`
	PlanID         string          `json:"plan_id,omitempty"`
	Amount         int64           `json:"amount,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	Email          *string         `json:"email"`
	Name           *string         `json:"name"`
	Raw            json.RawMessage `json:"raw"`
}

// ---------------------------------------------------------------------------
// Subscription creation
// ---------------------------------------------------------------------------

// SubscriptionRequest is the caller input for creating (or reusing) a
// recurring subscription. TotalCount, when present, must be a positive
// number of billing cycles.
type SubscriptionRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Contact    string `json:"contact" validate:"required"`
	PlanID     string `json:"plan_id" validate:"required"`
	TotalCount *int   `json:"total_count,omitempty" validate:"omitempty,gte=1"`
}

// SubscriptionPayload is the creation request sent to the provider.
// Exactly one of TotalCount/EndAt is set, never both, never neither.
// Notes always carries the request's identity fields regardless of whether a
// customer record could be attached.
type SubscriptionPayload struct {
	PlanID         string            `json:"plan_id"`
	CustomerID     string            `json:"customer_id,omitempty"`
	TotalCount     int               `json:"total_count,omitempty"`
	EndAt          int64             `json:"end_at,omitempty"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes"`
}

// Customer is the provider-owned customer record.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Subscription is the provider-owned subscription record as returned by the
// provider API.
type Subscription struct {
	ID         string             `json:"id"`
	PlanID     string             `json:"plan_id"`
	CustomerID string             `json:"customer_id"`
	Status     SubscriptionStatus `json:"status"`
	TotalCount int                `json:"total_count,omitempty"`
	EndAt      int64              `json:"end_at,omitempty"`
	ShortURL   string             `json:"short_url,omitempty"`
	Notes      map[string]string  `json:"notes,omitempty"`
}

// Payment is the provider-owned payment record as returned by the provider API.
type Payment struct {
	ID       string        `json:"id"`
	Status   PaymentStatus `json:"status"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	Email    string        `json:"email"`
}

// ---------------------------------------------------------------------------
// Checkout verification
// ---------------------------------------------------------------------------

// PaymentSnapshot is the trimmed payment view returned to verification callers.
type PaymentSnapshot struct {
	ID     string        `json:"id"`
	Status PaymentStatus `json:"status"`
	Amount int64         `json:"amount"`
}

// Verification failure reasons.
const (
	VerifyReasonSignatureMismatch     = "signature_mismatch"
	VerifyReasonPaymentNotCaptured    = "payment_not_captured"
	VerifyReasonSubscriptionNotActive = "subscription_not_active"
)

// VerificationResult is the outcome of a checkout verification: either
// Verified with a payment snapshot, or a failure reason (and, for
// payment_not_captured, the observed payment status).
type VerificationResult struct {
	Verified bool             `json:"verified"`
	Payment  *PaymentSnapshot `json:"payment,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Status   PaymentStatus    `json:"status,omitempty"`
}
