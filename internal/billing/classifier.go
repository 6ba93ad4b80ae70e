package billing

import (
	"payrelay/internal/types"
)

// Billable event names. Everything else is acknowledged and dropped.
const (
	eventPaymentCaptured       = "payment.captured"
	eventSubscriptionCharged   = "subscription.charged"
	eventSubscriptionActivated = "subscription.activated"
	eventOrderPaid             = "order.paid"
)

// Classify decides whether a verified webhook event represents money actually
// collected and, if so, builds the normalized payload to forward downstream.
// It returns nil for every non-billable event.
//
// Billable events are payment.captured, subscription.charged,
// subscription.activated, and order.paid -- and every one of them must carry
// a captured payment entity. A subscription merely activated (or an order
// event without a captured charge) does not prove collection and would
// double-count revenue downstream.
//
// raw is the exact webhook body; it is attached to the payload so the
// consumer can recover fields not surfaced in the normalized view.
func Classify(event *types.WebhookEvent, raw []byte) *types.ForwardPayload {
	if event == nil {
		return nil
	}

	payment := paymentEntity(event)
	if payment == nil || payment.Status != types.PaymentStatusCaptured {
		return nil
	}

	payload := &types.ForwardPayload{
		Event:     event.Event,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Email:     resolveEmail(event),
		Name:      resolveName(event),
		Raw:       raw,
	}

	// Each event type forwards only its own reference fields. Anything else
	// the consumer needs lives in Raw.
	switch event.Event {
	case eventPaymentCaptured:
	case eventSubscriptionCharged, eventSubscriptionActivated:
		if sub := subscriptionEntity(event); sub != nil {
			payload.SubscriptionID = sub.ID
			payload.PlanID = sub.PlanID
		}
	case eventOrderPaid:
		payload.OrderID = payment.OrderID
		if order := orderEntity(event); order != nil && payload.OrderID == "" {
			payload.OrderID = order.ID
		}
	default:
		return nil
	}

	return payload
}

// resolveEmail picks the payer email by precedence: subscription notes
// (caller-supplied identity round-tripped through the provider), then the
// payment record, then the customer record. Returns nil when no source has
// one, so the payload carries an explicit null.
func resolveEmail(event *types.WebhookEvent) *string {
	if sub := subscriptionEntity(event); sub != nil {
		if email := sub.Notes["email"]; email != "" {
			return &email
		}
	}
	if payment := paymentEntity(event); payment != nil && payment.Email != "" {
		email := payment.Email
		return &email
	}
	if customer := customerEntity(event); customer != nil && customer.Email != "" {
		email := customer.Email
		return &email
	}
	return nil
}

// resolveName picks the payer name with the same precedence as resolveEmail.
// Payments carry no name, so the fallback chain is notes then customer.
func resolveName(event *types.WebhookEvent) *string {
	if sub := subscriptionEntity(event); sub != nil {
		if name := sub.Notes["name"]; name != "" {
			return &name
		}
	}
	if customer := customerEntity(event); customer != nil && customer.Name != "" {
		name := customer.Name
		return &name
	}
	return nil
}

func paymentEntity(event *types.WebhookEvent) *types.PaymentEntity {
	if event.Payload.Payment == nil {
		return nil
	}
	return event.Payload.Payment.Entity
}

func subscriptionEntity(event *types.WebhookEvent) *types.SubscriptionEntity {
	if event.Payload.Subscription == nil {
		return nil
	}
	return event.Payload.Subscription.Entity
}

func customerEntity(event *types.WebhookEvent) *types.CustomerEntity {
	if event.Payload.Customer == nil {
		return nil
	}
	return event.Payload.Customer.Entity
}

func orderEntity(event *types.WebhookEvent) *types.OrderEntity {
	if event.Payload.Order == nil {
		return nil
	}
	return event.Payload.Order.Entity
}
