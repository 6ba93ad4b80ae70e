package billing

import (
	"context"
	"log/slog"

	"payrelay/internal/types"
)

// ProviderClient is the slice of the provider API the reconciler needs.
// *external.RazorpayClient satisfies it; tests supply fakes.
type ProviderClient interface {
	FindCustomerByContact(ctx context.Context, contact string) (*types.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*types.Customer, error)
	CreateCustomer(ctx context.Context, name, email, contact string) (*types.Customer, error)
	UpdateCustomer(ctx context.Context, customerID, name, email, contact string) (*types.Customer, error)
	ListSubscriptionsByPlan(ctx context.Context, planID string) ([]types.Subscription, error)
	CreateSubscription(ctx context.Context, payload types.SubscriptionPayload) (*types.Subscription, error)
}

// ReconcilerConfig carries the billing-bound policy for new subscriptions.
type ReconcilerConfig struct {
	// DurationYears, when positive, bounds new subscriptions by an absolute
	// end date this many years out instead of a cycle count.
	DurationYears int

	// DefaultCycles is the cycle count used when the caller does not supply
	// one and no duration is configured.
	DefaultCycles int
}

// Reconciler implements idempotent subscription startup: it attaches the
// request to an existing provider customer when one matches, reuses an
// in-flight subscription when one exists, and only then creates a new one.
type Reconciler struct {
	provider ProviderClient
	clock    types.Clock
	logger   *slog.Logger
	cfg      ReconcilerConfig
}

// NewReconciler creates a Reconciler. A zero DefaultCycles is normalized
// to 12.
func NewReconciler(provider ProviderClient, clock types.Clock, logger *slog.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.DefaultCycles <= 0 {
		cfg.DefaultCycles = 12
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Reconciler{
		provider: provider,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// StartSubscription resolves the caller to a provider customer and returns a
// subscription for the requested plan, creating one only when no reusable
// subscription exists.
//
// The reused flag is true when an existing subscription was returned instead
// of a newly created one.
//
// Customer resolution is best effort: a lookup or create failure is logged
// and the flow continues without a customer binding, because the request's
// identity always travels in the subscription notes regardless.
func (r *Reconciler) StartSubscription(ctx context.Context, req types.SubscriptionRequest) (sub *types.Subscription, reused bool, err error) {
	customer := r.resolveCustomer(ctx, req)

	// A known customer may already have an in-flight subscription for this
	// plan. Reuse it instead of stacking a second billing schedule.
	if customer != nil {
		existing, lookupErr := r.findReusable(ctx, req.PlanID, customer.ID)
		if lookupErr != nil {
			r.logger.WarnContext(ctx, "subscription reuse lookup failed, creating new",
				"plan_id", req.PlanID,
				"customer_id", customer.ID,
				"error", lookupErr,
			)
		} else if existing != nil {
			r.logger.InfoContext(ctx, "reusing in-flight subscription",
				"subscription_id", existing.ID,
				"status", existing.Status,
			)
			return existing, true, nil
		}
	}

	payload := r.buildPayload(req, customer)
	created, err := r.provider.CreateSubscription(ctx, payload)
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

// resolveCustomer finds or creates the provider customer record for the
// request, preferring a contact match over an email match. When an existing
// record is found its name and email are refreshed to the request's values.
// Returns nil when no customer could be resolved.
func (r *Reconciler) resolveCustomer(ctx context.Context, req types.SubscriptionRequest) *types.Customer {
	customer, err := r.provider.FindCustomerByContact(ctx, req.Contact)
	if err != nil {
		r.logger.WarnContext(ctx, "customer lookup by contact failed", "error", err)
	}
	if customer == nil {
		customer, err = r.provider.FindCustomerByEmail(ctx, req.Email)
		if err != nil {
			r.logger.WarnContext(ctx, "customer lookup by email failed", "error", err)
		}
	}

	if customer != nil {
		// The request reflects what the user just typed; refresh the provider
		// record when it drifted, but never block on the sync.
		if customer.Name == req.Name && customer.Email == req.Email && customer.Contact == req.Contact {
			return customer
		}
		updated, updateErr := r.provider.UpdateCustomer(ctx, customer.ID, req.Name, req.Email, req.Contact)
		if updateErr != nil {
			r.logger.WarnContext(ctx, "customer refresh failed, using stale record",
				"customer_id", customer.ID,
				"error", updateErr,
			)
			return customer
		}
		return updated
	}

	created, createErr := r.provider.CreateCustomer(ctx, req.Name, req.Email, req.Contact)
	if createErr != nil {
		r.logger.WarnContext(ctx, "customer creation failed, continuing without customer binding",
			"error", createErr,
		)
		return nil
	}
	return created
}

// findReusable returns the customer's existing subscription for the plan if
// one is still in a pre-active state (created, pending, authenticated).
func (r *Reconciler) findReusable(ctx context.Context, planID, customerID string) (*types.Subscription, error) {
	subs, err := r.provider.ListSubscriptionsByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].CustomerID == customerID && subs[i].Status.Reusable() {
			found := subs[i]
			return &found, nil
		}
	}
	return nil, nil
}

// buildPayload assembles the provider creation request. Exactly one billing
// bound is set: the caller's total_count when given, otherwise an absolute
// end date when a duration is configured, otherwise the default cycle count.
func (r *Reconciler) buildPayload(req types.SubscriptionRequest, customer *types.Customer) types.SubscriptionPayload {
	payload := types.SubscriptionPayload{
		PlanID:         req.PlanID,
		CustomerNotify: 1,
		Notes: map[string]string{
			"name":    req.Name,
			"email":   req.Email,
			"contact": req.Contact,
		},
	}
	if customer != nil {
		payload.CustomerID = customer.ID
	}

	switch {
	case req.TotalCount != nil:
		payload.TotalCount = *req.TotalCount
	case r.cfg.DurationYears > 0:
		payload.EndAt = r.clock.Now().AddDate(r.cfg.DurationYears, 0, 0).Unix()
	default:
		payload.TotalCount = r.cfg.DefaultCycles
	}

	return payload
}
