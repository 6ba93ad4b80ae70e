package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"payrelay/internal/types"
)

// razorpayAPIBase is the default Razorpay API base URL.
// Overridable in tests via RazorpayClientConfig.BaseURL.
const razorpayAPIBase = "https://api.razorpay.com"

// customerPageSize is the page size used when scanning the customer list.
// 100 is the maximum the provider allows per request.
const customerPageSize = 100

// RazorpayClientConfig holds the configuration for creating a RazorpayClient.
type RazorpayClientConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string // Override for testing; defaults to razorpayAPIBase
	Logger    *slog.Logger
}

// RazorpayClient makes direct HTTP calls to the Razorpay REST API through
// BaseClient. This approach routes all requests through the platform's
// resilience infrastructure (circuit breaker, retries, error mapping) and
// makes testing with httptest straightforward.
//
// All endpoints use HTTP basic auth with the API key pair. Request bodies
// are JSON.
type RazorpayClient struct {
	base      *BaseClient
	keyID     string
	keySecret string
	baseURL   string
	logger    *slog.Logger
}

// NewRazorpayClient creates a new RazorpayClient. A nil httpClient gets a
// default client with a 30-second timeout.
func NewRazorpayClient(httpClient *http.Client, cfg RazorpayClientConfig) *RazorpayClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = razorpayAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"razorpay",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"PayRelay/1.0",
		WithSleepFunc(time.Sleep),
	)

	return &RazorpayClient{
		base:      base,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// NewRazorpayClientWithBase creates a RazorpayClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration.
func NewRazorpayClientWithBase(base *BaseClient, cfg RazorpayClientConfig) *RazorpayClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = razorpayAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RazorpayClient{
		base:      base,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// FindCustomerByContact scans the customer list for the first record whose
// contact matches. Returns (nil, nil) when no customer matches.
//
// The provider has no server-side contact filter, so this pages through the
// customer list and matches locally.
func (c *RazorpayClient) FindCustomerByContact(ctx context.Context, contact string) (*types.Customer, error) {
	return c.findCustomer(ctx, func(cust *types.Customer) bool {
		return cust.Contact == contact
	})
}

// FindCustomerByEmail scans the customer list for the first record whose
// email matches. Returns (nil, nil) when no customer matches.
func (c *RazorpayClient) FindCustomerByEmail(ctx context.Context, email string) (*types.Customer, error) {
	return c.findCustomer(ctx, func(cust *types.Customer) bool {
		return cust.Email == email
	})
}

// findCustomer pages through GET /v1/customers and returns the first record
// accepted by match.
func (c *RazorpayClient) findCustomer(ctx context.Context, match func(*types.Customer) bool) (*types.Customer, error) {
	skip := 0
	for {
		params := url.Values{}
		params.Set("count", strconv.Itoa(customerPageSize))
		params.Set("skip", strconv.Itoa(skip))

		resp, err := c.doGet(ctx, "/v1/customers", params)
		if err != nil {
			return nil, c.wrapTransportError("FindCustomer", err)
		}

		var page razorpayCollection[types.Customer]
		if decodeErr := c.decodeResponse(resp, "FindCustomer", &page); decodeErr != nil {
			return nil, decodeErr
		}

		for i := range page.Items {
			if match(&page.Items[i]) {
				found := page.Items[i]
				return &found, nil
			}
		}

		if len(page.Items) < customerPageSize {
			return nil, nil
		}
		skip += customerPageSize
	}
}

// CreateCustomer creates a customer record. fail_existing is disabled so the
// provider returns the existing record instead of erroring when the contact
// or email is already registered.
func (c *RazorpayClient) CreateCustomer(ctx context.Context, name, email, contact string) (*types.Customer, error) {
	body := map[string]any{
		"name":          name,
		"email":         email,
		"contact":       contact,
		"fail_existing": "0",
	}

	resp, err := c.doPost(ctx, "/v1/customers", body)
	if err != nil {
		return nil, c.wrapTransportError("CreateCustomer", err)
	}

	var customer types.Customer
	if decodeErr := c.decodeResponse(resp, "CreateCustomer", &customer); decodeErr != nil {
		return nil, decodeErr
	}
	return &customer, nil
}

// UpdateCustomer updates the name, email, and contact of an existing
// customer record.
func (c *RazorpayClient) UpdateCustomer(ctx context.Context, customerID, name, email, contact string) (*types.Customer, error) {
	body := map[string]any{
		"name":    name,
		"email":   email,
		"contact": contact,
	}

	resp, err := c.doPut(ctx, "/v1/customers/"+customerID, body)
	if err != nil {
		return nil, c.wrapTransportError("UpdateCustomer", err)
	}

	var customer types.Customer
	if decodeErr := c.decodeResponse(resp, "UpdateCustomer", &customer); decodeErr != nil {
		return nil, decodeErr
	}
	return &customer, nil
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

// ListSubscriptionsByPlan returns subscriptions created against the given
// plan, newest first, up to one provider page.
func (c *RazorpayClient) ListSubscriptionsByPlan(ctx context.Context, planID string) ([]types.Subscription, error) {
	params := url.Values{}
	params.Set("plan_id", planID)
	params.Set("count", strconv.Itoa(customerPageSize))

	resp, err := c.doGet(ctx, "/v1/subscriptions", params)
	if err != nil {
		return nil, c.wrapTransportError("ListSubscriptionsByPlan", err)
	}

	var page razorpayCollection[types.Subscription]
	if decodeErr := c.decodeResponse(resp, "ListSubscriptionsByPlan", &page); decodeErr != nil {
		return nil, decodeErr
	}
	return page.Items, nil
}

// CreateSubscription creates a new subscription from the given payload.
func (c *RazorpayClient) CreateSubscription(ctx context.Context, payload types.SubscriptionPayload) (*types.Subscription, error) {
	resp, err := c.doPost(ctx, "/v1/subscriptions", payload)
	if err != nil {
		return nil, c.wrapTransportError("CreateSubscription", err)
	}

	var sub types.Subscription
	if decodeErr := c.decodeResponse(resp, "CreateSubscription", &sub); decodeErr != nil {
		return nil, decodeErr
	}
	return &sub, nil
}

// FetchSubscription retrieves a subscription by ID.
func (c *RazorpayClient) FetchSubscription(ctx context.Context, subscriptionID string) (*types.Subscription, error) {
	resp, err := c.doGet(ctx, "/v1/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, c.wrapTransportError("FetchSubscription", err)
	}

	var sub types.Subscription
	if decodeErr := c.decodeResponse(resp, "FetchSubscription", &sub); decodeErr != nil {
		return nil, decodeErr
	}
	return &sub, nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// FetchPayment retrieves a payment by ID.
func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*types.Payment, error) {
	resp, err := c.doGet(ctx, "/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, c.wrapTransportError("FetchPayment", err)
	}

	var payment types.Payment
	if decodeErr := c.decodeResponse(resp, "FetchPayment", &payment); decodeErr != nil {
		return nil, decodeErr
	}
	return &payment, nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Ping checks that the provider API is reachable and that the configured
// credentials are accepted. It fetches a single-item customer page, which is
// the cheapest authenticated request the API offers.
func (c *RazorpayClient) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("count", "1")

	resp, err := c.doGet(ctx, "/v1/customers", params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("razorpay API returned status %d", resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP Helpers
// ---------------------------------------------------------------------------

// doGet performs an authenticated GET request to the Razorpay API.
func (c *RazorpayClient) doGet(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	return c.base.Do(req)
}

// doPost performs an authenticated POST request with a JSON body.
func (c *RazorpayClient) doPost(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

// doPut performs an authenticated PUT request with a JSON body.
func (c *RazorpayClient) doPut(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

func (c *RazorpayClient) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to encode Razorpay request body",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	return c.base.Do(req)
}

// decodeResponse closes the response body, maps non-2xx statuses to
// AppErrors, and decodes a 2xx body into dst.
func (c *RazorpayClient) decodeResponse(resp *http.Response, operation string, dst any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp, operation)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("%s: failed to decode Razorpay response", operation),
			err,
		)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// razorpayErrorResponse represents the JSON error body returned by the
// Razorpay API.
type razorpayErrorResponse struct {
	Error razorpayErrorBody `json:"error"`
}

type razorpayErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Field       string `json:"field"`
	Source      string `json:"source"`
	Reason      string `json:"reason"`
}

// handleErrorResponse reads a Razorpay error response and maps it to a
// types.AppError. The provider's human-readable description is preserved in
// the error details so callers can surface it.
func (c *RazorpayClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamRazorpay,
			fmt.Sprintf("%s: Razorpay returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var rzpErr razorpayErrorResponse
	if jsonErr := json.Unmarshal(body, &rzpErr); jsonErr != nil || rzpErr.Error.Description == "" {
		rzpErr.Error.Description = strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			fmt.Sprintf("%s: Razorpay rate limit exceeded", operation),
			nil,
		)
	case resp.StatusCode >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("%s: Razorpay server error: %s", operation, rzpErr.Error.Description),
			nil,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamRazorpay,
			fmt.Sprintf("%s: Razorpay error (%d): %s", operation, resp.StatusCode, rzpErr.Error.Description),
			nil,
			map[string]any{
				"provider_code": rzpErr.Error.Code,
				"description":   rzpErr.Error.Description,
			},
		)
	}
}

// wrapTransportError wraps a BaseClient transport error with context.
func (c *RazorpayClient) wrapTransportError(operation string, err error) error {
	// If it's already an AppError from BaseClient (circuit breaker, retries
	// exhausted), return it as-is since it already has the right error code.
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamRazorpay,
		fmt.Sprintf("%s: Razorpay request failed: %v", operation, err),
		err,
	)
}

// ---------------------------------------------------------------------------
// Collection envelope
// ---------------------------------------------------------------------------

// razorpayCollection is the standard list envelope the provider wraps every
// collection response in.
type razorpayCollection[T any] struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
	Items  []T    `json:"items"`
}
