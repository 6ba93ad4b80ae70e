// Package config defines the global configuration structure for the payrelay
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Structural problems (unparseable values, malformed URLs) fail the process
// at startup. Missing provider credentials deliberately do NOT: the handlers
// report them per request as config errors (500), so that a partially
// configured deployment degrades endpoint-by-endpoint instead of refusing
// to boot.
package config

import (
	"time"

	"payrelay/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the payrelay service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Razorpay RazorpayConfig
	Forward  ForwardConfig
	Billing  BillingConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// RazorpayConfig holds the payment provider credentials and endpoint.
// KeyID/KeySecret authenticate outbound API calls (basic auth);
// WebhookSecret is the shared HMAC key for inbound webhook signatures.
type RazorpayConfig struct {
	KeyID         string       `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret     SecretString `envconfig:"RAZORPAY_KEY_SECRET"`
	WebhookSecret SecretString `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string       `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com" validate:"url"`
}

// HasKeys reports whether the outbound provider credentials are configured.
func (c RazorpayConfig) HasKeys() bool {
	return c.KeyID != "" && c.KeySecret.Unmask() != ""
}

// ForwardConfig holds settings for the downstream automation endpoint.
// An empty URL disables forwarding (billable events are classified and
// logged, but not delivered).
type ForwardConfig struct {
	URL       string        `envconfig:"FORWARD_URL" validate:"omitempty,url"`
	Timeout   time.Duration `envconfig:"FORWARD_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"FORWARD_USER_AGENT" default:"PayRelay-Forward/1.0"`
}

// BillingConfig holds subscription billing-cycle policy.
// DurationYears, when positive, converts to an absolute end_at bound on new
// subscriptions; otherwise DefaultCycles fixed billing cycles are used when
// the caller does not supply a total_count.
type BillingConfig struct {
	DurationYears int `envconfig:"SUBSCRIPTION_DURATION_YEARS" default:"0" validate:"gte=0"`
	DefaultCycles int `envconfig:"SUBSCRIPTION_DEFAULT_CYCLES" default:"12" validate:"gte=1"`
}

// SecurityConfig holds CORS settings. CorsAllowedOrigins is a
// comma-separated list; "*" allows all origins.
type SecurityConfig struct {
	CorsAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
