package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payrelay/internal/types"
)

// --- JSON helper tests ---

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	data := map[string]any{"ok": true, "subscription_id": "sub_123"}
	JSON(w, r, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["ok"] != true {
		t.Errorf("expected ok=true, got %v", body["ok"])
	}
	if body["subscription_id"] != "sub_123" {
		t.Errorf("expected subscription_id=sub_123, got %v", body["subscription_id"])
	}
}

func TestJSON_Created(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	data := map[string]string{"id": "sub_123"}
	JSON(w, r, http.StatusCreated, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected status 201, got %d", resp.StatusCode)
	}
}

func TestJSON_MarshalFailure(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := types.WithRequestID(r.Context(), "req-marshal-fail")
	r = r.WithContext(ctx)

	// Channels cannot be marshalled to JSON.
	unmarshalable := make(chan int)
	JSON(w, r, http.StatusOK, unmarshalable)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	var errResp APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode fallback error: %v", err)
	}
	if errResp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected code %s, got %s", types.ErrCodeInternalUnexpected, errResp.Error.Code)
	}
	if errResp.Error.RequestID != "req-marshal-fail" {
		t.Errorf("expected request_id req-marshal-fail, got %s", errResp.Error.RequestID)
	}
}

// --- Error helper tests ---

func TestError_AppError_Validation(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", nil)
	ctx := types.WithRequestID(r.Context(), "req-val-001")
	r = r.WithContext(ctx)

	appErr := types.NewAppError(
		types.ErrCodeValidationMissingField,
		"planId is required",
		nil,
	)
	Error(w, r, appErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}

	var errResp APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.OK {
		t.Error("expected ok=false in error envelope")
	}
	if errResp.Error.Code != string(types.ErrCodeValidationMissingField) {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationMissingField, errResp.Error.Code)
	}
	if errResp.Error.Message != "planId is required" {
		t.Errorf("expected message about planId, got %q", errResp.Error.Message)
	}
	if errResp.Error.RequestID != "req-val-001" {
		t.Errorf("expected request_id req-val-001, got %s", errResp.Error.RequestID)
	}
}

func TestError_AppError_Signature(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", nil)

	appErr := types.NewAppError(
		types.ErrCodeSignatureMissing,
		"missing webhook signature",
		nil,
	)
	Error(w, r, appErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestError_AppError_Config(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", nil)

	appErr := types.NewAppError(
		types.ErrCodeConfigMissingWebhookSecret,
		"webhook secret is not configured",
		nil,
	)
	Error(w, r, appErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
}

func TestError_AppError_Upstream(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", nil)

	appErr := types.NewAppError(
		types.ErrCodeUpstreamRazorpay,
		"payment provider temporarily unavailable",
		nil,
	)
	Error(w, r, appErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", resp.StatusCode)
	}
}

func TestError_AppError_RateLimited(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", nil)

	appErr := types.NewAppError(
		types.ErrCodeUpstreamRateLimited,
		"rate limited by payment provider",
		nil,
	)
	Error(w, r, appErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", resp.StatusCode)
	}
}

func TestError_AppError_WithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", nil)
	ctx := types.WithRequestID(r.Context(), "req-detail-001")
	r = r.WithContext(ctx)

	appErr := types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"required field missing",
		nil,
		map[string]any{"field": "planId", "constraint": "required"},
	)
	Error(w, r, appErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}

	var errResp APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Details["field"] != "planId" {
		t.Errorf("expected details.field=planId, got %v", errResp.Error.Details["field"])
	}
	if errResp.Error.RequestID != "req-detail-001" {
		t.Errorf("expected request_id req-detail-001, got %s", errResp.Error.RequestID)
	}
}

func TestError_GenericError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil)
	ctx := types.WithRequestID(r.Context(), "req-generic-001")
	r = r.WithContext(ctx)

	genericErr := errors.New("some internal error with connection details")
	Error(w, r, genericErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	var errResp APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected code %s, got %s", types.ErrCodeInternalUnexpected, errResp.Error.Code)
	}
	// Must NOT leak internal error message.
	if strings.Contains(errResp.Error.Message, "connection") {
		t.Error("generic error message should not be exposed to client")
	}
	if errResp.Error.Message != "an unexpected error occurred" {
		t.Errorf("expected safe message, got %q", errResp.Error.Message)
	}
}

func TestError_WrappedAppError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/subscriptions/verify", nil)

	appErr := types.NewAppError(
		types.ErrCodePaymentNotCaptured,
		"payment is not captured",
		nil,
	)
	wrappedErr := errors.Join(errors.New("handler context"), appErr)
	Error(w, r, wrappedErr)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400 from wrapped AppError, got %d", resp.StatusCode)
	}
}

func TestError_NoRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	appErr := types.NewAppError(
		types.ErrCodeInternalUnexpected,
		"something went wrong",
		nil,
	)
	Error(w, r, appErr)

	resp := w.Result()
	var errResp APIErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	// request_id should be empty string, not missing.
	if errResp.Error.RequestID != "" {
		t.Errorf("expected empty request_id, got %q", errResp.Error.RequestID)
	}
}

func TestError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(w, r, errors.New("test"))

	resp := w.Result()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestError_AllErrorCodeCategories(t *testing.T) {
	tests := []struct {
		name           string
		code           types.ErrorCode
		expectedStatus int
	}{
		{"validation missing_field -> 400", types.ErrCodeValidationMissingField, http.StatusBadRequest},
		{"validation invalid_json -> 400", types.ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{"validation email -> 400", types.ErrCodeValidationInvalidEmail, http.StatusBadRequest},
		{"validation total_count -> 400", types.ErrCodeValidationTotalCount, http.StatusBadRequest},
		{"signature missing -> 400", types.ErrCodeSignatureMissing, http.StatusBadRequest},
		{"signature mismatch -> 400", types.ErrCodeSignatureMismatch, http.StatusBadRequest},
		{"payment not captured -> 400", types.ErrCodePaymentNotCaptured, http.StatusBadRequest},
		{"subscription not active -> 400", types.ErrCodeSubscriptionNotActive, http.StatusBadRequest},
		{"config webhook secret -> 500", types.ErrCodeConfigMissingWebhookSecret, http.StatusInternalServerError},
		{"config provider keys -> 500", types.ErrCodeConfigMissingProviderKeys, http.StatusInternalServerError},
		{"internal unexpected -> 500", types.ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{"upstream razorpay -> 502", types.ErrCodeUpstreamRazorpay, http.StatusBadGateway},
		{"upstream unavailable -> 502", types.ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{"upstream rate limited -> 429", types.ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			appErr := types.NewAppError(tc.code, "test", nil)
			Error(w, r, appErr)

			resp := w.Result()
			if resp.StatusCode != tc.expectedStatus {
				t.Errorf("code %s: expected status %d, got %d", tc.code, tc.expectedStatus, resp.StatusCode)
			}
		})
	}
}

// --- DecodeJSON tests ---

func TestDecodeJSON_Success(t *testing.T) {
	body := `{"planId":"plan_abc","email":"user@example.com"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	var dst struct {
		PlanID string `json:"planId"`
		Email  string `json:"email"`
	}
	err := DecodeJSON(w, r, &dst)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dst.PlanID != "plan_abc" {
		t.Errorf("expected planId plan_abc, got %q", dst.PlanID)
	}
	if dst.Email != "user@example.com" {
		t.Errorf("expected email user@example.com, got %q", dst.Email)
	}
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	body := `{"planId":"plan_abc","unknown_field":"value"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct {
		PlanID string `json:"planId"`
	}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidJSON {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationInvalidJSON, appErr.Code)
	}
	if !strings.Contains(appErr.Message, "unknown field") {
		t.Errorf("expected message about unknown field, got %q", appErr.Message)
	}
}

func TestDecodeJSON_SyntaxError(t *testing.T) {
	body := `{invalid json`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct{}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for syntax error, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if !strings.Contains(appErr.Message, "malformed JSON") {
		t.Errorf("expected message about malformed JSON, got %q", appErr.Message)
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

	var dst struct{}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for empty body, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if !strings.Contains(appErr.Message, "empty") {
		t.Errorf("expected message about empty body, got %q", appErr.Message)
	}
}

func TestDecodeJSON_TypeMismatch(t *testing.T) {
	body := `{"totalCount":"not_a_number"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct {
		TotalCount int `json:"totalCount"`
	}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for type mismatch, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Details["field"] != "totalCount" {
		t.Errorf("expected details.field=totalCount, got %v", appErr.Details["field"])
	}
}

func TestDecodeJSON_ExceedsMaxSize(t *testing.T) {
	largeBody := strings.Repeat("x", maxRequestBodySize+1)
	body := `{"data":"` + largeBody + `"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct {
		Data string `json:"data"`
	}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for oversized body, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidJSON {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationInvalidJSON, appErr.Code)
	}
}

func TestDecodeJSON_MultipleJSONValues(t *testing.T) {
	body := `{"planId":"first"}{"planId":"second"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct {
		PlanID string `json:"planId"`
	}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for multiple JSON values, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if !strings.Contains(appErr.Message, "single JSON object") {
		t.Errorf("expected message about single JSON object, got %q", appErr.Message)
	}
}

func TestDecodeJSON_NilBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	var dst struct{}
	err := DecodeJSON(w, r, &dst)
	if err == nil {
		t.Fatal("expected error for nil body, got nil")
	}
}

func TestDecodeJSON_BodyConsumed(t *testing.T) {
	body := `{"planId":"plan_abc"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst struct {
		PlanID string `json:"planId"`
	}
	err := DecodeJSON(w, r, &dst)
	if err != nil {
		t.Fatalf("first decode should succeed, got %v", err)
	}

	// Second call should fail because body is consumed.
	var dst2 struct {
		PlanID string `json:"planId"`
	}
	err = DecodeJSON(w, r, &dst2)
	if err == nil {
		t.Fatal("second decode should fail, body was consumed")
	}
}

func TestDecodeJSON_ReadCloserBody(t *testing.T) {
	body := `{"planId":"plan_abc"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Body = io.NopCloser(bytes.NewBufferString(body))

	var dst struct {
		PlanID string `json:"planId"`
	}
	err := DecodeJSON(w, r, &dst)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dst.PlanID != "plan_abc" {
		t.Errorf("expected planId plan_abc, got %q", dst.PlanID)
	}
}
