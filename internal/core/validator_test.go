package core

import (
	"errors"
	"testing"

	"payrelay/internal/types"
)

type checkoutForm struct {
	PlanID     string `json:"planId" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	TotalCount *int   `json:"totalCount" validate:"omitempty,gte=1"`
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator(testLogger())

	form := checkoutForm{PlanID: "plan_abc", Email: "user@example.com"}
	if err := v.ValidateStruct(form); err != nil {
		t.Errorf("expected valid struct, got %v", err)
	}
}

func TestValidateStruct_MissingRequired(t *testing.T) {
	v := NewValidator(testLogger())

	form := checkoutForm{Email: "user@example.com"}
	err := v.ValidateStruct(form)
	if err == nil {
		t.Fatal("expected error for missing planId")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationMissingField {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationMissingField, appErr.Code)
	}
	if appErr.Details["field"] != "planId" {
		t.Errorf("expected details.field=planId (json tag name), got %v", appErr.Details["field"])
	}
}

func TestValidateStruct_InvalidEmail(t *testing.T) {
	v := NewValidator(testLogger())

	form := checkoutForm{PlanID: "plan_abc", Email: "not-an-email"}
	err := v.ValidateStruct(form)
	if err == nil {
		t.Fatal("expected error for invalid email")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidEmail {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationInvalidEmail, appErr.Code)
	}
}

func TestValidateStruct_CountOutOfRange(t *testing.T) {
	v := NewValidator(testLogger())

	zero := 0
	form := checkoutForm{PlanID: "plan_abc", Email: "user@example.com", TotalCount: &zero}
	err := v.ValidateStruct(form)
	if err == nil {
		t.Fatal("expected error for totalCount < 1")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationTotalCount {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationTotalCount, appErr.Code)
	}
	if appErr.Details["field"] != "totalCount" {
		t.Errorf("expected details.field=totalCount, got %v", appErr.Details["field"])
	}
}

func TestValidateStruct_NilTarget(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct(nil)
	if err == nil {
		t.Fatal("expected error for nil target")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeInternalUnexpected {
		t.Errorf("expected internal code for nil target, got %s", appErr.Code)
	}
}

func TestValidateStruct_ValidTotalCount(t *testing.T) {
	v := NewValidator(testLogger())

	twelve := 12
	form := checkoutForm{PlanID: "plan_abc", Email: "user@example.com", TotalCount: &twelve}
	if err := v.ValidateStruct(form); err != nil {
		t.Errorf("expected valid struct, got %v", err)
	}
}
