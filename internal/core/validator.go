package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"payrelay/internal/types"
)

// Validator wraps go-playground/validator and translates its failures into
// structured AppErrors with field-level details.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator. Field names in error details use the
// struct's json tag so they line up with what clients actually send.
func NewValidator(logger *slog.Logger) *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{
		validate: validate,
		logger:   logger,
	}
}

// ValidateStruct validates s against its `validate` struct tags. It returns
// nil when the struct is valid, or a *types.AppError describing the first
// failed field. The error code depends on the failed tag:
//   - required      -> validation_missing_field
//   - email         -> validation_invalid_email
//   - gte, lte      -> validation_invalid_total_count (count bounds)
//   - anything else -> validation_missing_field with the tag in details
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// Programming error (nil or non-struct passed in).
		return types.NewAppError(types.ErrCodeInternalUnexpected, "invalid validation target", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "unexpected validation failure", err)
	}

	fe := fieldErrs[0]
	field := fe.Field()
	details := map[string]any{
		"field":      field,
		"constraint": fe.Tag(),
	}

	switch fe.Tag() {
	case "required":
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			field+" is required",
			err,
			details,
		)
	case "email":
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidEmail,
			field+" must be a valid email address",
			err,
			details,
		)
	case "gte", "lte", "gt", "lt":
		details["param"] = fe.Param()
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationTotalCount,
			field+" is out of range",
			err,
			details,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			field+" is invalid",
			err,
			details,
		)
	}
}
