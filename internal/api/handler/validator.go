package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/myunity/auth-service/internal/core/domain"
)

// RequestValidator wraps go-playground/validator so Echo can call c.Validate(req).
// Failures come back as *domain.ValidationError.
type RequestValidator struct {
	v *validator.Validate
}

// NewValidator returns a RequestValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &RequestValidator{v: v}
}

// Validate satisfies the echo.Validator interface.
func (rv *RequestValidator) Validate(i any) error {
	if verr := rv.Check(i); verr.HasErrors() {
		return verr
	}
	return nil
}

// Check validates i and returns the structured result, nil when valid.
func (rv *RequestValidator) Check(i any) *domain.ValidationError {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.NewValidationError("", err.Error())
	}

	out := &domain.ValidationError{}
	for _, fe := range ve {
		out.Add(fe.Field(), fieldError(fe))
	}
	return out
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}
