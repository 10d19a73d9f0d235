package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// NewValidator returns a validator with the enum rules used by the request payloads registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).Valid()
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return domain.UserRole(fl.Field().String()).Valid()
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
		return domain.ProjectStatus(fl.Field().String()).Valid()
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// ValidationError converts validator output into a VALIDATION_FAILED error keyed by field.
func ValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return apperrors.NewValidationError("request validation failed", details)
}
