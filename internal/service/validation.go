package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/fjod/filecart/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json names so clients see "price", not "Price"
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateComplete requires every product field. Fields are checked in
// declaration order and only the first failure is reported.
func validateComplete(in domain.ProductInput) error {
	err := getValidator().Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return toValidationError(fieldErrs[0])
}

// validatePartial checks only the fields that are present.
func validatePartial(in domain.ProductInput) error {
	if in.Price != nil && *in.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must be greater than or equal to 0"}
	}
	if in.Stock != nil && *in.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must be greater than or equal to 0"}
	}
	return nil
}

func toValidationError(fe validator.FieldError) *ValidationError {
	reason := "is invalid"
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gte":
		reason = "must be greater than or equal to " + fe.Param()
	}
	return &ValidationError{Field: fe.Field(), Reason: reason}
}
