package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Listing kind validation
	validate.RegisterValidation("listing_kind", func(fl validator.FieldLevel) bool {
		kind := fl.Field().String()
		return kind == "FIXED" || kind == "AUCTION"
	})

	// Order status validation (only terminal transitions are requestable)
	validate.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		return status == "COMPLETED" || status == "FAILED"
	})

	// Escrow resolve outcome validation
	validate.RegisterValidation("escrow_outcome", func(fl validator.FieldLevel) bool {
		outcome := fl.Field().String()
		return outcome == "released" || outcome == "refunded"
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "uuid":
			errors[field] = "Invalid UUID format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "listing_kind":
			errors[field] = "Invalid listing kind. Must be: FIXED or AUCTION"
		case "order_status":
			errors[field] = "Invalid order status. Must be: COMPLETED or FAILED"
		case "escrow_outcome":
			errors[field] = "Invalid outcome. Must be: released or refunded"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
