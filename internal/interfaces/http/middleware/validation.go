package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// maxSKULength matches the products.sku column
const maxSKULength = 100

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("sku", validateSKU)
	}
}

// validateSKU accepts a non-blank code without control characters
func validateSKU(fl validator.FieldLevel) bool {
	sku := strings.TrimSpace(fl.Field().String())
	if sku == "" || len(sku) > maxSKULength {
		return false
	}
	for _, r := range sku {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

var fixedMessages = map[string]string{
	"required": "This field is required",
	"sku":      "Invalid SKU",
	"uuid":     "Invalid UUID format",
	"numeric":  "Must be numeric",
}

var boundMessages = map[string]string{
	"oneof": "Must be one of: ",
	"gte":   "Must be greater than or equal to ",
	"lte":   "Must be less than or equal to ",
	"gt":    "Must be greater than ",
	"lt":    "Must be less than ",
}

// getValidationMessage renders a client-facing message for a failed tag.
// min and max read as lengths on strings and item counts on slices.
func getValidationMessage(e validator.FieldError) string {
	if msg, ok := fixedMessages[e.Tag()]; ok {
		return msg
	}
	if prefix, ok := boundMessages[e.Tag()]; ok {
		return prefix + e.Param()
	}

	var bound string
	switch e.Tag() {
	case "min":
		bound = "at least "
	case "max":
		bound = "at most "
	default:
		return "Invalid value"
	}
	switch e.Kind() {
	case reflect.String:
		return "Must be " + bound + e.Param() + " characters"
	case reflect.Slice, reflect.Array:
		return "Must contain " + bound + e.Param() + " items"
	default:
		return "Must be " + bound + e.Param()
	}
}
