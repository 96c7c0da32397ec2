package security

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxRequestBytes caps admin request bodies. Plan and fact payloads are
// tiny; anything near this limit is not a legitimate client.
const maxRequestBytes = 1 << 20

// ValidationService enforces transport-level input rules before a
// command reaches the application layer. The domain runs its own
// checks behind it; this layer exists to reject junk early with
// field-level messages.
type ValidationService struct {
	logger   *zap.Logger
	validate *validator.Validate
}

// NewValidationService creates a validation service with the Cartwise
// rules registered
func NewValidationService(logger *zap.Logger) *ValidationService {
	validate := validator.New()

	validate.RegisterValidation("ingredient_name", validateIngredientName)
	validate.RegisterValidation("ingredient_form", validateIngredientForm)
	validate.RegisterValidation("fact_subject", validateFactSubject)

	return &ValidationService{
		logger:   logger,
		validate: validate,
	}
}

// ValidateStruct runs the registered rules against a command
func (v *ValidationService) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// Summarize flattens validation failures into one message for the error
// envelope, one clause per failing field
func (v *ValidationService) Summarize(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return "invalid request"
	}

	fieldErrors := v.FieldErrors(err)
	seen := make(map[string]bool, len(fieldErrors))
	clauses := make([]string, 0, len(fieldErrors))
	for _, e := range validationErrors {
		msg := fieldErrors[e.Field()]
		if msg == "" || seen[msg] {
			continue
		}
		seen[msg] = true
		clauses = append(clauses, msg)
	}
	return strings.Join(clauses, "; ")
}

// FieldErrors formats validation errors field by field for API responses
func (v *ValidationService) FieldErrors(err error) map[string]string {
	fieldErrors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()

			switch e.Tag() {
			case "required":
				fieldErrors[field] = fmt.Sprintf("%s is required", field)
			case "min":
				fieldErrors[field] = fmt.Sprintf("%s must have at least %s entries", field, e.Param())
			case "max":
				fieldErrors[field] = fmt.Sprintf("%s must be at most %s long", field, e.Param())
			case "gt":
				fieldErrors[field] = fmt.Sprintf("%s must be greater than %s", field, e.Param())
			case "oneof":
				fieldErrors[field] = fmt.Sprintf("%s must be one of: %s", field, e.Param())
			case "ingredient_name":
				fieldErrors[field] = "ingredient names may use letters, numbers, spaces, hyphens, apostrophes, and periods (1-80 characters)"
			case "ingredient_form":
				fieldErrors[field] = "forms are short labels such as powder, whole, or fresh"
			case "fact_subject":
				fieldErrors[field] = "subjects may use letters, numbers, spaces, and basic punctuation (1-120 characters)"
			default:
				fieldErrors[field] = fmt.Sprintf("%s is invalid", field)
			}
		}
	}

	return fieldErrors
}

// RequestGuard rejects requests no handler should see: non-JSON bodies,
// oversized payloads, and path traversal attempts
func (v *ValidationService) RequestGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > 0 {
			switch c.Request.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				contentType := c.GetHeader("Content-Type")
				if !strings.Contains(contentType, "application/json") {
					c.JSON(http.StatusUnsupportedMediaType, gin.H{
						"success": false,
						"error":   "Content-Type must be application/json",
					})
					c.Abort()
					return
				}
			}
		}

		if c.Request.ContentLength > maxRequestBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "request body too large",
			})
			c.Abort()
			return
		}

		if containsTraversal(c.Request.URL.Path) {
			v.logger.Warn("Suspicious URL path rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid request path",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// containsTraversal checks for directory traversal markers in a path
func containsTraversal(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range []string{"../", "..\\", "%2e%2e", "%252e%252e"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Custom validation functions

// validateIngredientName accepts grocery ingredient names: letters,
// numbers, spaces, and light punctuation, up to 80 characters
func validateIngredientName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	return validNameRunes(name, 80)
}

// validateIngredientForm accepts short form labels. The planner maps
// unrecognized labels to an unspecified form rather than rejecting
// them, so this rule only bounds length and character set.
func validateIngredientForm(fl validator.FieldLevel) bool {
	form := strings.TrimSpace(fl.Field().String())
	if form == "" {
		return true
	}
	if utf8.RuneCountInString(form) > 30 {
		return false
	}
	for _, r := range form {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// validateFactSubject accepts recall and residue subjects, which may be
// ingredient names or brand names
func validateFactSubject(fl validator.FieldLevel) bool {
	subject := strings.TrimSpace(fl.Field().String())
	return validNameRunes(subject, 120)
}

// validNameRunes reports whether s is a non-empty name within maxRunes
// built from letters, numbers, spaces, and light punctuation
func validNameRunes(s string, maxRunes int) bool {
	if s == "" || utf8.RuneCountInString(s) > maxRunes {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '-', '\'', '.', '&', '(', ')':
			continue
		}
		return false
	}
	return true
}
