package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/zenithlabs/zenith-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("topic", validateTopic); err != nil {
		panic(fmt.Sprintf("failed to register topic validator: %v", err))
	}
	if err := Validate.RegisterValidation("transaction_status", validateTransactionStatus); err != nil {
		panic(fmt.Sprintf("failed to register transaction_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("stress_level", validateStressLevel); err != nil {
		panic(fmt.Sprintf("failed to register stress_level validator: %v", err))
	}
}

// validateTopic validates that a string is a valid Topic enum value
func validateTopic(fl validator.FieldLevel) bool {
	return models.Topic(fl.Field().String()).Valid()
}

// validateTransactionStatus validates that a string is a valid TransactionStatus enum value
func validateTransactionStatus(fl validator.FieldLevel) bool {
	return models.TransactionStatus(fl.Field().String()).Valid()
}

// validateStressLevel validates that an integer is within the stress scale
func validateStressLevel(fl validator.FieldLevel) bool {
	return models.ValidStressLevel(int(fl.Field().Int()))
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTopic validates a Topic string value
func ValidateTopic(value string) error {
	if models.Topic(value).Valid() {
		return nil
	}
	return fmt.Errorf("invalid topic: %s (must be 'guardian', 'scholar', or 'vitals')", value)
}

// ValidateTransactionStatus validates a TransactionStatus string value
func ValidateTransactionStatus(value string) error {
	if models.TransactionStatus(value).Valid() {
		return nil
	}
	return fmt.Errorf("invalid status: %s (must be 'ALLOWED', 'BLOCKED', or 'INCOME')", value)
}
