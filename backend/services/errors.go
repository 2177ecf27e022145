package services

import "fmt"

// Error codes returned in the API error envelope.
const (
	CodeAuthRequired   = "AUTHENTICATION_REQUIRED"
	CodeProviderError  = "PROVIDER_ERROR"
	CodeConfigNotFound = "CONFIG_NOT_FOUND"
	CodeValidation     = "VALIDATION_FAILED"
	CodeForbidden      = "FORBIDDEN"
	CodeInternal       = "INTERNAL_ERROR"
)

// ServiceError is an error with an HTTP status and a stable code the
// frontend can branch on.
type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrAuthRequired(msg string) error {
	return ServiceError{Status: 401, Code: CodeAuthRequired, Message: msg}
}

func ErrProvider(msg string) error {
	return ServiceError{Status: 502, Code: CodeProviderError, Message: msg}
}

// ErrConfigNotFound covers both missing configurations and configurations
// owned by someone else, so existence never leaks across owners.
func ErrConfigNotFound() error {
	return ServiceError{Status: 404, Code: CodeConfigNotFound, Message: "Bot configuration not found"}
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
