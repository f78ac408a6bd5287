package domain

import (
	"errors"
	"strings"
)

var (
	ErrPersistence        = errors.New("donation could not be saved")
	ErrStoreUnavailable   = errors.New("donation store unavailable")
	ErrDuplicatePayment   = errors.New("payment reference already used")
	ErrPaymentNotVerified = errors.New("payment not verified")
	ErrPaymentMismatch    = errors.New("payment amount mismatch")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field was rejected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid donation: " + strings.Join(parts, "; ")
}
