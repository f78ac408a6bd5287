package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrUnsupportedGateway  = errors.New("unsupported gateway")
	ErrMissingReference    = errors.New("payment reference is required")
	// ErrInvalidReference marks references the provider does not know or that are malformed.
	ErrInvalidReference = errors.New("unknown payment reference")
	// ErrNotConfigured is returned by adapters whose provider credentials are missing.
	ErrNotConfigured = errors.New("gateway credentials are not configured")
)

// GatewayError wraps any failure reported by, or while talking to, a payment provider.
type GatewayError struct {
	Gateway Gateway
	Op      string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsInputError reports whether err was caused by caller supplied data rather
// than by the provider.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnsupportedCurrency) ||
		errors.Is(err, ErrUnsupportedGateway) ||
		errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrInvalidReference)
}

func gatewayError(g Gateway, op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	return &GatewayError{Gateway: g, Op: op, Err: err}
}
