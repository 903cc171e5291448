package payment

import (
	"context"
	"errors"
	"fmt"
)

// Category partitions provider failures the way the boundary needs to
// answer them: user-fixable card problems, client bugs, provider faults,
// network faults and operator misconfiguration.
type Category string

const (
	CategoryCard           Category = "card_error"
	CategoryInvalidRequest Category = "invalid_request"
	CategoryAPI            Category = "api_error"
	CategoryConnection     Category = "connection_error"
	CategoryAuth           Category = "auth_error"
	CategoryInternal       Category = "internal_error"
)

// Error is a classified provider failure. Message is safe to surface for
// CategoryCard only; everything else gets a generic body at the boundary.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment %s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("payment %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may safely retry the charge.
func (e *Error) Retryable() bool {
	return e.Category == CategoryAPI || e.Category == CategoryConnection
}

// AsError unwraps a classified payment error if err carries one.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Intent is the provider-neutral result of a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	CardBrand    string
	CardLast4    string
}

// Gateway creates a charge/intent against the external card processor.
// The adapter never retries; retry policy belongs to the caller.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, paymentToken string) (*Intent, error)
}
