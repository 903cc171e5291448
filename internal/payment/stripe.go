package payment

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeGateway implements Gateway over the Stripe PaymentIntents API.
type StripeGateway struct {
	api     *client.API
	timeout time.Duration
}

func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, timeout: timeout}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency, paymentToken string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	if paymentToken != "" {
		params.PaymentMethod = stripe.String(paymentToken)
		params.Confirm = stripe.Bool(true)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, Classify(err)
	}

	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.LatestCharge != nil && pi.LatestCharge.PaymentMethodDetails != nil &&
		pi.LatestCharge.PaymentMethodDetails.Card != nil {
		card := pi.LatestCharge.PaymentMethodDetails.Card
		intent.CardBrand = string(card.Brand)
		intent.CardLast4 = card.Last4
	}
	return intent, nil
}

// Classify maps a provider failure onto the gateway error taxonomy. Card
// messages are kept verbatim; everything else is summarized so raw provider
// detail never leaks past the boundary.
func Classify(err error) *Error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		switch {
		case sErr.Type == stripe.ErrorTypeCard:
			return &Error{Category: CategoryCard, Message: sErr.Msg, Err: err}
		case sErr.HTTPStatusCode == http.StatusUnauthorized:
			return &Error{Category: CategoryAuth, Message: "provider credentials rejected", Err: err}
		case sErr.Type == stripe.ErrorTypeInvalidRequest:
			return &Error{Category: CategoryInvalidRequest, Message: "invalid payment request", Err: err}
		case sErr.Type == stripe.ErrorTypeAPI:
			return &Error{Category: CategoryAPI, Message: "payment provider unavailable", Err: err}
		}
		return &Error{Category: CategoryInternal, Message: "unexpected provider error", Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: CategoryConnection, Message: "payment provider timeout", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Category: CategoryConnection, Message: "payment provider unreachable", Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Category: CategoryConnection, Message: "payment provider unreachable", Err: err}
	}

	return &Error{Category: CategoryInternal, Message: "payment failed", Err: err}
}
