package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arefiev/storefront/internal/logging"
	"github.com/arefiev/storefront/internal/payment"
	"github.com/arefiev/storefront/internal/transport"
)

type PaymentHTTP struct {
	Svc     *payment.Service
	Gateway payment.Gateway
	// Currency for ad-hoc intents, e.g. "usd".
	Currency string
}

func (h *PaymentHTTP) RecordPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.record")

	var req transport.RecordPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("record_payment_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.Record(ctx, payment.RecordInput{
		OrderID:        req.OrderID,
		Method:         req.PaymentMethod,
		Amount:         req.Amount,
		ProviderID:     req.PaymentResult.ID,
		ProviderStatus: req.PaymentResult.Status,
		CardBrand:      req.PaymentResult.CardBrand,
		CardLast4:      req.PaymentResult.CardLast4,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrValidation):
			l.Warn("record_payment_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, payment.ErrNotFound):
			l.Warn("record_payment_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, payment.ErrAlreadyRecorded):
			l.Warn("record_payment_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "payment already recorded for order")
		}
		l.Error("record_payment_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("payment recorded", "order_id", p.OrderID, "amount", p.Amount)
	return c.JSON(http.StatusCreated, p)
}

func (h *PaymentHTTP) CreatePaymentIntent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_intent")

	var req transport.CreatePaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_intent_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be > 0")
	}

	intent, err := h.Gateway.CreateIntent(ctx, req.Amount, h.Currency, "")
	if err != nil {
		if status, msg, ok := paymentStatus(err); ok {
			l.Warn("create_intent_error", "status", status, "error", err)
			return echo.NewHTTPError(status, msg)
		}
		l.Error("create_intent_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"clientSecret": intent.ClientSecret})
}

// paymentStatus maps a classified gateway failure onto the HTTP surface.
// Only card messages are surfaced verbatim.
func paymentStatus(err error) (int, string, bool) {
	pe, ok := payment.AsError(err)
	if !ok {
		return 0, "", false
	}
	switch pe.Category {
	case payment.CategoryCard:
		return http.StatusPaymentRequired, pe.Message, true
	case payment.CategoryInvalidRequest:
		return http.StatusBadRequest, "invalid payment request", true
	case payment.CategoryAuth:
		return http.StatusForbidden, "payment provider rejected credentials", true
	case payment.CategoryAPI, payment.CategoryConnection:
		return http.StatusBadGateway, "payment provider unavailable, try again", true
	}
	return http.StatusInternalServerError, "internal error", true
}
