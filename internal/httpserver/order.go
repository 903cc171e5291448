package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/arefiev/storefront/internal/checkout"
	"github.com/arefiev/storefront/internal/logging"
	"github.com/arefiev/storefront/internal/order"
	"github.com/arefiev/storefront/internal/transport"
	"github.com/arefiev/storefront/internal/util"
	middleware "github.com/arefiev/storefront/pkg/middleware/auth"
)

// IdempotencyHeader carries the client's checkout replay token.
const IdempotencyHeader = "Idempotency-Key"

type OrderHTTP struct {
	Checkout *checkout.Service
	Svc      *order.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	idemKey := c.Request().Header.Get(IdempotencyHeader)

	placed, err := h.Checkout.Checkout(ctx, userID, req, idemKey)
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			l.Warn("create_order_error", "status", 400, "fields", verr.Fields)
			return c.JSON(http.StatusBadRequest, echo.Map{
				"message": "validation failed",
				"fields":  verr.Fields,
			})
		}
		if errors.Is(err, checkout.ErrNotFound) {
			l.Warn("create_order_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		if status, msg, ok := paymentStatus(err); ok {
			l.Warn("create_order_payment_error", "status", status, "error", err)
			return echo.NewHTTPError(status, msg)
		}
		l.Error("create_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("order created", "order_id", placed.ID, "total", placed.TotalPrice)
	return c.JSON(http.StatusCreated, placed)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := h.Svc.GetByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("get_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if o.UserID != userID && c.Get("role") != "admin" {
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	}

	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.my_orders")

	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	offset, limit := pageParams(c)
	orders, err := h.Svc.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		l.Error("my_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	offset, limit := pageParams(c)
	orders, err := h.Svc.ListAll(ctx, offset, limit)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) MarkPaid(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.mark_paid")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := h.Svc.MarkPaid(ctx, uint(id))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrAlreadyPaid):
			l.Warn("mark_paid_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "order already paid")
		}
		l.Error("mark_paid_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("order marked paid", "order_id", o.ID)
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) MarkDelivered(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.mark_delivered")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := h.Svc.MarkDelivered(ctx, uint(id))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrAlreadyDelivered):
			l.Warn("mark_delivered_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "order already delivered")
		case errors.Is(err, order.ErrNotPaid):
			l.Warn("mark_delivered_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "order is not paid yet")
		}
		l.Error("mark_delivered_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("order marked delivered", "order_id", o.ID)
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.Svc.Delete(ctx, uint(id)); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("delete_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("order deleted", "order_id", id)
	return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}

func pageParams(c echo.Context) (offset, limit int) {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	return util.Calculate(page, size)
}
