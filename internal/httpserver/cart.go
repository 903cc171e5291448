package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/arefiev/storefront/internal/cart"
	"github.com/arefiev/storefront/internal/logging"
	"github.com/arefiev/storefront/internal/transport"
	middleware "github.com/arefiev/storefront/pkg/middleware/auth"
)

type CartHTTP struct {
	Svc *cart.CartService
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.AddItem(ctx, userID, req.ProductID, req.Quantity, req.Color, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrValidation):
			l.Warn("add_to_cart_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, cart.ErrNotFound):
			l.Warn("add_to_cart_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		case errors.Is(err, cart.ErrOutOfStock):
			l.Warn("add_to_cart_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "product out of stock")
		case errors.Is(err, cart.ErrInsufficientStock):
			l.Warn("add_to_cart_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "not enough stock for requested quantity")
		}
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("item added to cart", "product_id", req.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	result, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lineID, err := strconv.Atoi(c.Param("lineId"))
	if err != nil || lineID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid line id")
	}

	if err := h.Svc.RemoveItem(ctx, userID, uint(lineID)); err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			l.Warn("remove_cart_item_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "cart line not found")
		}
		l.Error("remove_cart_item_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	result, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		l.Error("remove_cart_item_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("cart line removed", "line_id", lineID)
	return c.JSON(http.StatusOK, result)
}
