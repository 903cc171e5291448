// Package checkout orchestrates the cart-to-order pipeline: input
// validation, product resolution, payment-intent creation and the atomic
// order/payment/stock/cart persistence behind it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/arefiev/storefront/internal/catalog"
	"github.com/arefiev/storefront/internal/models"
	"github.com/arefiev/storefront/internal/order"
	"github.com/arefiev/storefront/internal/payment"
	"github.com/arefiev/storefront/internal/transport"
)

var ErrNotFound = errors.New("not found")

// ValidationError carries every violated field, not just the first.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

type ProductResolver interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

type Ledger interface {
	PlaceOrder(ctx context.Context, o *models.Order, p *models.Payment) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID uint, key string) (*models.Order, error)
}

type Service struct {
	Catalog  ProductResolver
	Ledger   Ledger
	Gateway  payment.Gateway
	Validate *validator.Validate
	Currency string
}

// Checkout runs the whole pipeline for one user. idemKey is the
// client-supplied idempotency token; replaying a key returns the order it
// already created without charging again.
func (s *Service) Checkout(ctx context.Context, userID uint, req transport.CheckoutRequest, idemKey string) (*models.Order, error) {
	if verr := s.validate(req); verr != nil {
		return nil, verr
	}

	if idemKey != "" {
		existing, err := s.Ledger.GetByIdempotencyKey(ctx, userID, idemKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
	} else {
		idemKey = uuid.NewString()
	}

	items, err := s.resolveItems(ctx, req.OrderItems)
	if err != nil {
		return nil, err
	}

	intent, err := s.Gateway.CreateIntent(ctx, toCents(req.TotalPrice), s.Currency, req.PaymentToken)
	if err != nil {
		// Already classified by the adapter; no order, no stock change.
		return nil, err
	}

	draft := &models.Order{
		UserID: userID,
		Items:  items,
		ShippingAddress: models.ShippingAddress{
			Email:      req.ShippingAddress.Email,
			Phone:      req.ShippingAddress.Phone,
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		ItemsPrice:     req.ItemsPrice,
		TaxPrice:       req.TaxPrice,
		ShippingPrice:  req.ShippingPrice,
		TotalPrice:     req.TotalPrice,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: idemKey,
	}
	pay := &models.Payment{
		Method:         req.PaymentMethod,
		Amount:         req.TotalPrice,
		ProviderID:     intent.ID,
		ProviderStatus: intent.Status,
		CardBrand:      intent.CardBrand,
		CardLast4:      intent.CardLast4,
	}

	placed, err := s.Ledger.PlaceOrder(ctx, draft, pay)
	if errors.Is(err, order.ErrDuplicateKey) {
		// Lost a race with a concurrent replay of the same key; the
		// winning order is the one to return.
		return s.Ledger.GetByIdempotencyKey(ctx, userID, idemKey)
	}
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *Service) validate(req transport.CheckoutRequest) *ValidationError {
	var fields []string

	if err := s.Validate.Struct(req); err != nil {
		fields = append(fields, transport.Violations(err)...)
	}
	if !priceEqual(req.TotalPrice, req.ItemsPrice+req.TaxPrice+req.ShippingPrice) {
		fields = append(fields, "CheckoutRequest.TotalPrice")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// resolveItems turns request lines into snapshot items. Any unknown product
// aborts the whole checkout; there are no partial orders.
func (s *Service) resolveItems(ctx context.Context, lines []transport.CheckoutItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.Catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, line.ProductID)
			}
			return nil, err
		}

		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     image,
			Color:     line.Color,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.UnitPrice * float64(line.Quantity),
		})
	}
	return items, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func priceEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
