package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

var (
	ErrValidation       = errors.New("validation")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrAlreadyDelivered = errors.New("order already delivered")
	ErrNotPaid          = errors.New("order not paid")
	ErrDuplicateKey     = errors.New("duplicate idempotency key")
)

// Alerter receives best-effort post-commit notifications. Implementations
// must never block the caller.
type Alerter interface {
	OrderCreated(order *models.Order)
	OrderDelivered(order *models.Order)
	LowStock(productID uint, name string, stock uint)
}

type OrderService struct {
	Repo    *GormRepo
	Alerter Alerter
}

// PlaceOrder persists an order draft with its payment record, decrements
// stock and clears the user's cart, all atomically, then fires low-stock
// and order-created alerts.
func (s *OrderService) PlaceOrder(ctx context.Context, order *models.Order, payment *models.Payment) (*models.Order, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: order items required", ErrValidation)
	}
	if order.TotalPrice < 0 {
		return nil, fmt.Errorf("%w: total must be >= 0", ErrValidation)
	}

	alerts, err := s.Repo.PlaceOrder(ctx, order, payment, order.UserID)
	if err != nil {
		return nil, err
	}

	s.fireAlerts(alerts)
	if s.Alerter != nil {
		s.Alerter.OrderCreated(order)
	}
	return order, nil
}

// DecrementStock floors at zero and fires one low-stock alert attempt per
// product that lands at or below the threshold.
func (s *OrderService) DecrementStock(ctx context.Context, items []models.OrderItem) error {
	alerts, err := s.Repo.DecrementStock(ctx, items)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product", ErrNotFound)
		}
		return err
	}
	s.fireAlerts(alerts)
	return nil
}

func (s *OrderService) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return o, err
}

// GetByIdempotencyKey looks up a previously placed order for checkout
// replay. ErrNotFound means the key has not been used.
func (s *OrderService) GetByIdempotencyKey(ctx context.Context, userID uint, key string) (*models.Order, error) {
	o, err := s.Repo.GetByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: idempotency key", ErrNotFound)
	}
	return o, err
}

func (s *OrderService) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error) {
	return s.Repo.ListByUser(ctx, userID, offset, limit)
}

func (s *OrderService) ListAll(ctx context.Context, offset, limit int) ([]models.Order, error) {
	return s.Repo.ListAll(ctx, offset, limit)
}

func (s *OrderService) MarkPaid(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.MarkPaid(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return o, err
}

func (s *OrderService) MarkDelivered(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.MarkDelivered(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if s.Alerter != nil {
		s.Alerter.OrderDelivered(o)
	}
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, id uint) error {
	err := s.Repo.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return err
}

func (s *OrderService) fireAlerts(alerts []LowStockAlert) {
	if s.Alerter == nil {
		return
	}
	for _, a := range alerts {
		s.Alerter.LowStock(a.ProductID, a.Name, a.Stock)
	}
}
