package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

// LowStockThreshold is the stock level at or below which a restock alert
// fires after a decrement.
const LowStockThreshold = 2

// LowStockAlert is collected inside the decrement transaction and handed to
// the dispatcher after commit.
type LowStockAlert struct {
	ProductID uint
	Name      string
	Stock     uint
}

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

// PlaceOrder runs the checkout persistence as one transaction: order with
// snapshot items, linked payment record, stock decrement for every item and
// cart clearing. A failure anywhere rolls everything back, so a charged
// payment is never left without its order.
func (r *GormRepo) PlaceOrder(ctx context.Context, order *models.Order, payment *models.Payment, clearCartUser uint) ([]LowStockAlert, error) {
	var alerts []LowStockAlert

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateKey
			}
			return err
		}

		if payment != nil {
			payment.OrderID = order.ID
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
		}

		var err error
		alerts, err = decrementStockTx(tx, order.Items)
		if err != nil {
			return err
		}

		if clearCartUser != 0 {
			if err := tx.Where("user_id = ?", clearCartUser).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// DecrementStock subtracts each item's quantity from its product, flooring
// at zero, inside a single cross-item transaction.
func (r *GormRepo) DecrementStock(ctx context.Context, items []models.OrderItem) ([]LowStockAlert, error) {
	var alerts []LowStockAlert

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		alerts, err = decrementStockTx(tx, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func decrementStockTx(tx *gorm.DB, items []models.OrderItem) ([]LowStockAlert, error) {
	var alerts []LowStockAlert

	for _, it := range items {
		// decrement in place so a concurrent decrement cannot be lost to a
		// stale read; the expression floors at zero
		res := tx.Model(&models.Product{}).
			Where("id = ?", it.ProductID).
			Update("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", it.Quantity, it.Quantity))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}

		var product models.Product
		if err := tx.First(&product, it.ProductID).Error; err != nil {
			return nil, err
		}
		if product.Stock <= LowStockThreshold {
			alerts = append(alerts, LowStockAlert{ProductID: product.ID, Name: product.Name, Stock: product.Stock})
		}
	}
	return alerts, nil
}

func (r *GormRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetByIdempotencyKey(ctx context.Context, userID uint, key string) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND idempotency_key = ?", userID, key).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListAll(ctx context.Context, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaid flips the one-way paid flag. The guarded update keeps a
// concurrent double-pay from succeeding twice.
func (r *GormRepo) MarkPaid(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&o, id).Error; err != nil {
			return err
		}
		if o.IsPaid {
			return ErrAlreadyPaid
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND is_paid = ?", id, false).
			Updates(map[string]any{"is_paid": true, "paid_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyPaid
		}

		o.IsPaid = true
		o.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkDelivered flips the one-way delivered flag. An unpaid order cannot be
// delivered.
func (r *GormRepo) MarkDelivered(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&o, id).Error; err != nil {
			return err
		}
		if o.IsDelivered {
			return ErrAlreadyDelivered
		}
		if !o.IsPaid {
			return ErrNotPaid
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND is_delivered = ?", id, false).
			Updates(map[string]any{"is_delivered": true, "delivered_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyDelivered
		}

		o.IsDelivered = true
		o.DeliveredAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("order_id = ?", id).Delete(&models.Payment{}).Error
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
