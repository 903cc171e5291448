package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// errLineConflict marks a first-add that lost the insert race for a new
// variant line; the caller retries so the add merges into the winner's row.
var errLineConflict = errors.New("cart line insert conflict")

// AddItem merges into an existing line or appends a new one, checking the
// stock ceiling against the product row inside one transaction. The price
// snapshot is taken from the product inside the same transaction, and the
// merge uses a guarded in-place update so two concurrent adds for the same
// line cannot jointly pass the stock check.
func (r *GormRepo) AddItem(ctx context.Context, userID, productID uint, color, size string, quantity uint) (*models.CartItem, error) {
	item, err := r.addItemOnce(ctx, userID, productID, color, size, quantity)
	if errors.Is(err, errLineConflict) {
		item, err = r.addItemOnce(ctx, userID, productID, color, size, quantity)
	}
	if errors.Is(err, errLineConflict) {
		return nil, ErrInsufficientStock
	}
	return item, err
}

func (r *GormRepo) addItemOnce(ctx context.Context, userID, productID uint, color, size string, quantity uint) (*models.CartItem, error) {
	var item models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}

		if !product.HasColor(color) {
			return fmt.Errorf("%w: color %q not available for product %d", ErrValidation, color, productID)
		}
		if !product.HasSize(size) {
			return fmt.Errorf("%w: size %q not available for product %d", ErrValidation, size, productID)
		}

		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ? AND color = ? AND size = ?", userID, productID, color, size).
			Where("quantity + ? <= ?", quantity, product.Stock).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND product_id = ? AND color = ? AND size = ?", userID, productID, color, size).
				First(&item).Error
		}

		// No row updated: either the line exists but the merge would
		// overcommit stock, or the line does not exist yet.
		var existing models.CartItem
		err := tx.Where("user_id = ? AND product_id = ? AND color = ? AND size = ?", userID, productID, color, size).
			First(&existing).Error
		if err == nil {
			return ErrInsufficientStock
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if product.Stock < quantity {
			return ErrOutOfStock
		}

		item = models.CartItem{
			UserID:          userID,
			ProductID:       productID,
			Color:           color,
			Size:            size,
			Quantity:        quantity,
			UnitPrice:       product.Price,
			DiscountPercent: product.DiscountPercent,
		}
		if err := tx.Create(&item).Error; err != nil {
			if isUniqueViolation(err) {
				return errLineConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func (r *GormRepo) GetItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetProducts(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// RemoveItem deletes one line. Deleting the last line leaves the user with
// no cart rows at all; there is no separate cart record to go stale.
func (r *GormRepo) RemoveItem(ctx context.Context, userID, lineID uint) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) Clear(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
