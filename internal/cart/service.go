package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Line is a cart line enriched with the current product for display. The
// captured add-time price lives in Item; CurrentPrice may differ.
type Line struct {
	Item         models.CartItem `json:"item"`
	ProductName  string          `json:"product_name"`
	CurrentPrice float64         `json:"current_price"`
	Image        string          `json:"image,omitempty"`
	LineTotal    float64         `json:"line_total"`
}

type Cart struct {
	Items []Line  `json:"items"`
	Total float64 `json:"total"`
}

type CartService struct {
	Repo *GormRepo
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity uint, color, size string) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if color == "" {
		return nil, fmt.Errorf("%w: color required", ErrValidation)
	}
	if size == "" {
		return nil, fmt.Errorf("%w: size required", ErrValidation)
	}

	item, err := s.Repo.AddItem(ctx, userID, productID, color, size, quantity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	return item, err
}

// GetCart returns the user's lines enriched with current product name and
// price. A user with no lines gets an empty cart, not an error.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	items, err := s.Repo.GetItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &Cart{Items: []Line{}}, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := &Cart{Items: make([]Line, 0, len(items))}
	for _, it := range items {
		line := Line{Item: it, LineTotal: it.LineTotal()}
		if p, ok := products[it.ProductID]; ok {
			line.ProductName = p.Name
			line.CurrentPrice = p.FinalPrice()
			if len(p.Images) > 0 {
				line.Image = p.Images[0]
			}
		}
		cart.Items = append(cart.Items, line)
		cart.Total += line.LineTotal
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, lineID uint) error {
	if lineID == 0 {
		return fmt.Errorf("%w: line id required", ErrValidation)
	}
	err := s.Repo.RemoveItem(ctx, userID, lineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: cart line %d", ErrNotFound, lineID)
	}
	return err
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.Repo.Clear(ctx, userID)
}
