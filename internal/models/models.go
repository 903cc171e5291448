package models

import (
	"time"
)

// Allowed variant axes. Products carry a non-empty subset of each.
var (
	Sizes  = []string{"XS", "S", "M", "L", "XL", "XXL"}
	Colors = []string{"black", "white", "red", "green", "blue", "yellow"}
)

type Product struct {
	ID              uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string   `gorm:"not null"                 json:"name"`
	Description     string   `gorm:"not null"                 json:"description"`
	Price           float64  `gorm:"not null"                 json:"price"`
	DiscountPercent float64  `gorm:"default:0"                json:"discount_percent"`
	Stock           uint     `json:"stock"`
	Sizes           []string `gorm:"serializer:json;not null" json:"sizes"`
	Colors          []string `gorm:"serializer:json;not null" json:"colors"`
	Images          []string `gorm:"serializer:json;not null" json:"images"`
}

// FinalPrice is the discount-adjusted unit price.
func (p *Product) FinalPrice() float64 {
	return p.Price * (1 - p.DiscountPercent/100)
}

func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

func (p *Product) HasColor(color string) bool {
	for _, c := range p.Colors {
		if c == color {
			return true
		}
	}
	return false
}

// CartItem is one cart line. The (user, product, color, size) tuple is the
// line identity: adding the same tuple again merges quantities instead of
// creating a second row. UnitPrice and DiscountPercent are captured at add
// time and never recomputed.
type CartItem struct {
	ID              uint    `gorm:"primaryKey"                            json:"id"`
	UserID          uint    `gorm:"uniqueIndex:idx_cart_variant;not null" json:"user_id"`
	ProductID       uint    `gorm:"uniqueIndex:idx_cart_variant;not null" json:"product_id"`
	Color           string  `gorm:"uniqueIndex:idx_cart_variant;not null" json:"color"`
	Size            string  `gorm:"uniqueIndex:idx_cart_variant;not null" json:"size"`
	Quantity        uint    `gorm:"default:1;check:quantity>0"            json:"quantity"`
	UnitPrice       float64 `gorm:"not null"                              json:"unit_price"`
	DiscountPercent float64 `gorm:"default:0"                             json:"discount_percent"`
}

// FinalUnitPrice is the add-time price after the add-time discount.
func (i *CartItem) FinalUnitPrice() float64 {
	return i.UnitPrice * (1 - i.DiscountPercent/100)
}

func (i *CartItem) LineTotal() float64 {
	return i.FinalUnitPrice() * float64(i.Quantity)
}

type ShippingAddress struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is immutable once created, except for the two one-way flags
// IsPaid and IsDelivered. Items are a snapshot taken at creation time so
// later product edits never change a placed order.
type Order struct {
	ID              uint            `gorm:"primaryKey"                         json:"id"`
	UserID          uint            `gorm:"uniqueIndex:idx_user_idem;not null" json:"user_id"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"                 json:"items"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"  json:"shipping_address"`
	ItemsPrice      float64         `gorm:"not null"                           json:"items_price"`
	TaxPrice        float64         `gorm:"not null"                           json:"tax_price"`
	ShippingPrice   float64         `gorm:"not null"                           json:"shipping_price"`
	TotalPrice      float64         `gorm:"not null"                           json:"total_price"`
	PaymentMethod   string          `gorm:"not null"                           json:"payment_method"`
	IsPaid          bool            `gorm:"default:false"                      json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	IsDelivered     bool            `gorm:"default:false"                      json:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	IdempotencyKey  string          `gorm:"uniqueIndex:idx_user_idem;not null" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"       json:"id"`
	OrderID   uint    `gorm:"index;not null"   json:"order_id"`
	ProductID uint    `gorm:"not null"         json:"product_id"`
	Name      string  `gorm:"not null"         json:"name"`
	Image     string  `json:"image"`
	Color     string  `json:"color"`
	Size      string  `json:"size"`
	Quantity  uint    `gorm:"check:quantity>0" json:"quantity"`
	UnitPrice float64 `gorm:"not null"         json:"unit_price"`
	LineTotal float64 `gorm:"not null"         json:"line_total"`
}

// Payment links a provider charge result 1:1 to an order.
type Payment struct {
	ID             uint       `gorm:"primaryKey"           json:"id"`
	OrderID        uint       `gorm:"uniqueIndex;not null" json:"order_id"`
	Method         string     `gorm:"not null"             json:"method"`
	ProviderID     string     `json:"provider_id"`
	ProviderStatus string     `json:"provider_status"`
	CardBrand      string     `json:"card_brand,omitempty"`
	CardLast4      string     `json:"card_last4,omitempty"`
	Amount         float64    `gorm:"not null"             json:"amount"`
	IsPaid         bool       `gorm:"default:false"        json:"is_paid"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
