package transport

type AddToCartRequest struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Quantity  uint   `json:"quantity"   validate:"required,min=1"`
	Color     string `json:"color"      validate:"required"`
	Size      string `json:"size"       validate:"required"`
}

type CheckoutItem struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Quantity  uint    `json:"quantity"   validate:"required,min=1"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Color     string  `json:"color"`
	Size      string  `json:"size"`
}

type ShippingAddress struct {
	Email      string `json:"email"       validate:"required,email"`
	Phone      string `json:"phone"       validate:"required,phone_e164"`
	Address    string `json:"address"     validate:"required"`
	City       string `json:"city"        validate:"required"`
	PostalCode string `json:"postal_code" validate:"required,postal_code"`
	Country    string `json:"country"     validate:"required"`
}

type CheckoutRequest struct {
	OrderItems      []CheckoutItem  `json:"order_items"      validate:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"   validate:"required"`
	PaymentToken    string          `json:"payment_token"    validate:"required"`
	ItemsPrice      float64         `json:"items_price"      validate:"gte=0"`
	TaxPrice        float64         `json:"tax_price"        validate:"gte=0"`
	ShippingPrice   float64         `json:"shipping_price"   validate:"gte=0"`
	TotalPrice      float64         `json:"total_price"      validate:"gte=0"`
}

type RecordPaymentRequest struct {
	OrderID       uint    `json:"order_id"       validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Amount        float64 `json:"amount"         validate:"gte=0"`
	PaymentResult struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		CardBrand string `json:"card_brand"`
		CardLast4 string `json:"card_last4"`
	} `json:"payment_result"`
}

type CreatePaymentIntentRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type CreateProductRequest struct {
	Name            string   `json:"name"             validate:"required"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"            validate:"gte=0"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
	Stock           uint     `json:"stock"`
	Sizes           []string `json:"sizes"            validate:"required,min=1"`
	Colors          []string `json:"colors"           validate:"required,min=1"`
	Images          []string `json:"images"           validate:"required,min=1"`
}

type PatchProductRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	DiscountPercent *float64 `json:"discount_percent"`
	Stock           *uint    `json:"stock"`
	Sizes           []string `json:"sizes"`
	Colors          []string `json:"colors"`
	Images          []string `json:"images"`
}
