package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

type fakeAlerter struct {
	mu        sync.Mutex
	created   []uint
	delivered []uint
	lowStock  []LowStockAlert
}

func (f *fakeAlerter) OrderCreated(o *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, o.ID)
}

func (f *fakeAlerter) OrderDelivered(o *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, o.ID)
}

func (f *fakeAlerter) LowStock(productID uint, name string, stock uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lowStock = append(f.lowStock, LowStockAlert{ProductID: productID, Name: name, Stock: stock})
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{}, &models.Payment{}))
	return db
}

func newTestService(t *testing.T) (*OrderService, *fakeAlerter, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	alerter := &fakeAlerter{}
	return &OrderService{Repo: &GormRepo{DB: db}, Alerter: alerter}, alerter, db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock uint) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Description: name,
		Price:       20,
		Stock:       stock,
		Sizes:       []string{"M"},
		Colors:      []string{"black"},
		Images:      []string{name + ".jpg"},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func draftOrder(userID uint, items ...models.OrderItem) *models.Order {
	total := 0.0
	for _, it := range items {
		total += it.LineTotal
	}
	return &models.Order{
		UserID: userID,
		Items:  items,
		ShippingAddress: models.ShippingAddress{
			Email:      "buyer@example.com",
			Phone:      "+15550001111",
			Address:    "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		ItemsPrice:     total,
		TotalPrice:     total,
		PaymentMethod:  "card",
		IdempotencyKey: uuid.NewString(),
	}
}

func orderItem(p *models.Product, qty uint) models.OrderItem {
	return models.OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.Price,
		LineTotal: p.Price * float64(qty),
	}
}

func TestPlaceOrderPersistsEverything(t *testing.T) {
	svc, alerter, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)

	require.NoError(t, db.Create(&models.CartItem{
		UserID: 7, ProductID: p.ID, Color: "black", Size: "M", Quantity: 2, UnitPrice: 20,
	}).Error)

	draft := draftOrder(7, orderItem(p, 2))
	pay := &models.Payment{Method: "card", Amount: draft.TotalPrice, ProviderID: "pi_123"}

	placed, err := svc.PlaceOrder(context.Background(), draft, pay)
	require.NoError(t, err)
	require.NotZero(t, placed.ID)
	require.False(t, placed.IsPaid)

	var stored models.Order
	require.NoError(t, db.Preload("Items").First(&stored, placed.ID).Error)
	require.Len(t, stored.Items, 1)
	require.Equal(t, "boots", stored.Items[0].Name)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", placed.ID).First(&payment).Error)
	require.Equal(t, "pi_123", payment.ProviderID)

	var product models.Product
	require.NoError(t, db.First(&product, p.ID).Error)
	require.Equal(t, uint(8), product.Stock)

	var cartRows int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 7).Count(&cartRows).Error)
	require.EqualValues(t, 0, cartRows)

	require.Equal(t, []uint{placed.ID}, alerter.created)
}

func TestPlaceOrderEmptyItems(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PlaceOrder(context.Background(), draftOrder(1), nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPlaceOrderDuplicateIdempotencyKey(t *testing.T) {
	svc, _, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)

	draft := draftOrder(1, orderItem(p, 1))
	_, err := svc.PlaceOrder(context.Background(), draft, nil)
	require.NoError(t, err)

	dup := draftOrder(1, orderItem(p, 1))
	dup.IdempotencyKey = draft.IdempotencyKey
	_, err = svc.PlaceOrder(context.Background(), dup, nil)
	require.ErrorIs(t, err, ErrDuplicateKey)

	// the losing attempt must not decrement stock a second time
	var product models.Product
	require.NoError(t, db.First(&product, p.ID).Error)
	require.Equal(t, uint(9), product.Stock)
}

func TestDecrementStockFloorsAtZero(t *testing.T) {
	svc, _, db := newTestService(t)
	p := seedProduct(t, db, "scarf", 2)

	err := svc.DecrementStock(context.Background(), []models.OrderItem{
		{ProductID: p.ID, Quantity: 5},
	})
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, db.First(&product, p.ID).Error)
	require.Equal(t, uint(0), product.Stock)
}

func TestDecrementStockLowStockAlert(t *testing.T) {
	svc, alerter, db := newTestService(t)
	low := seedProduct(t, db, "gloves", 5)
	plenty := seedProduct(t, db, "socks", 50)

	err := svc.DecrementStock(context.Background(), []models.OrderItem{
		{ProductID: low.ID, Quantity: 3},
		{ProductID: plenty.ID, Quantity: 3},
	})
	require.NoError(t, err)

	require.Len(t, alerter.lowStock, 1)
	require.Equal(t, low.ID, alerter.lowStock[0].ProductID)
	require.Equal(t, "gloves", alerter.lowStock[0].Name)
	require.Equal(t, uint(2), alerter.lowStock[0].Stock)
}

func TestDecrementStockAppliesInPlace(t *testing.T) {
	svc, alerter, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)

	// two lines for the same product must subtract cumulatively from the
	// stored value, not each rewrite it from a stale read
	err := svc.DecrementStock(context.Background(), []models.OrderItem{
		{ProductID: p.ID, Quantity: 4},
		{ProductID: p.ID, Quantity: 4},
	})
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, db.First(&product, p.ID).Error)
	require.Equal(t, uint(2), product.Stock)
	require.Len(t, alerter.lowStock, 1)
	require.Equal(t, uint(2), alerter.lowStock[0].Stock)
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.DecrementStock(context.Background(), []models.OrderItem{
		{ProductID: 999, Quantity: 1},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaidOnce(t *testing.T) {
	svc, _, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)
	placed, err := svc.PlaceOrder(context.Background(), draftOrder(1, orderItem(p, 1)), nil)
	require.NoError(t, err)

	o, err := svc.MarkPaid(context.Background(), placed.ID)
	require.NoError(t, err)
	require.True(t, o.IsPaid)
	require.NotNil(t, o.PaidAt)

	_, err = svc.MarkPaid(context.Background(), placed.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestMarkDeliveredRequiresPaid(t *testing.T) {
	svc, alerter, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)
	placed, err := svc.PlaceOrder(context.Background(), draftOrder(1, orderItem(p, 1)), nil)
	require.NoError(t, err)

	_, err = svc.MarkDelivered(context.Background(), placed.ID)
	require.ErrorIs(t, err, ErrNotPaid)
	require.Empty(t, alerter.delivered)

	_, err = svc.MarkPaid(context.Background(), placed.ID)
	require.NoError(t, err)

	o, err := svc.MarkDelivered(context.Background(), placed.ID)
	require.NoError(t, err)
	require.True(t, o.IsDelivered)
	require.NotNil(t, o.DeliveredAt)
	require.Equal(t, []uint{placed.ID}, alerter.delivered)

	_, err = svc.MarkDelivered(context.Background(), placed.ID)
	require.ErrorIs(t, err, ErrAlreadyDelivered)
	require.Len(t, alerter.delivered, 1)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.MarkPaid(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIdempotencyKey(t *testing.T) {
	svc, _, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)

	draft := draftOrder(3, orderItem(p, 1))
	placed, err := svc.PlaceOrder(context.Background(), draft, nil)
	require.NoError(t, err)

	found, err := svc.GetByIdempotencyKey(context.Background(), 3, draft.IdempotencyKey)
	require.NoError(t, err)
	require.Equal(t, placed.ID, found.ID)
	require.Len(t, found.Items, 1)

	// keys are scoped per user
	_, err = svc.GetByIdempotencyKey(context.Background(), 4, draft.IdempotencyKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOrderRemovesChildren(t *testing.T) {
	svc, _, db := newTestService(t)
	p := seedProduct(t, db, "boots", 10)

	draft := draftOrder(1, orderItem(p, 1))
	pay := &models.Payment{Method: "card", Amount: draft.TotalPrice}
	placed, err := svc.PlaceOrder(context.Background(), draft, pay)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), placed.ID))

	var items, payments int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", placed.ID).Count(&items).Error)
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", placed.ID).Count(&payments).Error)
	require.EqualValues(t, 0, items)
	require.EqualValues(t, 0, payments)

	require.ErrorIs(t, svc.Delete(context.Background(), placed.ID), ErrNotFound)
}

func TestListByUser(t *testing.T) {
	svc, _, db := newTestService(t)
	p := seedProduct(t, db, "boots", 50)

	for i := 0; i < 3; i++ {
		_, err := svc.PlaceOrder(context.Background(), draftOrder(1, orderItem(p, 1)), nil)
		require.NoError(t, err)
	}
	_, err := svc.PlaceOrder(context.Background(), draftOrder(2, orderItem(p, 1)), nil)
	require.NoError(t, err)

	mine, err := svc.ListByUser(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, mine, 3)

	all, err := svc.ListAll(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
}
