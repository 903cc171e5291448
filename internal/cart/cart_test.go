package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.CartItem{}))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock uint) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:            "hoodie",
		Description:     "plain hoodie",
		Price:           50,
		DiscountPercent: 10,
		Stock:           stock,
		Sizes:           []string{"S", "M", "L"},
		Colors:          []string{"black", "white"},
		Images:          []string{"hoodie.jpg"},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestAddItemNewLine(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	item, err := svc.AddItem(context.Background(), 1, p.ID, 2, "black", "M")
	require.NoError(t, err)
	require.Equal(t, uint(2), item.Quantity)
	require.Equal(t, 50.0, item.UnitPrice)
	require.Equal(t, 10.0, item.DiscountPercent)
}

func TestAddItemMergesSameVariant(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 2, "black", "M")
	require.NoError(t, err)
	item, err := svc.AddItem(context.Background(), 1, p.ID, 3, "black", "M")
	require.NoError(t, err)
	require.Equal(t, uint(5), item.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddItemDifferentVariantNewLine(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 1, "black", "M")
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), 1, p.ID, 1, "white", "M")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAddItemOutOfStock(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 2)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 3, "black", "M")
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestAddItemMergeCannotExceedStock(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 5)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 3, "black", "M")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), 1, p.ID, 3, "black", "M")
	require.ErrorIs(t, err, ErrInsufficientStock)

	// the failed merge must not touch the existing line
	var item models.CartItem
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", 1, p.ID).First(&item).Error)
	require.Equal(t, uint(3), item.Quantity)
}

func TestAddItemConcurrentSameVariant(t *testing.T) {
	db := testDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	const adds = 4
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		go func() {
			_, err := svc.AddItem(context.Background(), 1, p.ID, 1, "black", "M")
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < adds; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		// a losing add may be refused on stock, never with a raw conflict
		require.ErrorIs(t, err, ErrInsufficientStock)
	}

	var items []models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, uint(succeeded), items[0].Quantity)
	require.LessOrEqual(t, items[0].Quantity, p.Stock)
}

func TestAddItemRetriesLostInsertRace(t *testing.T) {
	db := testDB(t)
	repo := &GormRepo{DB: db}
	p := seedProduct(t, db, 10)

	// simulate losing the first-add race: right before the new line's
	// INSERT, slip a conflicting row in so the insert hits the variant
	// unique index; AddItem must retry instead of surfacing the violation
	conflicted := false
	var injectErr error
	err := db.Callback().Create().Before("gorm:create").Register("race_same_line", func(tx *gorm.DB) {
		if conflicted {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.CartItem); !ok {
			return
		}
		conflicted = true
		injectErr = tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO cart_items (user_id, product_id, color, size, quantity, unit_price, discount_percent) VALUES (?, ?, ?, ?, ?, ?, ?)",
			1, p.ID, "black", "M", 1, 50.0, 0.0,
		).Error
	})
	require.NoError(t, err)

	item, err := repo.AddItem(context.Background(), 1, p.ID, "black", "M", 2)
	require.NoError(t, err)
	require.True(t, conflicted)
	require.NoError(t, injectErr)
	require.Equal(t, uint(2), item.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddItemUnknownVariant(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 1, "purple", "M")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddItem(context.Background(), 1, p.ID, 1, "black", "XXL")
	require.ErrorIs(t, err, ErrValidation)
}

func TestAddItemUnknownProduct(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}

	_, err := svc.AddItem(context.Background(), 1, 999, 1, "black", "M")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemValidatesInput(t *testing.T) {
	svc := &CartService{Repo: &GormRepo{DB: testDB(t)}}

	_, err := svc.AddItem(context.Background(), 1, 0, 1, "black", "M")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddItem(context.Background(), 1, 1, 0, "black", "M")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddItem(context.Background(), 1, 1, 1, "", "M")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddItem(context.Background(), 1, 1, 1, "black", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestAddItemKeepsPriceSnapshot(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	item, err := svc.AddItem(context.Background(), 1, p.ID, 1, "black", "M")
	require.NoError(t, err)

	require.NoError(t, db.Model(p).Update("price", 80).Error)

	cart, err := svc.GetCart(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 50.0, cart.Items[0].Item.UnitPrice)
	require.Equal(t, 72.0, cart.Items[0].CurrentPrice) // 80 minus the 10% discount
	require.Equal(t, item.LineTotal(), cart.Items[0].LineTotal)
}

func TestGetCartEmpty(t *testing.T) {
	svc := &CartService{Repo: &GormRepo{DB: testDB(t)}}

	cart, err := svc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, cart)
	require.Empty(t, cart.Items)
	require.Zero(t, cart.Total)
}

func TestGetCartTotals(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 2, "black", "M")
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), 1, p.ID, 1, "white", "L")
	require.NoError(t, err)

	cart, err := svc.GetCart(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	// 50 * 0.9 = 45 per unit, 3 units total
	require.InDelta(t, 135.0, cart.Total, 0.001)
	require.Equal(t, "hoodie", cart.Items[0].ProductName)
	require.Equal(t, "hoodie.jpg", cart.Items[0].Image)
}

func TestRemoveLastLineLeavesNoRows(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	item, err := svc.AddItem(context.Background(), 1, p.ID, 1, "black", "M")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(context.Background(), 1, item.ID))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.EqualValues(t, 0, count)

	cart, err := svc.GetCart(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}

func TestRemoveItemOtherUsersLine(t *testing.T) {
	db := testDB(t)
	svc := &CartService{Repo: &GormRepo{DB: db}}
	p := seedProduct(t, db, 10)

	item, err := svc.AddItem(context.Background(), 1, p.ID, 1, "black", "M")
	require.NoError(t, err)

	err = svc.RemoveItem(context.Background(), 2, item.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
