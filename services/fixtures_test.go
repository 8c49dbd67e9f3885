package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testPricing() services.PricingConfig {
	return services.PricingConfig{
		VATRate:     decimal.RequireFromString("0.10"),
		DeliveryFee: decimal.NewFromInt(20000),
		OrderPrefix: "ORD",
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.AutoMigrate(db))
	return db
}

type recordingNotifier struct {
	events []string
	alerts []services.StockAlert
}

func (n *recordingNotifier) OrderChanged(event string, order *models.Order) {
	n.events = append(n.events, event)
}

func (n *recordingNotifier) StockAlerts(alerts []services.StockAlert) {
	n.alerts = append(n.alerts, alerts...)
}

type fixture struct {
	db       *gorm.DB
	svc      *services.OrderService
	notifier *recordingNotifier
	customer models.Customer
	food     models.Category
	drinks   models.Category
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, testPricing())
}

func newFixtureWith(t *testing.T, cfg services.PricingConfig) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{db: db, notifier: &recordingNotifier{}}

	f.customer = models.Customer{Name: "Budi"}
	require.NoError(t, db.Create(&f.customer).Error)
	f.food = models.Category{Name: "Makanan"}
	require.NoError(t, db.Create(&f.food).Error)
	f.drinks = models.Category{Name: "Minuman"}
	require.NoError(t, db.Create(&f.drinks).Error)

	f.svc = services.NewOrderService(db, cfg, services.SpendTierProvider{}, f.notifier)
	f.svc.SetClock(func() time.Time { return testNow })
	return f
}

func (f *fixture) product(t *testing.T, name string, price int64, stock int, categoryID uint) models.Product {
	t.Helper()
	p := models.Product{
		Name:          name,
		CategoryID:    categoryID,
		Price:         decimal.NewFromInt(price),
		IsActive:      true,
		IsAvailable:   true,
		StockQuantity: stock,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) ingredient(t *testing.T, name, quantity, minimum string) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{
		Name:        name,
		Unit:        "pcs",
		Quantity:    decimal.RequireFromString(quantity),
		MinQuantity: decimal.RequireFromString(minimum),
	}
	require.NoError(t, f.db.Create(&ing).Error)
	return ing
}

func (f *fixture) recipe(t *testing.T, productID, ingredientID uint, required string) {
	t.Helper()
	line := models.ProductIngredient{
		ProductID:        productID,
		IngredientID:     ingredientID,
		QuantityRequired: decimal.RequireFromString(required),
	}
	require.NoError(t, f.db.Create(&line).Error)
}

// discount stores d with a validity window around testNow unless one is set.
func (f *fixture) discount(t *testing.T, d models.Discount) models.Discount {
	t.Helper()
	if d.StartDate.IsZero() {
		d.StartDate = testNow.Add(-24 * time.Hour)
	}
	if d.EndDate.IsZero() {
		d.EndDate = testNow.Add(24 * time.Hour)
	}
	d.IsActive = true
	require.NoError(t, f.db.Create(&d).Error)
	return d
}

func (f *fixture) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, productID).Error)
	return p.StockQuantity
}

func (f *fixture) ingredientQty(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	var ing models.Ingredient
	require.NoError(t, f.db.First(&ing, id).Error)
	return ing.Quantity
}

func (f *fixture) usedCount(t *testing.T, discountID uint) int {
	t.Helper()
	var d models.Discount
	require.NoError(t, f.db.First(&d, discountID).Error)
	return d.UsedCount
}

// pay settles the order by card for its current total.
func (f *fixture) pay(t *testing.T, orderID uint) {
	t.Helper()
	_, err := f.svc.RecordPayment(context.Background(), orderID, services.RecordPaymentInput{Method: models.PaymentCard})
	require.NoError(t, err)
}

func (f *fixture) takeaway(items ...services.LineItemRequest) services.CreateOrderInput {
	return services.CreateOrderInput{
		CustomerID: f.customer.ID,
		Type:       models.OrderTakeaway,
		Items:      items,
	}
}

func line(productID uint, quantity int) services.LineItemRequest {
	return services.LineItemRequest{ProductID: productID, Quantity: quantity}
}

func uintPtr(v uint) *uint { return &v }

func intPtr(v int) *int { return &v }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// assertTotals checks total = max(0, sub + tax + fee - discount).
func assertTotals(t *testing.T, o *models.Order) {
	t.Helper()
	discount := decimal.Zero
	if o.DiscountAmount.Valid {
		discount = o.DiscountAmount.Decimal
	}
	want := decimal.Max(decimal.Zero, o.SubTotal.Add(o.TaxAmount).Add(o.DeliveryFee).Sub(discount))
	assertDecimal(t, want.String(), o.TotalAmount, "total invariant")
}

func assertKind(t *testing.T, err error, kind services.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, services.IsKind(err, kind), "want %s, got %v", kind, err)
}
