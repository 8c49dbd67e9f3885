package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

func statusPtr(s models.OrderStatus) *models.OrderStatus { return &s }

func TestUpdateOrderReplaceItems(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	tea := f.product(t, "Es Teh", 10000, 20, f.drinks.ID)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.takeaway(line(rice.ID, 2)))
	require.NoError(t, err)

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(rice.ID, 1), line(tea.ID, 21)},
	})
	assertKind(t, err, services.KindInsufficientStock)
	assert.Equal(t, 8, f.stockOf(t, rice.ID))
	assert.Equal(t, 20, f.stockOf(t, tea.ID))
	unchanged, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, unchanged.OrderItems, 1)
	assert.Equal(t, 2, unchanged.OrderItems[0].Quantity)

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(tea.ID, 3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, f.stockOf(t, rice.ID))
	assert.Equal(t, 17, f.stockOf(t, tea.ID))
	require.Len(t, updated.OrderItems, 1)
	assert.Equal(t, tea.ID, updated.OrderItems[0].ProductID)
	assertDecimal(t, "30000", updated.SubTotal)
	assertDecimal(t, "3000", updated.TaxAmount)
	assertDecimal(t, "33000", updated.TotalAmount)
	assertTotals(t, updated)
}

func TestUpdateOrderSetAndClearDiscount(t *testing.T) {
	for _, refund := range []bool{false, true} {
		cfg := testPricing()
		cfg.RefundDiscountOnCancel = refund
		f := newFixtureWith(t, cfg)
		rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
		d := f.discount(t, models.Discount{Code: "HEMAT20", Name: "Hemat 20", Type: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(20)})
		ctx := context.Background()

		order, err := f.svc.CreateOrder(ctx, f.takeaway(line(rice.ID, 2)))
		require.NoError(t, err)

		withDiscount, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
			Discount: services.DiscountChange{Action: services.DiscountSet, ID: d.ID},
		})
		require.NoError(t, err)
		assertDecimal(t, "20000", withDiscount.DiscountAmount.Decimal)
		assertDecimal(t, "90000", withDiscount.TotalAmount)
		assert.Equal(t, 1, f.usedCount(t, d.ID))

		cleared, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
			Discount: services.DiscountChange{Action: services.DiscountClear},
		})
		require.NoError(t, err)
		assert.Nil(t, cleared.DiscountID)
		assert.False(t, cleared.DiscountAmount.Valid)
		assertDecimal(t, "110000", cleared.TotalAmount)

		want := 1
		if refund {
			want = 0
		}
		assert.Equal(t, want, f.usedCount(t, d.ID), "refund=%v", refund)
	}
}

func TestUpdateOrderKeepsDiscountAmountOnItemChange(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	d := f.discount(t, models.Discount{Code: "HEMAT20", Name: "Hemat 20", Type: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(20)})
	ctx := context.Background()

	in := f.takeaway(line(rice.ID, 2))
	in.DiscountID = &d.ID
	order, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(rice.ID, 4)},
	})
	require.NoError(t, err)
	assertDecimal(t, "200000", updated.SubTotal)
	assertDecimal(t, "20000", updated.DiscountAmount.Decimal)
	assertDecimal(t, "200000", updated.TotalAmount)
	assert.Equal(t, 1, f.usedCount(t, d.ID))
	assert.Equal(t, 6, f.stockOf(t, rice.ID))
}

func TestUpdateOrderRerunsBuyXGetY(t *testing.T) {
	f := newFixture(t)
	tea := f.product(t, "Es Teh", 10000, 20, f.drinks.ID)
	cracker := f.product(t, "Kerupuk", 5000, 10, f.food.ID)
	d := f.discount(t, models.Discount{
		Code:                "B2G1",
		Name:                "Beli 2 gratis kerupuk",
		Type:                models.DiscountBuyXGetY,
		BuyQuantity:         2,
		FreeProductID:       &cracker.ID,
		FreeProductQuantity: 1,
		Products:            []models.DiscountProduct{{ProductID: tea.ID}},
	})
	ctx := context.Background()

	in := f.takeaway(line(tea.ID, 5))
	in.DiscountID = &d.ID
	order, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 8, f.stockOf(t, cracker.ID))

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(tea.ID, 2)},
	})
	require.NoError(t, err)
	require.Len(t, updated.OrderItems, 2)
	assert.Equal(t, 1, updated.OrderItems[1].Quantity)
	assert.True(t, updated.OrderItems[1].IsPromotional)
	assert.Equal(t, 18, f.stockOf(t, tea.ID))
	assert.Equal(t, 9, f.stockOf(t, cracker.ID))
	assert.Equal(t, 1, f.usedCount(t, d.ID), "re-running an attached discount takes no new slot")

	below, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(tea.ID, 1)},
	})
	require.NoError(t, err)
	require.Len(t, below.OrderItems, 1)
	assert.Nil(t, below.DiscountID)
	assert.Equal(t, 10, f.stockOf(t, cracker.ID))
	assertDecimal(t, "11000", below.TotalAmount)
}

func TestUpdateOrderReattachSkipsUsageLimit(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	d := f.discount(t, models.Discount{
		Code:          "SEKALI",
		Name:          "Sekali pakai",
		Type:          models.DiscountFixedAmount,
		DiscountValue: decimal.NewFromInt(5000),
		UsageLimit:    intPtr(1),
	})
	ctx := context.Background()

	in := f.takeaway(line(rice.ID, 1))
	in.DiscountID = &d.ID
	order, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Discount: services.DiscountChange{Action: services.DiscountSet, ID: d.ID},
	})
	require.NoError(t, err)
	assertDecimal(t, "5000", updated.DiscountAmount.Decimal)
	assert.Equal(t, 1, f.usedCount(t, d.ID))
}

func TestUpdateOrderSwitchDiscount(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	first := f.discount(t, models.Discount{Code: "POTONG5", Name: "Potong 5rb", Type: models.DiscountFixedAmount, DiscountValue: decimal.NewFromInt(5000)})
	second := f.discount(t, models.Discount{Code: "HEMAT10", Name: "Hemat 10", Type: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)})
	ctx := context.Background()

	in := f.takeaway(line(rice.ID, 2))
	in.DiscountID = &first.ID
	order, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Discount: services.DiscountChange{Action: services.DiscountSet, ID: second.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DiscountID)
	assert.Equal(t, second.ID, *updated.DiscountID)
	assertDecimal(t, "10000", updated.DiscountAmount.Decimal)
	assertDecimal(t, "100000", updated.TotalAmount)
	assert.Equal(t, 1, f.usedCount(t, first.ID))
	assert.Equal(t, 1, f.usedCount(t, second.ID))
}

func TestUpdateOrderStatusTimestamps(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.takeaway(line(rice.ID, 1)))
	require.NoError(t, err)

	confirmed, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Status: statusPtr(models.OrderConfirmed)})
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.True(t, confirmed.ConfirmedAt.Equal(testNow))

	later := testNow.Add(time.Hour)
	f.svc.SetClock(func() time.Time { return later })
	again, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Status: statusPtr(models.OrderConfirmed)})
	require.NoError(t, err)
	assert.True(t, again.ConfirmedAt.Equal(later), "re-entering a status overwrites its timestamp")

	f.pay(t, order.ID)
	for _, s := range []models.OrderStatus{models.OrderPreparing, models.OrderReady, models.OrderDelivered} {
		_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Status: statusPtr(s)})
		require.NoError(t, err)
	}
	delivered, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, delivered.Status)
	assert.NotNil(t, delivered.PreparingAt)
	assert.NotNil(t, delivered.ReadyAt)
	assert.NotNil(t, delivered.DeliveredAt)

	notes := "late edit"
	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Notes: &notes})
	assertKind(t, err, services.KindInvalidState)

	_, err = f.svc.CancelOrder(ctx, order.ID)
	assertKind(t, err, services.KindInvalidState)
	assert.Contains(t, err.Error(), "already delivered")
	assert.Equal(t, 9, f.stockOf(t, rice.ID))
}

func TestUpdateOrderCancelledStatusRestoresStock(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.takeaway(line(rice.ID, 3)))
	require.NoError(t, err)

	cancelled, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Status: statusPtr(models.OrderCancelled)})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 10, f.stockOf(t, rice.ID))
	assert.Equal(t, services.EventOrderCancelled, f.notifier.events[len(f.notifier.events)-1])
}

func TestUpdateOrderTableTransfer(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	a1 := models.Table{TableNumber: "A1", Capacity: 2, Status: models.TableAvailable}
	a2 := models.Table{TableNumber: "A2", Capacity: 4, Status: models.TableAvailable}
	require.NoError(t, f.db.Create(&a1).Error)
	require.NoError(t, f.db.Create(&a2).Error)
	ctx := context.Background()

	in := f.takeaway(line(rice.ID, 1))
	in.Type = models.OrderDineIn
	in.TableID = &a1.ID
	order, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	moved, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{TableID: &a2.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.TableID)
	assert.Equal(t, a2.ID, *moved.TableID)

	tableStatus := func(id uint) string {
		var tb models.Table
		require.NoError(t, f.db.First(&tb, id).Error)
		return tb.Status
	}
	assert.Equal(t, models.TableAvailable, tableStatus(a1.ID))
	assert.Equal(t, models.TableOccupied, tableStatus(a2.ID))

	f.pay(t, order.ID)
	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Status: statusPtr(models.OrderDelivered)})
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tableStatus(a2.ID))

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{TableID: uintPtr(999)})
	assertKind(t, err, services.KindInvalidState)
}

func TestUpdateOrderInvalidInput(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "Nasi Goreng", 50000, 10, f.food.ID)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.takeaway(line(rice.ID, 1)))
	require.NoError(t, err)

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Status: statusPtr("served")})
	assertKind(t, err, services.KindValidation)

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Items: []services.LineItemRequest{}})
	assertKind(t, err, services.KindValidation)

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{Discount: services.DiscountChange{Action: services.DiscountSet}})
	assertKind(t, err, services.KindValidation)

	_, err = f.svc.UpdateOrder(ctx, 999, services.UpdateOrderInput{})
	assertKind(t, err, services.KindNotFound)

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{TableID: uintPtr(999)})
	assertKind(t, err, services.KindNotFound)
}

func TestUpdateOrderKeptBuyXGetYSurvivesLifecycleChanges(t *testing.T) {
	f := newFixture(t)
	tea := f.product(t, "Es Teh", 10000, 20, f.drinks.ID)
	cracker := f.product(t, "Kerupuk", 5000, 10, f.food.ID)
	d := f.discount(t, models.Discount{
		Code:                "B2G1",
		Name:                "Beli 2 gratis kerupuk",
		Type:                models.DiscountBuyXGetY,
		BuyQuantity:         2,
		FreeProductID:       &cracker.ID,
		FreeProductQuantity: 1,
		Products:            []models.DiscountProduct{{ProductID: tea.ID}},
	})
	ctx := context.Background()

	in := f.takeaway(line(tea.ID, 4))
	in.DiscountID = &d.ID
	order, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 8, f.stockOf(t, cracker.ID))

	require.NoError(t, f.db.Model(&models.Discount{}).Where("id = ?", d.ID).Update("is_active", false).Error)

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(tea.ID, 3)},
	})
	require.NoError(t, err, "a disabled discount left in place does not block line changes")
	require.NotNil(t, updated.DiscountID)
	assert.Equal(t, d.ID, *updated.DiscountID)
	require.Len(t, updated.OrderItems, 2)
	assert.Equal(t, 1, updated.OrderItems[1].Quantity)
	assert.Equal(t, 9, f.stockOf(t, cracker.ID))
	assert.Equal(t, 1, f.usedCount(t, d.ID))

	f.svc.SetClock(func() time.Time { return testNow.Add(72 * time.Hour) })
	updated, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(tea.ID, 4)},
	})
	require.NoError(t, err, "an expired discount left in place does not block line changes")
	require.Len(t, updated.OrderItems, 2)
	assert.Equal(t, 2, updated.OrderItems[1].Quantity)
	assert.Equal(t, 8, f.stockOf(t, cracker.ID))

	// lines outside the product scope drop the promotion instead of failing
	updated, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items: []services.LineItemRequest{line(cracker.ID, 1)},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DiscountID)
	require.Len(t, updated.OrderItems, 1)
	assert.False(t, updated.OrderItems[0].IsPromotional)
	assert.Equal(t, 20, f.stockOf(t, tea.ID))
	assert.Equal(t, 9, f.stockOf(t, cracker.ID))

	// asking for it explicitly runs the full checks again
	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Items:    []services.LineItemRequest{line(tea.ID, 2)},
		Discount: services.DiscountChange{Action: services.DiscountSet, ID: d.ID},
	})
	assert.Equal(t, services.ReasonInactive, services.DiscountReasonOf(err))
}

func TestUpdateOrderTierIgnoresEditedOrder(t *testing.T) {
	f := newFixture(t)
	silver := models.CustomerTier{Name: "Silver", MinimumSpent: decimal.NewFromInt(100000), DisplayOrder: 1}
	require.NoError(t, f.db.Create(&silver).Error)
	rice := f.product(t, "Nasi Goreng", 60000, 10, f.food.ID)
	d := f.discount(t, models.Discount{
		Code:          "SILVER10",
		Name:          "Silver 10",
		Type:          models.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		CustomerTiers: []models.DiscountCustomerTier{{CustomerTierID: silver.ID}},
	})
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.takeaway(line(rice.ID, 2)))
	require.NoError(t, err)
	require.True(t, order.TotalAmount.GreaterThanOrEqual(silver.MinimumSpent))

	_, err = f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Discount: services.DiscountChange{Action: services.DiscountSet, ID: d.ID},
	})
	assert.Equal(t, services.ReasonTierScope, services.DiscountReasonOf(err), "the order under edit does not lift its own tier")

	history := models.Order{OrderNumber: "H1", Type: models.OrderTakeaway, CustomerID: f.customer.ID, Status: models.OrderDelivered, TotalAmount: decimal.NewFromInt(150000)}
	require.NoError(t, f.db.Create(&history).Error)

	updated, err := f.svc.UpdateOrder(ctx, order.ID, services.UpdateOrderInput{
		Discount: services.DiscountChange{Action: services.DiscountSet, ID: d.ID},
	})
	require.NoError(t, err)
	assertDecimal(t, "12000", updated.DiscountAmount.Decimal)
}
