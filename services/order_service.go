package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Order events handed to the OrderNotifier after a mutation commits.
const (
	EventOrderCreated   = "order_created"
	EventOrderUpdated   = "order_updated"
	EventOrderCancelled = "order_cancelled"
	EventOrderPaid      = "order_paid"
)

// PricingConfig is the part of the application configuration the order core reads.
type PricingConfig struct {
	VATRate                decimal.Decimal
	DeliveryFee            decimal.Decimal
	OrderPrefix            string
	RefundDiscountOnCancel bool
}

// OrderNotifier receives committed order changes and stock alerts.
type OrderNotifier interface {
	OrderChanged(event string, order *models.Order)
	StockAlerts(alerts []StockAlert)
}

type nopNotifier struct{}

func (nopNotifier) OrderChanged(string, *models.Order) {}
func (nopNotifier) StockAlerts([]StockAlert)           {}

type LineItemRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

type CreateOrderInput struct {
	CustomerID   uint
	EmployeeID   *uint
	TableID      *uint
	TableGroupID *uint
	Type         models.OrderType
	// nil means true
	IncludeVAT *bool
	DiscountID *uint
	Notes      string
	Items      []LineItemRequest
}

type OrderService struct {
	db        *gorm.DB
	cfg       PricingConfig
	discounts *DiscountResolver
	notifier  OrderNotifier
	now       func() time.Time
}

func NewOrderService(db *gorm.DB, cfg PricingConfig, tiers CustomerTierProvider, notifier OrderNotifier) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.OrderPrefix == "" {
		cfg.OrderPrefix = "ORD"
	}
	return &OrderService{
		db:        db,
		cfg:       cfg,
		discounts: NewDiscountResolver(tiers),
		notifier:  notifier,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for validity windows, status
// timestamps and order numbers.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *OrderService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateOrder validates every line and the discount against a locked working
// copy of stock, then persists the order, its lines, the stock deductions and
// the discount usage in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.CustomerID == 0 {
		return nil, validationError("customer_id is required")
	}
	if !in.Type.Valid() {
		return nil, validationError(fmt.Sprintf("invalid order type %q", in.Type))
	}
	if err := validateLineRequests(in.Items); err != nil {
		return nil, err
	}

	now := s.now()
	includeVAT := true
	if in.IncludeVAT != nil {
		includeVAT = *in.IncludeVAT
	}

	order := models.Order{
		Status:       models.OrderPending,
		Type:         in.Type,
		IncludeVAT:   includeVAT,
		CustomerID:   in.CustomerID,
		EmployeeID:   in.EmployeeID,
		TableID:      in.TableID,
		TableGroupID: in.TableGroupID,
		Notes:        in.Notes,
	}
	var alerts []StockAlert

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := findOrNotFound(tx, &models.Customer{}, "customer", in.CustomerID); err != nil {
			return err
		}
		employee, err := loadEmployee(tx, in.EmployeeID)
		if err != nil {
			return err
		}
		if in.TableID != nil {
			if err := findOrNotFound(tx, &models.Table{}, "table", *in.TableID); err != nil {
				return err
			}
		}
		if in.TableGroupID != nil {
			if err := findOrNotFound(tx, &models.TableGroup{}, "table group", *in.TableGroupID); err != nil {
				return err
			}
		}

		ledger := NewStockLedger(tx)
		lines, err := reserveLines(ledger, in.Items)
		if err != nil {
			return err
		}
		order.OrderItems = lines

		if in.DiscountID != nil {
			d, err := loadDiscount(tx, *in.DiscountID)
			if err != nil {
				return err
			}
			if err := s.applyDiscount(ctx, tx, &order, d, employee, ledger, now, false); err != nil {
				return err
			}
		}

		ComputeTotals(&order, s.cfg)

		number, err := nextOrderNumber(tx, s.cfg.OrderPrefix, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if order.Type == models.OrderDineIn {
			if err := occupyTables(tx, order.TableID, order.TableGroupID); err != nil {
				return err
			}
		}

		alerts, err = ledger.Flush()
		if err != nil {
			return err
		}
		return recordStockAlerts(tx, alerts, &order.ID)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
		"items":        len(order.OrderItems),
	}).Info("order created")

	return s.afterCommit(ctx, EventOrderCreated, order.ID, alerts)
}

// GetOrder loads an order with everything the order projection shows.
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := findOrNotFound(s.db.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("OrderItems.Product").
		Preload("Customer").
		Preload("Employee").
		Preload("Table").
		Preload("TableGroup.Tables").
		Preload("Discount").
		Preload("Payment"), &order, "order", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type OrderFilter struct {
	Status     models.OrderStatus
	CustomerID uint
	Limit      int
	Offset     int
}

func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Preload("OrderItems").Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) afterCommit(ctx context.Context, event string, orderID uint, alerts []StockAlert) (*models.Order, error) {
	if len(alerts) > 0 {
		s.notifier.StockAlerts(alerts)
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.notifier.OrderChanged(event, order)
	return order, nil
}

// ComputeTotals derives every monetary field of the order from its current
// lines and discount amount. total = max(0, sub + tax + fee - discount).
func ComputeTotals(order *models.Order, cfg PricingConfig) {
	sub := decimal.Zero
	for _, item := range order.OrderItems {
		sub = sub.Add(item.TotalPrice)
	}
	order.SubTotal = sub.Round(2)

	order.TaxAmount = decimal.Zero
	if order.IncludeVAT {
		order.TaxAmount = order.SubTotal.Mul(cfg.VATRate).Round(2)
	}

	order.DeliveryFee = decimal.Zero
	if order.Type == models.OrderDelivery {
		order.DeliveryFee = cfg.DeliveryFee
	}

	discount := decimal.Zero
	if order.DiscountAmount.Valid {
		discount = order.DiscountAmount.Decimal
	}
	total := order.SubTotal.Add(order.TaxAmount).Add(order.DeliveryFee).Sub(discount)
	order.TotalAmount = decimal.Max(decimal.Zero, total).Round(2)
}

func validateLineRequests(items []LineItemRequest) error {
	if len(items) == 0 {
		return validationError("an order needs at least one item")
	}
	for i, item := range items {
		if item.ProductID == 0 {
			return validationError(fmt.Sprintf("items[%d]: product_id is required", i))
		}
		if item.Quantity <= 0 {
			return validationError(fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
	}
	return nil
}

// reserveLines turns requests into priced charged lines, reserving stock for
// each in request order. Nothing is persisted here.
func reserveLines(ledger *StockLedger, items []LineItemRequest) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	if err := ledger.Load(ids...); err != nil {
		return nil, err
	}

	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		line, err := reserveLine(ledger, item)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func reserveLine(ledger *StockLedger, item LineItemRequest) (models.OrderItem, error) {
	if err := ledger.Load(item.ProductID); err != nil {
		return models.OrderItem{}, err
	}
	p, ok := ledger.Product(item.ProductID)
	if !ok {
		return models.OrderItem{}, notFound("product", item.ProductID)
	}
	if !p.Sellable() {
		return models.OrderItem{}, validationError(fmt.Sprintf("product %s is not available for sale", p.Name))
	}
	if err := ledger.Reserve(p.ID, item.Quantity); err != nil {
		return models.OrderItem{}, err
	}
	line := models.OrderItem{
		ProductID:         p.ID,
		Quantity:          item.Quantity,
		UnitPrice:         p.Price,
		OriginalUnitPrice: p.Price,
		Notes:             item.Notes,
	}
	line.Reprice()
	return line, nil
}

// chargedLines returns the order's non-promotional lines.
func chargedLines(items []models.OrderItem) []models.OrderItem {
	charged := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if !item.IsPromotional {
			charged = append(charged, item)
		}
	}
	return charged
}

// applyDiscount resolves d against the order's charged lines. kept is set when
// the caller left an attached discount in place. When it has an effect the
// discount is attached, BuyXGetY bonus stock is reserved and the
// bonus line appended, and a usage slot is consumed unless d was already
// attached. A discount with no effect leaves the order without a discount.
func (s *OrderService) applyDiscount(ctx context.Context, tx *gorm.DB, order *models.Order, d *models.Discount, employee *models.Employee, ledger *StockLedger, now time.Time, kept bool) error {
	charged := chargedLines(order.OrderItems)
	if err := ledger.Load(productIDsOf(charged)...); err != nil {
		return err
	}
	products := make(map[uint]*models.Product, len(charged))
	subTotal := decimal.Zero
	for _, item := range charged {
		if p, ok := ledger.Product(item.ProductID); ok {
			products[p.ID] = p
		}
		subTotal = subTotal.Add(item.TotalPrice)
	}

	alreadyAttached := order.DiscountID != nil && *order.DiscountID == d.ID
	outcome, err := s.discounts.Resolve(ctx, tx, d, DiscountContext{
		Now:             now,
		Items:           charged,
		Products:        products,
		SubTotal:        subTotal,
		CustomerID:      order.CustomerID,
		OrderID:         order.ID,
		Employee:        employee,
		AlreadyAttached: alreadyAttached,
		Kept:            kept && alreadyAttached,
	}, ledger)
	if err != nil {
		return err
	}

	if !outcome.Effective() {
		order.DiscountID = nil
		order.DiscountAmount = decimal.NullDecimal{}
		return nil
	}

	if grant := outcome.Grant; grant != nil && grant.Quantity > 0 {
		if err := ledger.Reserve(grant.ProductID, grant.Quantity); err != nil {
			return err
		}
		discountID := d.ID
		bonus := models.OrderItem{
			OrderID:           order.ID,
			ProductID:         grant.ProductID,
			Quantity:          grant.Quantity,
			UnitPrice:         grant.UnitPrice,
			OriginalUnitPrice: grant.OriginalUnitPrice,
			Notes:             fmt.Sprintf("Promo %s: %d x %s", d.Code, grant.Quantity, grant.ProductName),
			IsPromotional:     true,
			SourceDiscountID:  &discountID,
		}
		bonus.Reprice()
		order.OrderItems = append(order.OrderItems, bonus)
	}

	if !alreadyAttached {
		if err := consumeDiscountUsage(tx, d); err != nil {
			return err
		}
	}
	discountID := d.ID
	order.DiscountID = &discountID
	order.DiscountAmount = decimal.NullDecimal{Decimal: outcome.Amount, Valid: true}
	return nil
}

func productIDsOf(items []models.OrderItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func loadEmployee(tx *gorm.DB, id *uint) (*models.Employee, error) {
	if id == nil {
		return nil, nil
	}
	var employee models.Employee
	if err := findOrNotFound(tx, &employee, "employee", *id); err != nil {
		return nil, err
	}
	return &employee, nil
}

// loadDiscount reads the discount row under lock with its scoping sets.
func loadDiscount(tx *gorm.DB, id uint) (*models.Discount, error) {
	var d models.Discount
	err := findOrNotFound(tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Products").
		Preload("Categories").
		Preload("CustomerTiers").
		Preload("EmployeeRoles"), &d, "discount", id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// consumeDiscountUsage takes one usage slot. The guard in the WHERE clause
// makes a concurrent exhaustion visible as zero affected rows.
func consumeDiscountUsage(tx *gorm.DB, d *models.Discount) error {
	res := tx.Model(&models.Discount{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", d.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("increment usage of discount %d: %w", d.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return discountRejected(ReasonUsageExhausted,
			fmt.Sprintf("discount %s has reached its usage limit", d.Code),
			map[string]any{"discount_id": d.ID})
	}
	d.UsedCount++
	return nil
}

func refundDiscountUsage(tx *gorm.DB, discountID uint) error {
	if err := tx.Model(&models.Discount{}).
		Where("id = ? AND used_count > 0", discountID).
		UpdateColumn("used_count", gorm.Expr("used_count - ?", 1)).Error; err != nil {
		return fmt.Errorf("refund usage of discount %d: %w", discountID, err)
	}
	return nil
}

func occupyTables(tx *gorm.DB, tableID, groupID *uint) error {
	if tableID != nil {
		if err := tx.Model(&models.Table{}).Where("id = ?", *tableID).
			Update("status", models.TableOccupied).Error; err != nil {
			return fmt.Errorf("occupy table %d: %w", *tableID, err)
		}
	}
	if groupID != nil {
		if err := tx.Model(&models.Table{}).Where("table_group_id = ?", *groupID).
			Update("status", models.TableOccupied).Error; err != nil {
			return fmt.Errorf("occupy table group %d: %w", *groupID, err)
		}
	}
	return nil
}

var activeStatuses = []models.OrderStatus{
	models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady,
}

// releaseTables frees the table and group tables unless another active order
// other than orderID still sits on them.
func releaseTables(tx *gorm.DB, orderID uint, tableID, groupID *uint) error {
	if tableID != nil {
		var busy int64
		if err := tx.Model(&models.Order{}).
			Where("table_id = ? AND id <> ? AND status IN ?", *tableID, orderID, activeStatuses).
			Count(&busy).Error; err != nil {
			return fmt.Errorf("count orders on table %d: %w", *tableID, err)
		}
		if busy == 0 {
			if err := tx.Model(&models.Table{}).Where("id = ?", *tableID).
				Update("status", models.TableAvailable).Error; err != nil {
				return fmt.Errorf("release table %d: %w", *tableID, err)
			}
		}
	}
	if groupID != nil {
		var busy int64
		if err := tx.Model(&models.Order{}).
			Where("table_group_id = ? AND id <> ? AND status IN ?", *groupID, orderID, activeStatuses).
			Count(&busy).Error; err != nil {
			return fmt.Errorf("count orders on table group %d: %w", *groupID, err)
		}
		if busy == 0 {
			if err := tx.Model(&models.Table{}).Where("table_group_id = ?", *groupID).
				Update("status", models.TableAvailable).Error; err != nil {
				return fmt.Errorf("release table group %d: %w", *groupID, err)
			}
		}
	}
	return nil
}

// recordStockAlerts persists a low-stock notification per alert.
func recordStockAlerts(tx *gorm.DB, alerts []StockAlert, orderID *uint) error {
	for _, a := range alerts {
		n := models.Notification{
			Kind:         models.NotificationLowStock,
			Message:      fmt.Sprintf("%s is low: %s left, minimum %s", a.Name, a.Quantity.String(), a.Minimum.String()),
			IngredientID: a.IngredientID,
			ProductID:    a.ProductID,
			OrderID:      orderID,
		}
		if err := tx.Create(&n).Error; err != nil {
			return fmt.Errorf("record low stock notification: %w", err)
		}
		fields := logrus.Fields{"name": a.Name, "quantity": a.Quantity.String(), "minimum": a.Minimum.String()}
		if a.IngredientID != nil {
			fields["ingredient_id"] = *a.IngredientID
		}
		if a.ProductID != nil {
			fields["product_id"] = *a.ProductID
		}
		utils.InfoLogger.WithFields(fields).Warn("stock below minimum")
	}
	return nil
}
