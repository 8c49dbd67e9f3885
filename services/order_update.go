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

type DiscountAction int

const (
	DiscountKeep DiscountAction = iota
	DiscountClear
	DiscountSet
)

// DiscountChange distinguishes "leave the discount alone" from an explicit
// removal and from attaching a (possibly identical) discount.
type DiscountChange struct {
	Action DiscountAction
	ID     uint
}

type UpdateOrderInput struct {
	Status     *models.OrderStatus
	Notes      *string
	EmployeeID *uint
	TableID    *uint
	// nil leaves the lines untouched; a non-nil list replaces all of them.
	Items    []LineItemRequest
	Discount DiscountChange
}

// UpdateOrder applies a partial change to a non-terminal order. Replacing
// lines restores the stock of every old line before reserving the new ones;
// any rejection rolls the whole change back.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, in UpdateOrderInput) (*models.Order, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, validationError(fmt.Sprintf("invalid order status %q", *in.Status))
	}
	if in.Items != nil {
		if err := validateLineRequests(in.Items); err != nil {
			return nil, err
		}
	}
	if in.Discount.Action == DiscountSet && in.Discount.ID == 0 {
		return nil, validationError("discount id is required")
	}

	now := s.now()
	event := EventOrderUpdated
	var alerts []StockAlert
	var orderNumber string

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}
		if err := ensureMutable(order); err != nil {
			return err
		}
		orderNumber = order.OrderNumber
		if in.Items != nil || in.Discount.Action != DiscountKeep {
			if err := ensureUnpaid(tx, order); err != nil {
				return err
			}
		}

		if in.Notes != nil {
			order.Notes = *in.Notes
		}
		if in.EmployeeID != nil {
			if _, err := loadEmployee(tx, in.EmployeeID); err != nil {
				return err
			}
			order.EmployeeID = in.EmployeeID
		}

		ledger := NewStockLedger(tx)

		if in.Status != nil && *in.Status == models.OrderCancelled {
			event = EventOrderCancelled
			if err := s.cancelLocked(tx, order, ledger, now); err != nil {
				return err
			}
			alerts, err = ledger.Flush()
			return err
		}

		if err := s.reconcileLines(ctx, tx, order, in, ledger, now); err != nil {
			return err
		}

		if in.TableID != nil && (order.TableID == nil || *order.TableID != *in.TableID) {
			if err := findOrNotFound(tx, &models.Table{}, "table", *in.TableID); err != nil {
				return err
			}
			previous := order.TableID
			order.TableID = in.TableID
			if err := occupyTables(tx, order.TableID, nil); err != nil {
				return err
			}
			if err := releaseTables(tx, order.ID, previous, nil); err != nil {
				return err
			}
		}

		if in.Status != nil {
			order.Status = *in.Status
			order.StampStatus(now)
			if order.Status == models.OrderDelivered {
				if err := releaseTables(tx, order.ID, order.TableID, order.TableGroupID); err != nil {
					return err
				}
			}
		}

		ComputeTotals(order, s.cfg)
		if in.Status != nil && order.Status == models.OrderDelivered {
			if err := ensureSettled(tx, order); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return fmt.Errorf("save order %d: %w", order.ID, err)
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
		"order_id":     id,
		"order_number": orderNumber,
		"event":        event,
	}).Info("order updated")

	return s.afterCommit(ctx, event, id, alerts)
}

// reconcileLines replaces lines and re-evaluates the discount as requested.
// Any re-evaluation starts by dropping the previous bonus lines so grants
// never stack. A kept Percentage or FixedAmount discount keeps its amount; a
// kept BuyXGetY discount is re-run against the new lines.
func (s *OrderService) reconcileLines(ctx context.Context, tx *gorm.DB, order *models.Order, in UpdateOrderInput, ledger *StockLedger, now time.Time) error {
	itemsChanged := in.Items != nil
	action := in.Discount.Action
	if !itemsChanged && action == DiscountKeep {
		return nil
	}

	var target *models.Discount
	switch {
	case action == DiscountSet:
		d, err := loadDiscount(tx, in.Discount.ID)
		if err != nil {
			return err
		}
		target = d
	case action == DiscountKeep && order.DiscountID != nil:
		d, err := loadDiscount(tx, *order.DiscountID)
		if err != nil {
			return err
		}
		if d.Type == models.DiscountBuyXGetY {
			target = d
		}
	}

	var drop []models.OrderItem
	var keep []models.OrderItem
	for _, item := range order.OrderItems {
		if itemsChanged || item.IsPromotional {
			drop = append(drop, item)
		} else {
			keep = append(keep, item)
		}
	}
	if err := ledger.Load(productIDsOf(drop)...); err != nil {
		return err
	}
	for _, item := range drop {
		ledger.Restore(item.ProductID, item.Quantity)
	}
	if len(drop) > 0 {
		ids := make([]uint, 0, len(drop))
		for _, item := range drop {
			ids = append(ids, item.ID)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("remove lines of order %d: %w", order.ID, err)
		}
	}

	if itemsChanged {
		lines, err := reserveLines(ledger, in.Items)
		if err != nil {
			return err
		}
		keep = lines
	}
	order.OrderItems = keep

	previous := order.DiscountID
	if action == DiscountClear {
		order.DiscountID = nil
		order.DiscountAmount = decimal.NullDecimal{}
	}
	if target != nil {
		employee, err := loadEmployee(tx, order.EmployeeID)
		if err != nil {
			return err
		}
		if err := s.applyDiscount(ctx, tx, order, target, employee, ledger, now, action == DiscountKeep); err != nil {
			return err
		}
	}
	if previous != nil && (order.DiscountID == nil || *order.DiscountID != *previous) && s.cfg.RefundDiscountOnCancel {
		if err := refundDiscountUsage(tx, *previous); err != nil {
			return err
		}
	}

	for i := range order.OrderItems {
		if order.OrderItems[i].ID != 0 {
			continue
		}
		order.OrderItems[i].OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(&order.OrderItems[i]).Error; err != nil {
			return fmt.Errorf("add line to order %d: %w", order.ID, err)
		}
	}
	return nil
}

// CancelOrder restores the stock of every line and moves the order to
// Cancelled. Cancelled and Delivered orders are rejected.
func (s *OrderService) CancelOrder(ctx context.Context, id uint) (*models.Order, error) {
	now := s.now()
	var orderNumber string

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}
		switch order.Status {
		case models.OrderCancelled:
			return invalidState("order already cancelled", map[string]any{"order_id": order.ID, "status": order.Status})
		case models.OrderDelivered:
			return invalidState("order already delivered", map[string]any{"order_id": order.ID, "status": order.Status})
		}
		orderNumber = order.OrderNumber

		ledger := NewStockLedger(tx)
		if err := s.cancelLocked(tx, order, ledger, now); err != nil {
			return err
		}
		_, err = ledger.Flush()
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":     id,
		"order_number": orderNumber,
	}).Info("order cancelled")

	return s.afterCommit(ctx, EventOrderCancelled, id, nil)
}

func (s *OrderService) cancelLocked(tx *gorm.DB, order *models.Order, ledger *StockLedger, now time.Time) error {
	if err := ledger.Load(productIDsOf(order.OrderItems)...); err != nil {
		return err
	}
	for _, item := range order.OrderItems {
		ledger.Restore(item.ProductID, item.Quantity)
	}
	if order.DiscountID != nil && s.cfg.RefundDiscountOnCancel {
		if err := refundDiscountUsage(tx, *order.DiscountID); err != nil {
			return err
		}
	}
	if err := refundPayment(tx, order.ID, now); err != nil {
		return err
	}

	order.Status = models.OrderCancelled
	order.StampStatus(now)
	if err := releaseTables(tx, order.ID, order.TableID, order.TableGroupID); err != nil {
		return err
	}
	if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
		return fmt.Errorf("save order %d: %w", order.ID, err)
	}
	return nil
}

func lockOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := findOrNotFound(tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }), &order, "order", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func ensureMutable(order *models.Order) error {
	if order.Status.Terminal() {
		return invalidState(fmt.Sprintf("order %s is %s and can no longer change", order.OrderNumber, order.Status),
			map[string]any{"order_id": order.ID, "status": order.Status})
	}
	return nil
}
