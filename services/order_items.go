package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Single-line mutations keep the order's discount as it is: the discount
// amount is not re-evaluated, only the totals are recomputed.

type UpdateItemInput struct {
	Quantity *int
	Notes    *string
}

func (s *OrderService) AddItem(ctx context.Context, orderID uint, req LineItemRequest) (*models.Order, error) {
	if err := validateLineRequests([]LineItemRequest{req}); err != nil {
		return nil, err
	}

	var alerts []StockAlert
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := ensureMutable(order); err != nil {
			return err
		}
		if err := ensureUnpaid(tx, order); err != nil {
			return err
		}

		ledger := NewStockLedger(tx)
		line, err := reserveLine(ledger, req)
		if err != nil {
			return err
		}
		line.OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
			return fmt.Errorf("add line to order %d: %w", order.ID, err)
		}
		order.OrderItems = append(order.OrderItems, line)

		if alerts, err = s.saveTotalsAndFlush(tx, order, ledger); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}).Info("order item added")
	return s.afterCommit(ctx, EventOrderUpdated, orderID, alerts)
}

// UpdateItem changes the quantity or note of one charged line. A quantity change
// restores the old quantity first and then reserves the new one.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID uint, in UpdateItemInput) (*models.Order, error) {
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, validationError("quantity must be positive")
	}

	var alerts []StockAlert
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		order, idx, err := lockOrderItem(tx, orderID, itemID)
		if err != nil {
			return err
		}
		item := &order.OrderItems[idx]

		ledger := NewStockLedger(tx)
		if in.Quantity != nil && *in.Quantity != item.Quantity {
			if err := ledger.Load(item.ProductID); err != nil {
				return err
			}
			ledger.Restore(item.ProductID, item.Quantity)
			if err := ledger.Reserve(item.ProductID, *in.Quantity); err != nil {
				return err
			}
			item.Quantity = *in.Quantity
			item.Reprice()
		}
		if in.Notes != nil {
			item.Notes = *in.Notes
		}
		if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
			return fmt.Errorf("save order item %d: %w", item.ID, err)
		}

		if alerts, err = s.saveTotalsAndFlush(tx, order, ledger); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"order_id": orderID, "item_id": itemID}).Info("order item updated")
	return s.afterCommit(ctx, EventOrderUpdated, orderID, alerts)
}

// DeleteItem removes one charged line and restores its stock.
func (s *OrderService) DeleteItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		order, idx, err := lockOrderItem(tx, orderID, itemID)
		if err != nil {
			return err
		}
		item := order.OrderItems[idx]

		ledger := NewStockLedger(tx)
		if err := ledger.Load(item.ProductID); err != nil {
			return err
		}
		ledger.Restore(item.ProductID, item.Quantity)
		if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
			return fmt.Errorf("delete order item %d: %w", item.ID, err)
		}
		order.OrderItems = append(order.OrderItems[:idx], order.OrderItems[idx+1:]...)

		_, err = s.saveTotalsAndFlush(tx, order, ledger)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"order_id": orderID, "item_id": itemID}).Info("order item deleted")
	return s.afterCommit(ctx, EventOrderUpdated, orderID, nil)
}

// lockOrderItem locks a mutable, unpaid order and finds one of its
// non-promotional lines.
func lockOrderItem(tx *gorm.DB, orderID, itemID uint) (*models.Order, int, error) {
	order, err := lockOrder(tx, orderID)
	if err != nil {
		return nil, 0, err
	}
	if err := ensureMutable(order); err != nil {
		return nil, 0, err
	}
	if err := ensureUnpaid(tx, order); err != nil {
		return nil, 0, err
	}
	for i, item := range order.OrderItems {
		if item.ID != itemID {
			continue
		}
		if item.IsPromotional {
			return nil, 0, invalidState("promotional items follow their discount and cannot be edited directly",
				map[string]any{"order_id": orderID, "item_id": itemID})
		}
		return order, i, nil
	}
	return nil, 0, notFound("order item", itemID)
}

func (s *OrderService) saveTotalsAndFlush(tx *gorm.DB, order *models.Order, ledger *StockLedger) ([]StockAlert, error) {
	ComputeTotals(order, s.cfg)
	if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
		return nil, fmt.Errorf("save order %d: %w", order.ID, err)
	}
	alerts, err := ledger.Flush()
	if err != nil {
		return nil, err
	}
	if err := recordStockAlerts(tx, alerts, &order.ID); err != nil {
		return nil, err
	}
	return alerts, nil
}
