package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordPaymentInput struct {
	Method models.PaymentMethod
	// required for cash, must cover the total
	CashReceived *decimal.Decimal
	Reference    string
	EmployeeID   *uint
}

// RecordPayment settles an order for its current total. Cancelled orders and
// orders that already carry a payment are rejected.
func (s *OrderService) RecordPayment(ctx context.Context, orderID uint, in RecordPaymentInput) (*models.Order, error) {
	if !in.Method.Valid() {
		return nil, validationError(fmt.Sprintf("invalid payment method %q", in.Method))
	}
	if in.Method == models.PaymentCash && in.CashReceived == nil {
		return nil, validationError("cash_received is required for cash payments")
	}
	if in.CashReceived != nil && in.CashReceived.IsNegative() {
		return nil, validationError("cash_received must not be negative")
	}

	now := s.now()
	var payment models.Payment
	var orderNumber string

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		orderNumber = order.OrderNumber
		if order.Status == models.OrderCancelled {
			return invalidState(fmt.Sprintf("order %s is cancelled and cannot be paid", order.OrderNumber),
				map[string]any{"order_id": order.ID, "status": order.Status})
		}
		existing, err := paymentOf(tx, order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return invalidState(fmt.Sprintf("order %s is already %s", order.OrderNumber, existing.Status),
				map[string]any{"order_id": order.ID, "payment_id": existing.ID})
		}
		if in.EmployeeID != nil {
			if _, err := loadEmployee(tx, in.EmployeeID); err != nil {
				return err
			}
		}

		payment = models.Payment{
			OrderID:    order.ID,
			Method:     in.Method,
			Status:     models.PaymentPaid,
			Amount:     order.TotalAmount,
			Reference:  in.Reference,
			VerifiedBy: in.EmployeeID,
			PaidAt:     now,
		}
		if in.CashReceived != nil {
			if in.CashReceived.LessThan(order.TotalAmount) {
				return validationError(fmt.Sprintf("cash received %s is less than the total %s",
					in.CashReceived.String(), order.TotalAmount.String()))
			}
			payment.CashReceived = decimal.NewNullDecimal(*in.CashReceived)
			payment.Change = in.CashReceived.Sub(order.TotalAmount)
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("create payment for order %d: %w", order.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":     orderID,
		"order_number": orderNumber,
		"payment_id":   payment.ID,
		"method":       payment.Method,
		"amount":       payment.Amount.String(),
	}).Info("payment recorded")

	return s.afterCommit(ctx, EventOrderPaid, orderID, nil)
}

// GetPayment returns the payment of an order, or KindNotFound when it has none.
func (s *OrderService) GetPayment(ctx context.Context, orderID uint) (*models.Payment, error) {
	if err := findOrNotFound(s.db.WithContext(ctx), &models.Order{}, "order", orderID); err != nil {
		return nil, err
	}
	payment, err := paymentOf(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &Error{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("order %d has no payment", orderID),
			Details: map[string]any{"entity": "payment", "order_id": orderID},
		}
	}
	return payment, nil
}

func paymentOf(tx *gorm.DB, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_id = ?", orderID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment of order %d: %w", orderID, err)
	}
	return &payment, nil
}

// ensureUnpaid guards line and discount edits; a settled amount never drifts
// from the order total.
func ensureUnpaid(tx *gorm.DB, order *models.Order) error {
	payment, err := paymentOf(tx, order.ID)
	if err != nil {
		return err
	}
	if payment != nil && payment.Status == models.PaymentPaid {
		return invalidState(fmt.Sprintf("order %s is paid; its lines and discount are locked", order.OrderNumber),
			map[string]any{"order_id": order.ID, "payment_id": payment.ID})
	}
	return nil
}

// ensureSettled is checked before an order enters Delivered.
func ensureSettled(tx *gorm.DB, order *models.Order) error {
	payment, err := paymentOf(tx, order.ID)
	if err != nil {
		return err
	}
	if payment == nil || payment.Status != models.PaymentPaid {
		return invalidState(fmt.Sprintf("order %s must be paid before it is delivered", order.OrderNumber),
			map[string]any{"order_id": order.ID, "status": order.Status})
	}
	if !payment.Amount.Equal(order.TotalAmount) {
		return invalidState(fmt.Sprintf("payment of order %s covers %s but the total is %s",
			order.OrderNumber, payment.Amount.String(), order.TotalAmount.String()),
			map[string]any{"order_id": order.ID, "payment_id": payment.ID})
	}
	return nil
}

// refundPayment marks the payment of a cancelled order refunded.
func refundPayment(tx *gorm.DB, orderID uint, now time.Time) error {
	err := tx.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentPaid).
		Updates(map[string]interface{}{"status": models.PaymentRefunded, "refunded_at": now}).Error
	if err != nil {
		return fmt.Errorf("refund payment of order %d: %w", orderID, err)
	}
	return nil
}
