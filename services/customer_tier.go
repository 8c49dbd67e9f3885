package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// CustomerTierProvider answers "current tier of customer X". A nil tier means
// the customer has not unlocked any tier yet. A non-zero excludeOrderID is an
// order under edit whose own total must not lift the customer's tier.
type CustomerTierProvider interface {
	CurrentTier(ctx context.Context, tx *gorm.DB, customerID, excludeOrderID uint) (*models.CustomerTier, error)
}

// SpendTierProvider derives the tier from the customer's lifetime spend over
// non-cancelled orders.
type SpendTierProvider struct{}

func (SpendTierProvider) CurrentTier(ctx context.Context, tx *gorm.DB, customerID, excludeOrderID uint) (*models.CustomerTier, error) {
	spent, err := CustomerSpend(tx.WithContext(ctx), customerID, excludeOrderID)
	if err != nil {
		return nil, err
	}

	var tier models.CustomerTier
	err = tx.WithContext(ctx).
		Where("minimum_spent <= ?", spent).
		Order("minimum_spent DESC").
		Order("display_order ASC").
		First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tier for customer %d: %w", customerID, err)
	}
	return &tier, nil
}

// CustomerSpend sums the totals of every non-cancelled order of the customer,
// leaving out excludeOrderID when it is set.
func CustomerSpend(tx *gorm.DB, customerID, excludeOrderID uint) (decimal.Decimal, error) {
	var spent decimal.NullDecimal
	query := tx.Model(&models.Order{}).
		Select("SUM(total_amount)").
		Where("customer_id = ? AND status <> ?", customerID, models.OrderCancelled)
	if excludeOrderID != 0 {
		query = query.Where("id <> ?", excludeOrderID)
	}
	err := query.Row().Scan(&spent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum spend for customer %d: %w", customerID, err)
	}
	if !spent.Valid {
		return decimal.Zero, nil
	}
	return spent.Decimal, nil
}
