package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const orderDayLayout = "20060102"

// nextOrderNumber issues prefix + YYYYMMDD + 4-digit daily sequence. The day's
// counter row is locked for the rest of the transaction, so concurrent
// creators queue on it instead of counting the same orders.
func nextOrderNumber(tx *gorm.DB, prefix string, now time.Time) (string, error) {
	day := now.Format(orderDayLayout)

	seq, err := lockOrderSequence(tx, day)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First order of the day through the counter: seed it from orders
		// already numbered for this day.
		var existing int64
		if err := tx.Model(&models.Order{}).
			Where("order_number LIKE ?", prefix+day+"%").
			Count(&existing).Error; err != nil {
			return "", fmt.Errorf("count orders of %s: %w", day, err)
		}
		seed := models.OrderSequence{Day: day, LastSequence: int(existing)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return "", fmt.Errorf("seed order sequence %s: %w", day, err)
		}
		seq, err = lockOrderSequence(tx, day)
	}
	if err != nil {
		return "", fmt.Errorf("lock order sequence %s: %w", day, err)
	}

	seq.LastSequence++
	if err := tx.Model(&models.OrderSequence{}).
		Where("day = ?", day).
		Update("last_sequence", seq.LastSequence).Error; err != nil {
		return "", fmt.Errorf("advance order sequence %s: %w", day, err)
	}
	return fmt.Sprintf("%s%s%04d", prefix, day, seq.LastSequence), nil
}

func lockOrderSequence(tx *gorm.DB, day string) (*models.OrderSequence, error) {
	var seq models.OrderSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("day = ?", day).
		First(&seq).Error
	if err != nil {
		return nil, err
	}
	return &seq, nil
}
