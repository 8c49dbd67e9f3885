package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     *string   `gorm:"type:varchar(30);index" json:"phone,omitempty"`
	Email     *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// CustomerTier is unlocked once a customer's lifetime non-cancelled spend
// reaches MinimumSpent.
type CustomerTier struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(100);unique;not null" json:"name"`
	MinimumSpent decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"minimum_spent"`
	DisplayOrder int             `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}
