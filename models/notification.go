package models

import (
	"time"
)

const (
	NotificationLowStock = "low_stock"
	NotificationStaff    = "staff"
)

type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Kind         string    `gorm:"type:varchar(30);not null;index" json:"kind"`
	Title        *string   `gorm:"type:varchar(100)" json:"title,omitempty"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	IngredientID *uint     `gorm:"index" json:"ingredient_id,omitempty"`
	ProductID    *uint     `gorm:"index" json:"product_id,omitempty"`
	OrderID      *uint     `gorm:"index" json:"order_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
