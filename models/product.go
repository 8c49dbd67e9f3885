package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable menu item. When it has recipe entries with a positive
// requirement its availability comes from ingredient stock, not StockQuantity.
type Product struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	CategoryID    uint                `gorm:"not null;index" json:"category_id"`
	Category      *Category           `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	Name          string              `gorm:"type:varchar(255);not null" json:"name"`
	Price         decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	IsActive      bool                `gorm:"not null" json:"is_active"`
	IsAvailable   bool                `gorm:"not null" json:"is_available"`
	StockQuantity int                 `gorm:"not null;default:0" json:"stock_quantity"`
	MinStockLevel int                 `gorm:"not null;default:0" json:"min_stock_level"`
	Description   string              `gorm:"type:text" json:"description"`
	Recipe        []ProductIngredient `gorm:"foreignKey:ProductID" json:"recipe,omitempty"`
	CreatedAt     time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"not null" json:"updated_at"`
}

// Sellable reports whether the product may be put on an order at all.
func (p *Product) Sellable() bool {
	return p.IsActive && p.IsAvailable
}
