package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ingredient struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Unit         string          `gorm:"type:varchar(20);not null;default:'pcs'" json:"unit"` // pcs, g, kg, ml, l
	Quantity     decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"quantity"`
	MinQuantity  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"min_quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price_per_unit"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

// BelowMinimum is true once on-hand stock has dropped under the alert threshold.
func (i *Ingredient) BelowMinimum() bool {
	return i.MinQuantity.IsPositive() && i.Quantity.LessThan(i.MinQuantity)
}

// ProductIngredient is one recipe line: how much of an ingredient a single
// unit of the product consumes.
type ProductIngredient struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProductID        uint            `gorm:"not null;uniqueIndex:idx_product_ingredient" json:"product_id"`
	IngredientID     uint            `gorm:"not null;uniqueIndex:idx_product_ingredient" json:"ingredient_id"`
	Ingredient       *Ingredient     `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"ingredient,omitempty"`
	QuantityRequired decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"quantity_required"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}
