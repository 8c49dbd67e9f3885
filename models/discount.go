package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
	DiscountBuyXGetY    DiscountType = "buy_x_get_y"
)

func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountFixedAmount, DiscountBuyXGetY:
		return true
	}
	return false
}

// FreeProductDiscountType decides the unit price of BuyXGetY bonus items.
type FreeProductDiscountType int

const (
	FreeItemFree       FreeProductDiscountType = 0
	FreeItemPercentage FreeProductDiscountType = 1
	FreeItemFixed      FreeProductDiscountType = 2
)

type Discount struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	Code              string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name              string              `gorm:"type:varchar(255);not null" json:"name"`
	Type              DiscountType        `gorm:"type:varchar(20);not null" json:"type"`
	DiscountValue     decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"discount_value"`
	MinOrderAmount    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"min_order_amount"`
	MaxDiscountAmount decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"max_discount_amount"`
	StartDate         time.Time           `gorm:"not null" json:"start_date"`
	EndDate           time.Time           `gorm:"not null" json:"end_date"`
	UsageLimit        *int                `json:"usage_limit"`
	UsedCount         int                 `gorm:"not null;default:0" json:"used_count"`
	IsActive          bool                `gorm:"not null" json:"is_active"`

	// BuyXGetY only
	BuyQuantity              int                     `gorm:"not null;default:0" json:"buy_quantity"`
	FreeProductID            *uint                   `gorm:"index" json:"free_product_id,omitempty"`
	FreeProduct              *Product                `gorm:"foreignKey:FreeProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"free_product,omitempty"`
	FreeProductQuantity      int                     `gorm:"not null;default:0" json:"free_product_quantity"`
	FreeProductDiscountType  FreeProductDiscountType `gorm:"not null;default:0" json:"free_product_discount_type"`
	FreeProductDiscountValue decimal.Decimal         `gorm:"type:decimal(12,2);not null;default:0" json:"free_product_discount_value"`

	// Empty scoping sets mean "applies to all".
	Products      []DiscountProduct      `gorm:"foreignKey:DiscountID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
	Categories    []DiscountCategory     `gorm:"foreignKey:DiscountID;constraint:OnDelete:CASCADE" json:"categories,omitempty"`
	CustomerTiers []DiscountCustomerTier `gorm:"foreignKey:DiscountID;constraint:OnDelete:CASCADE" json:"customer_tiers,omitempty"`
	EmployeeRoles []DiscountEmployeeRole `gorm:"foreignKey:DiscountID;constraint:OnDelete:CASCADE" json:"employee_roles,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

type DiscountProduct struct {
	ID         uint `gorm:"primaryKey" json:"-"`
	DiscountID uint `gorm:"not null;uniqueIndex:idx_discount_product" json:"-"`
	ProductID  uint `gorm:"not null;uniqueIndex:idx_discount_product" json:"product_id"`
}

type DiscountCategory struct {
	ID         uint `gorm:"primaryKey" json:"-"`
	DiscountID uint `gorm:"not null;uniqueIndex:idx_discount_category" json:"-"`
	CategoryID uint `gorm:"not null;uniqueIndex:idx_discount_category" json:"category_id"`
}

type DiscountCustomerTier struct {
	ID             uint `gorm:"primaryKey" json:"-"`
	DiscountID     uint `gorm:"not null;uniqueIndex:idx_discount_tier" json:"-"`
	CustomerTierID uint `gorm:"not null;uniqueIndex:idx_discount_tier" json:"customer_tier_id"`
}

type DiscountEmployeeRole struct {
	ID         uint         `gorm:"primaryKey" json:"-"`
	DiscountID uint         `gorm:"not null;uniqueIndex:idx_discount_role" json:"-"`
	Role       EmployeeRole `gorm:"type:varchar(20);not null;uniqueIndex:idx_discount_role" json:"role"`
}

func (d *Discount) ProductIDs() map[uint]bool {
	set := make(map[uint]bool, len(d.Products))
	for _, p := range d.Products {
		set[p.ProductID] = true
	}
	return set
}

func (d *Discount) CategoryIDs() map[uint]bool {
	set := make(map[uint]bool, len(d.Categories))
	for _, c := range d.Categories {
		set[c.CategoryID] = true
	}
	return set
}

func (d *Discount) TierIDs() map[uint]bool {
	set := make(map[uint]bool, len(d.CustomerTiers))
	for _, t := range d.CustomerTiers {
		set[t.CustomerTierID] = true
	}
	return set
}

func (d *Discount) Roles() map[EmployeeRole]bool {
	set := make(map[EmployeeRole]bool, len(d.EmployeeRoles))
	for _, r := range d.EmployeeRoles {
		set[r.Role] = true
	}
	return set
}
