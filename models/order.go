package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal states accept no further item or status mutation.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderTakeaway OrderType = "takeaway"
	OrderDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	return t == OrderDineIn || t == OrderTakeaway || t == OrderDelivery
}

type Order struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	OrderNumber    string              `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	Status         OrderStatus         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Type           OrderType           `gorm:"type:varchar(20);not null" json:"type"`
	IncludeVAT     bool                `gorm:"not null" json:"include_vat"`
	SubTotal       decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"sub_total"`
	TaxAmount      decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	DeliveryFee    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"delivery_fee"`
	DiscountAmount decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"discount_amount"`
	DiscountID     *uint               `gorm:"index" json:"discount_id,omitempty"`
	Discount       *Discount           `gorm:"foreignKey:DiscountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"discount,omitempty"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	CustomerID     uint                `gorm:"not null;index" json:"customer_id"`
	Customer       *Customer           `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	EmployeeID     *uint               `gorm:"index" json:"employee_id,omitempty"`
	Employee       *Employee           `gorm:"foreignKey:EmployeeID;references:ID" json:"employee,omitempty"`
	TableID        *uint               `gorm:"index" json:"table_id,omitempty"`
	Table          *Table              `gorm:"foreignKey:TableID;references:ID" json:"table,omitempty"`
	TableGroupID   *uint               `gorm:"index" json:"table_group_id,omitempty"`
	TableGroup     *TableGroup         `gorm:"foreignKey:TableGroupID;references:ID" json:"table_group,omitempty"`
	Notes          string              `gorm:"type:text" json:"notes"`
	OrderItems     []OrderItem         `gorm:"foreignKey:OrderID" json:"order_items"`
	Payment        *Payment            `gorm:"foreignKey:OrderID" json:"payment,omitempty"`

	// Re-entering a status overwrites its timestamp.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// StampStatus records the time the order entered its current status.
func (o *Order) StampStatus(now time.Time) {
	t := now
	switch o.Status {
	case OrderConfirmed:
		o.ConfirmedAt = &t
	case OrderPreparing:
		o.PreparingAt = &t
	case OrderReady:
		o.ReadyAt = &t
	case OrderDelivered:
		o.DeliveredAt = &t
	case OrderCancelled:
		o.CancelledAt = &t
	}
}

// OrderSequence holds the last issued order number suffix for one calendar day.
type OrderSequence struct {
	Day          string    `gorm:"type:varchar(8);primaryKey" json:"day"`
	LastSequence int       `gorm:"not null;default:0" json:"last_sequence"`
	UpdatedAt    time.Time `json:"updated_at"`
}
