package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentQRIS, PaymentTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment settles one order. Amount is the order total at the time it was paid.
type Payment struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	OrderID      uint                `gorm:"not null;uniqueIndex" json:"order_id"`
	Method       PaymentMethod       `gorm:"type:varchar(20);not null" json:"method"`
	Status       PaymentStatus       `gorm:"type:varchar(20);not null;index" json:"status"`
	Amount       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	CashReceived decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"cash_received"`
	Change       decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"change"`
	Reference    string              `gorm:"type:varchar(100)" json:"reference,omitempty"`
	VerifiedBy   *uint               `json:"verified_by,omitempty"`
	PaidAt       time.Time           `gorm:"not null" json:"paid_at"`
	RefundedAt   *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
