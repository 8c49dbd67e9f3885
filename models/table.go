package models

import "time"

const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
	TableDirty     = "dirty"
)

type Table struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	TableNumber  string      `gorm:"type:varchar(50);not null" json:"table_number"`
	Capacity     int         `gorm:"not null;default:4" json:"capacity"`
	Status       string      `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	TableGroupID *uint       `gorm:"index" json:"table_group_id,omitempty"`
	TableGroup   *TableGroup `gorm:"foreignKey:TableGroupID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}

// TableGroup joins several physical tables for one party.
type TableGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Tables    []Table   `gorm:"foreignKey:TableGroupID" json:"tables,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
