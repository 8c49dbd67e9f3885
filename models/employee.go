package models

import "time"

type EmployeeRole string

const (
	RoleAdmin   EmployeeRole = "admin"
	RoleManager EmployeeRole = "manager"
	RoleCashier EmployeeRole = "cashier"
	RoleWaiter  EmployeeRole = "waiter"
	RoleChef    EmployeeRole = "chef"
)

func (r EmployeeRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier, RoleWaiter, RoleChef:
		return true
	}
	return false
}

type Employee struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Email     string       `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password  string       `gorm:"type:varchar(255);not null" json:"-"`
	Role      EmployeeRole `gorm:"type:varchar(20);not null" json:"role"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
