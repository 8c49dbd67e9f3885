package config

import (
	"fmt"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the application uses.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Ingredient{},
		&models.ProductIngredient{},
		&models.CustomerTier{},
		&models.Customer{},
		&models.Employee{},
		&models.TableGroup{},
		&models.Table{},
		&models.Discount{},
		&models.DiscountProduct{},
		&models.DiscountCategory{},
		&models.DiscountCustomerTier{},
		&models.DiscountEmployeeRole{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderSequence{},
		&models.Payment{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
