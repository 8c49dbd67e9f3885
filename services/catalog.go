package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogService holds the catalog writes that touch stock or discount
// bookkeeping. Plain CRUD stays in the handlers.
type CatalogService struct {
	db       *gorm.DB
	notifier OrderNotifier
}

func NewCatalogService(db *gorm.DB, notifier OrderNotifier) *CatalogService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CatalogService{db: db, notifier: notifier}
}

type RecipeLine struct {
	IngredientID     uint            `json:"ingredient_id" binding:"required"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
}

// ProductAvailability returns the product with its recipe and the number of
// units that can be sold right now.
func (s *CatalogService) ProductAvailability(ctx context.Context, productID uint) (*models.Product, int, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Preload("Recipe.Ingredient").
		First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, notFound("product", productID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load product %d: %w", productID, err)
	}
	return &p, AvailableQuantity(&p), nil
}

// SetRecipe replaces the recipe of a product.
func (s *CatalogService) SetRecipe(ctx context.Context, productID uint, lines []RecipeLine) (*models.Product, error) {
	seen := make(map[uint]bool, len(lines))
	for _, l := range lines {
		if l.QuantityRequired.IsNegative() {
			return nil, validationError("quantity_required must not be negative")
		}
		if seen[l.IngredientID] {
			return nil, validationError(fmt.Sprintf("ingredient %d listed twice", l.IngredientID))
		}
		seen[l.IngredientID] = true
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		var p models.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("product", productID)
		}
		if err != nil {
			return fmt.Errorf("lock product %d: %w", productID, err)
		}

		for _, l := range lines {
			var count int64
			if err := tx.Model(&models.Ingredient{}).Where("id = ?", l.IngredientID).Count(&count).Error; err != nil {
				return fmt.Errorf("check ingredient %d: %w", l.IngredientID, err)
			}
			if count == 0 {
				return notFound("ingredient", l.IngredientID)
			}
		}

		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductIngredient{}).Error; err != nil {
			return fmt.Errorf("clear recipe of product %d: %w", productID, err)
		}
		for _, l := range lines {
			row := models.ProductIngredient{
				ProductID:        productID,
				IngredientID:     l.IngredientID,
				QuantityRequired: l.QuantityRequired,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("save recipe line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p, _, err := s.ProductAvailability(ctx, productID)
	return p, err
}

// AdjustIngredient adds delta (negative to consume) to the on-hand quantity.
// Crossing below the minimum records a low-stock notification.
func (s *CatalogService) AdjustIngredient(ctx context.Context, id uint, delta decimal.Decimal) (*models.Ingredient, error) {
	var (
		ing    models.Ingredient
		alerts []StockAlert
	)
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("ingredient", id)
		}
		if err != nil {
			return fmt.Errorf("lock ingredient %d: %w", id, err)
		}

		wasBelow := ing.BelowMinimum()
		next := ing.Quantity.Add(delta)
		if next.IsNegative() {
			return validationError(fmt.Sprintf("adjustment would leave %s below zero", ing.Name))
		}
		ing.Quantity = next
		if err := tx.Model(&ing).Update("quantity", ing.Quantity).Error; err != nil {
			return fmt.Errorf("update ingredient %d: %w", id, err)
		}

		if ing.BelowMinimum() && !wasBelow {
			ingID := ing.ID
			alerts = append(alerts, StockAlert{IngredientID: &ingID, Name: ing.Name, Quantity: ing.Quantity, Minimum: ing.MinQuantity})
			return recordStockAlerts(tx, alerts, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("ingredient_id", ing.ID).Infof("ingredient adjusted by %s to %s", delta.String(), ing.Quantity.String())
	if len(alerts) > 0 {
		s.notifier.StockAlerts(alerts)
	}
	return &ing, nil
}

// ValidateDiscountDefinition checks a discount before it is stored.
func ValidateDiscountDefinition(d *models.Discount) error {
	if !d.Type.Valid() {
		return validationError(fmt.Sprintf("unknown discount type %q", d.Type))
	}
	if d.EndDate.Before(d.StartDate) {
		return validationError("end_date must not be before start_date")
	}
	if d.DiscountValue.IsNegative() {
		return validationError("discount_value must not be negative")
	}
	if d.UsageLimit != nil && *d.UsageLimit < 0 {
		return validationError("usage_limit must not be negative")
	}
	for _, r := range d.EmployeeRoles {
		if !r.Role.Valid() {
			return validationError(fmt.Sprintf("unknown employee role %q", r.Role))
		}
	}
	if d.Type == models.DiscountBuyXGetY {
		if d.BuyQuantity <= 0 || d.FreeProductQuantity <= 0 {
			return validationError("buy_quantity and free_product_quantity must be positive")
		}
		if d.FreeProductID == nil {
			return validationError("free_product_id is required")
		}
	}
	return nil
}

// DeleteDiscount removes a discount no order references.
func (s *CatalogService) DeleteDiscount(ctx context.Context, id uint) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		var d models.Discount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("discount", id)
		}
		if err != nil {
			return fmt.Errorf("lock discount %d: %w", id, err)
		}

		var refs int64
		if err := tx.Model(&models.Order{}).Where("discount_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("count orders of discount %d: %w", id, err)
		}
		if refs > 0 {
			return invalidState("discount is referenced by orders", map[string]any{"discount_id": id, "orders": refs})
		}

		for _, child := range []any{&models.DiscountProduct{}, &models.DiscountCategory{}, &models.DiscountCustomerTier{}, &models.DiscountEmployeeRole{}} {
			if err := tx.Where("discount_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("delete discount %d scopes: %w", id, err)
			}
		}
		if err := tx.Delete(&d).Error; err != nil {
			return fmt.Errorf("delete discount %d: %w", id, err)
		}
		return nil
	})
}

func (s *CatalogService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
