package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

type DiscountController struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
}

func NewDiscountController(db *gorm.DB, catalog *services.CatalogService) *DiscountController {
	return &DiscountController{DB: db, Catalog: catalog}
}

// discountRequest is shared by create and update; nil fields are left alone
// on update, and a non-nil scope list replaces the stored one.
type discountRequest struct {
	Code                     *string                         `json:"code"`
	Name                     *string                         `json:"name"`
	Type                     *models.DiscountType            `json:"type"`
	DiscountValue            *decimal.Decimal                `json:"discount_value"`
	MinOrderAmount           *decimal.NullDecimal            `json:"min_order_amount"`
	MaxDiscountAmount        *decimal.NullDecimal            `json:"max_discount_amount"`
	StartDate                *time.Time                      `json:"start_date"`
	EndDate                  *time.Time                      `json:"end_date"`
	UsageLimit               *int                            `json:"usage_limit"`
	IsActive                 *bool                           `json:"is_active"`
	BuyQuantity              *int                            `json:"buy_quantity"`
	FreeProductID            *uint                           `json:"free_product_id"`
	FreeProductQuantity      *int                            `json:"free_product_quantity"`
	FreeProductDiscountType  *models.FreeProductDiscountType `json:"free_product_discount_type"`
	FreeProductDiscountValue *decimal.Decimal                `json:"free_product_discount_value"`
	ProductIDs               []uint                          `json:"product_ids"`
	CategoryIDs              []uint                          `json:"category_ids"`
	CustomerTierIDs          []uint                          `json:"customer_tier_ids"`
	EmployeeRoles            []models.EmployeeRole           `json:"employee_roles"`
}

func (r discountRequest) apply(d *models.Discount) {
	if r.Code != nil {
		d.Code = *r.Code
	}
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Type != nil {
		d.Type = *r.Type
	}
	if r.DiscountValue != nil {
		d.DiscountValue = r.DiscountValue.Round(2)
	}
	if r.MinOrderAmount != nil {
		d.MinOrderAmount = *r.MinOrderAmount
	}
	if r.MaxDiscountAmount != nil {
		d.MaxDiscountAmount = *r.MaxDiscountAmount
	}
	if r.StartDate != nil {
		d.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		d.EndDate = *r.EndDate
	}
	if r.UsageLimit != nil {
		limit := *r.UsageLimit
		d.UsageLimit = &limit
	}
	if r.IsActive != nil {
		d.IsActive = *r.IsActive
	}
	if r.BuyQuantity != nil {
		d.BuyQuantity = *r.BuyQuantity
	}
	if r.FreeProductID != nil {
		id := *r.FreeProductID
		d.FreeProductID = &id
	}
	if r.FreeProductQuantity != nil {
		d.FreeProductQuantity = *r.FreeProductQuantity
	}
	if r.FreeProductDiscountType != nil {
		d.FreeProductDiscountType = *r.FreeProductDiscountType
	}
	if r.FreeProductDiscountValue != nil {
		d.FreeProductDiscountValue = r.FreeProductDiscountValue.Round(2)
	}
	if r.ProductIDs != nil {
		d.Products = make([]models.DiscountProduct, 0, len(r.ProductIDs))
		for _, id := range r.ProductIDs {
			d.Products = append(d.Products, models.DiscountProduct{DiscountID: d.ID, ProductID: id})
		}
	}
	if r.CategoryIDs != nil {
		d.Categories = make([]models.DiscountCategory, 0, len(r.CategoryIDs))
		for _, id := range r.CategoryIDs {
			d.Categories = append(d.Categories, models.DiscountCategory{DiscountID: d.ID, CategoryID: id})
		}
	}
	if r.CustomerTierIDs != nil {
		d.CustomerTiers = make([]models.DiscountCustomerTier, 0, len(r.CustomerTierIDs))
		for _, id := range r.CustomerTierIDs {
			d.CustomerTiers = append(d.CustomerTiers, models.DiscountCustomerTier{DiscountID: d.ID, CustomerTierID: id})
		}
	}
	if r.EmployeeRoles != nil {
		d.EmployeeRoles = make([]models.DiscountEmployeeRole, 0, len(r.EmployeeRoles))
		for _, role := range r.EmployeeRoles {
			d.EmployeeRoles = append(d.EmployeeRoles, models.DiscountEmployeeRole{DiscountID: d.ID, Role: role})
		}
	}
}

func preloadDiscountScopes(db *gorm.DB) *gorm.DB {
	return db.Preload("Products").Preload("Categories").Preload("CustomerTiers").Preload("EmployeeRoles")
}

// GetAllDiscounts; ?active=true keeps only active ones
func (dc *DiscountController) GetAllDiscounts(c *gin.Context) {
	query := preloadDiscountScopes(dc.DB).Order("start_date DESC")
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	var discounts []models.Discount
	if err := query.Find(&discounts).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of discounts", discounts)
}

func (dc *DiscountController) GetDiscountByID(c *gin.Context) {
	id, ok := paramID(c, "discount_id")
	if !ok {
		return
	}
	var discount models.Discount
	if err := preloadDiscountScopes(dc.DB).Preload("FreeProduct").First(&discount, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount detail", discount)
}

func (dc *DiscountController) CreateDiscount(c *gin.Context) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Code == nil || req.Name == nil || req.Type == nil || req.StartDate == nil || req.EndDate == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("code, name, type, start_date and end_date are required"))
		return
	}

	discount := models.Discount{IsActive: true}
	req.apply(&discount)
	if err := services.ValidateDiscountDefinition(&discount); err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := dc.DB.Create(&discount).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.WithField("discount_id", discount.ID).Infof("discount %s created", discount.Code)
	utils.RespondJSON(c, http.StatusCreated, "Discount created", discount)
}

// UpdateDiscount; usage already consumed is kept
func (dc *DiscountController) UpdateDiscount(c *gin.Context) {
	id, ok := paramID(c, "discount_id")
	if !ok {
		return
	}
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var discount models.Discount
	if err := preloadDiscountScopes(dc.DB).First(&discount, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	req.apply(&discount)
	if err := services.ValidateDiscountDefinition(&discount); err != nil {
		RespondServiceError(c, err)
		return
	}

	err := dc.DB.Transaction(func(tx *gorm.DB) error {
		scopes := []struct {
			given bool
			model any
			assoc string
		}{
			{req.ProductIDs != nil, &models.DiscountProduct{}, "Products"},
			{req.CategoryIDs != nil, &models.DiscountCategory{}, "Categories"},
			{req.CustomerTierIDs != nil, &models.DiscountCustomerTier{}, "CustomerTiers"},
			{req.EmployeeRoles != nil, &models.DiscountEmployeeRole{}, "EmployeeRoles"},
		}
		for _, s := range scopes {
			if !s.given {
				continue
			}
			if err := tx.Where("discount_id = ?", discount.ID).Delete(s.model).Error; err != nil {
				return err
			}
			for _, row := range scopeRows(&discount, s.assoc) {
				if err := tx.Create(row).Error; err != nil {
					return err
				}
			}
		}
		return tx.Omit("Products", "Categories", "CustomerTiers", "EmployeeRoles", "FreeProduct", "used_count").Save(&discount).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var updated models.Discount
	if err := preloadDiscountScopes(dc.DB).First(&updated, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount updated", updated)
}

func scopeRows(d *models.Discount, assoc string) []any {
	var rows []any
	switch assoc {
	case "Products":
		for i := range d.Products {
			rows = append(rows, &d.Products[i])
		}
	case "Categories":
		for i := range d.Categories {
			rows = append(rows, &d.Categories[i])
		}
	case "CustomerTiers":
		for i := range d.CustomerTiers {
			rows = append(rows, &d.CustomerTiers[i])
		}
	case "EmployeeRoles":
		for i := range d.EmployeeRoles {
			rows = append(rows, &d.EmployeeRoles[i])
		}
	}
	return rows
}

// DeleteDiscount is refused while any order references the discount.
func (dc *DiscountController) DeleteDiscount(c *gin.Context) {
	id, ok := paramID(c, "discount_id")
	if !ok {
		return
	}
	if err := dc.Catalog.DeleteDiscount(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount deleted", gin.H{"discount_id": id})
}
