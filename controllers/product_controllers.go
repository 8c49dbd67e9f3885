package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

type ProductController struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
}

func NewProductController(db *gorm.DB, catalog *services.CatalogService) *ProductController {
	return &ProductController{DB: db, Catalog: catalog}
}

type productRequest struct {
	CategoryID    *uint            `json:"category_id"`
	Name          *string          `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	IsActive      *bool            `json:"is_active"`
	IsAvailable   *bool            `json:"is_available"`
	StockQuantity *int             `json:"stock_quantity"`
	MinStockLevel *int             `json:"min_stock_level"`
	Description   *string          `json:"description"`
}

func (r productRequest) apply(p *models.Product) error {
	if r.CategoryID != nil {
		p.CategoryID = *r.CategoryID
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Price != nil {
		if r.Price.IsNegative() {
			return errors.New("price must not be negative")
		}
		p.Price = r.Price.Round(2)
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.IsAvailable != nil {
		p.IsAvailable = *r.IsAvailable
	}
	if r.StockQuantity != nil {
		if *r.StockQuantity < 0 {
			return errors.New("stock_quantity must not be negative")
		}
		p.StockQuantity = *r.StockQuantity
	}
	if r.MinStockLevel != nil {
		p.MinStockLevel = *r.MinStockLevel
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	return nil
}

// GetAllProducts -> optional ?category_id= and ?active=true
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	query := pc.DB.Preload("Category").Order("name")
	if cat := c.Query("category_id"); cat != "" {
		query = query.Where("category_id = ?", cat)
	}
	if c.Query("active") == "true" {
		query = query.Where("is_active = ? AND is_available = ?", true, true)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

// CreateProduct; new products are active and available unless told otherwise
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.CategoryID == nil || req.Name == nil || req.Price == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("category_id, name and price are required"))
		return
	}

	product := models.Product{IsActive: true, IsAvailable: true}
	if err := req.apply(&product); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := pc.DB.First(&models.Category{}, product.CategoryID).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := pc.DB.Create(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.WithField("product_id", product.ID).Infof("product %s created", product.Name)
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

// GetProductByID -> product, recipe and current availability
func (pc *ProductController) GetProductByID(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	product, available, err := pc.Catalog.ProductAvailability(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", gin.H{
		"product":   product,
		"available": available,
	})
}

// UpdateProduct -> partial update
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var product models.Product
	if err := pc.DB.First(&product, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := req.apply(&product); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := pc.DB.Save(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// SetRecipe replaces the recipe of a product
func (pc *ProductController) SetRecipe(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	var body struct {
		Lines []services.RecipeLine `json:"lines" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	product, err := pc.Catalog.SetRecipe(c.Request.Context(), id, body.Lines)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe updated", product)
}

// GetAvailability -> how many units can be sold now
func (pc *ProductController) GetAvailability(c *gin.Context) {
	id, ok := paramID(c, "product_id")
	if !ok {
		return
	}
	product, available, err := pc.Catalog.ProductAvailability(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product availability", gin.H{
		"product_id": product.ID,
		"sellable":   product.Sellable(),
		"available":  available,
	})
}
