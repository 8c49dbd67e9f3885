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

type IngredientController struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
}

func NewIngredientController(db *gorm.DB, catalog *services.CatalogService) *IngredientController {
	return &IngredientController{DB: db, Catalog: catalog}
}

// GetAllIngredients; ?low=true lists only ingredients under their minimum
func (ic *IngredientController) GetAllIngredients(c *gin.Context) {
	query := ic.DB.Order("name")
	if c.Query("low") == "true" {
		query = query.Where("min_quantity > 0 AND quantity < min_quantity")
	}
	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of ingredients", ingredients)
}

func (ic *IngredientController) CreateIngredient(c *gin.Context) {
	var body struct {
		Name         string          `json:"name" binding:"required"`
		Unit         string          `json:"unit"`
		Quantity     decimal.Decimal `json:"quantity"`
		MinQuantity  decimal.Decimal `json:"min_quantity"`
		PricePerUnit decimal.Decimal `json:"price_per_unit"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Quantity.IsNegative() || body.MinQuantity.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("quantities must not be negative"))
		return
	}
	if body.Unit == "" {
		body.Unit = "pcs"
	}

	ingredient := models.Ingredient{
		Name:         body.Name,
		Unit:         body.Unit,
		Quantity:     body.Quantity,
		MinQuantity:  body.MinQuantity,
		PricePerUnit: body.PricePerUnit,
	}
	if err := ic.DB.Create(&ingredient).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Ingredient created", ingredient)
}

func (ic *IngredientController) GetIngredientByID(c *gin.Context) {
	id, ok := paramID(c, "ingredient_id")
	if !ok {
		return
	}
	var ingredient models.Ingredient
	if err := ic.DB.First(&ingredient, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ingredient detail", ingredient)
}

// AdjustIngredient -> {"delta": "-2.5"} restock or write off
func (ic *IngredientController) AdjustIngredient(c *gin.Context) {
	id, ok := paramID(c, "ingredient_id")
	if !ok {
		return
	}
	var body struct {
		Delta decimal.Decimal `json:"delta"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Delta.IsZero() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("delta must not be zero"))
		return
	}

	ingredient, err := ic.Catalog.AdjustIngredient(c.Request.Context(), id, body.Delta)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ingredient adjusted", ingredient)
}
