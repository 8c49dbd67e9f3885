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

type CustomerController struct {
	DB    *gorm.DB
	Tiers services.CustomerTierProvider
}

func NewCustomerController(db *gorm.DB, tiers services.CustomerTierProvider) *CustomerController {
	if tiers == nil {
		tiers = services.SpendTierProvider{}
	}
	return &CustomerController{DB: db, Tiers: tiers}
}

// CreateCustomer -> walk-in customers only need a name
func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var req struct {
		Name  string  `json:"name" binding:"required"`
		Phone *string `json:"phone"`
		Email *string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	customer := models.Customer{Name: req.Name, Phone: req.Phone, Email: req.Email}
	if err := cc.DB.Create(&customer).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Customer created", customer)
}

// GetAllCustomers; ?phone= narrows to one number
func (cc *CustomerController) GetAllCustomers(c *gin.Context) {
	query := cc.DB.Order("name")
	if phone := c.Query("phone"); phone != "" {
		query = query.Where("phone = ?", phone)
	}
	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of customers", customers)
}

// GetCustomerByID -> customer with lifetime spend and current tier
func (cc *CustomerController) GetCustomerByID(c *gin.Context) {
	id, ok := paramID(c, "customer_id")
	if !ok {
		return
	}
	var customer models.Customer
	if err := cc.DB.First(&customer, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}

	ctx := c.Request.Context()
	spent, err := services.CustomerSpend(cc.DB.WithContext(ctx), customer.ID, 0)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	tier, err := cc.Tiers.CurrentTier(ctx, cc.DB, customer.ID, 0)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Customer detail", gin.H{
		"customer":    customer,
		"total_spent": spent,
		"tier":        tier,
	})
}

func (cc *CustomerController) GetAllTiers(c *gin.Context) {
	var tiers []models.CustomerTier
	if err := cc.DB.Order("minimum_spent").Order("display_order").Find(&tiers).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of customer tiers", tiers)
}

func (cc *CustomerController) CreateTier(c *gin.Context) {
	var req struct {
		Name         string          `json:"name" binding:"required"`
		MinimumSpent decimal.Decimal `json:"minimum_spent"`
		DisplayOrder int             `json:"display_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.MinimumSpent.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("minimum_spent must not be negative"))
		return
	}

	tier := models.CustomerTier{
		Name:         req.Name,
		MinimumSpent: req.MinimumSpent.Round(2),
		DisplayOrder: req.DisplayOrder,
	}
	if err := cc.DB.Create(&tier).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Customer tier created", tier)
}
