package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type PaymentController struct {
	Orders *services.OrderService
}

func NewPaymentController(orders *services.OrderService) *PaymentController {
	return &PaymentController{Orders: orders}
}

// CreatePayment -> settle an order for its current total
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}

	var req struct {
		Method       models.PaymentMethod `json:"method" binding:"required"`
		CashReceived *decimal.Decimal     `json:"cash_received"`
		Reference    string               `json:"reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	in := services.RecordPaymentInput{
		Method:       req.Method,
		CashReceived: req.CashReceived,
		Reference:    req.Reference,
	}
	if employeeID, ok := middlewares.EmployeeID(c); ok {
		in.EmployeeID = &employeeID
	}

	order, err := pc.Orders.RecordPayment(c.Request.Context(), id, in)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", order)
}

// GetPayment -> payment detail of one order
func (pc *PaymentController) GetPayment(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	payment, err := pc.Orders.GetPayment(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}
