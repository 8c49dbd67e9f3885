package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// removeDiscount in an update request detaches the current discount.
const removeDiscount int64 = -1

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

type orderItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Notes     string `json:"notes"`
}

func toLineItems(items []orderItemRequest) []services.LineItemRequest {
	if items == nil {
		return nil
	}
	out := make([]services.LineItemRequest, 0, len(items))
	for _, it := range items {
		out = append(out, services.LineItemRequest{ProductID: it.ProductID, Quantity: it.Quantity, Notes: it.Notes})
	}
	return out
}

// GetAllOrders -> list orders, optionally filtered by status and customer
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	filter := services.OrderFilter{Status: models.OrderStatus(c.Query("status"))}
	if v := c.Query("customer_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid customer_id"))
			return
		}
		filter.CustomerID = uint(id)
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid limit"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid offset"))
		return
	}
	filter.Limit, filter.Offset = limit, offset

	orders, err := oc.Orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// CreateOrder -> price, reserve stock and persist a new order
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req struct {
		CustomerID   uint               `json:"customer_id" binding:"required"`
		Type         models.OrderType   `json:"type" binding:"required"`
		Items        []orderItemRequest `json:"items" binding:"required,dive"`
		EmployeeID   *uint              `json:"employee_id"`
		TableID      *uint              `json:"table_id"`
		TableGroupID *uint              `json:"table_group_id"`
		IncludeVAT   *bool              `json:"include_vat"`
		DiscountID   *uint              `json:"discount_id"`
		Notes        string             `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	employeeID := req.EmployeeID
	if employeeID == nil {
		if id, ok := middlewares.EmployeeID(c); ok {
			employeeID = &id
		}
	}

	order, err := oc.Orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		CustomerID:   req.CustomerID,
		EmployeeID:   employeeID,
		TableID:      req.TableID,
		TableGroupID: req.TableGroupID,
		Type:         req.Type,
		IncludeVAT:   req.IncludeVAT,
		DiscountID:   req.DiscountID,
		Notes:        req.Notes,
		Items:        toLineItems(req.Items),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrderByID -> detail 1 order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrder -> partial update; discount_id -1 removes the discount
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}

	var req struct {
		Status     *models.OrderStatus `json:"status"`
		Notes      *string             `json:"notes"`
		EmployeeID *uint               `json:"employee_id"`
		TableID    *uint               `json:"table_id"`
		DiscountID *int64              `json:"discount_id"`
		Items      []orderItemRequest  `json:"items" binding:"omitempty,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	in := services.UpdateOrderInput{
		Status:     req.Status,
		Notes:      req.Notes,
		EmployeeID: req.EmployeeID,
		TableID:    req.TableID,
		Items:      toLineItems(req.Items),
	}
	if req.DiscountID != nil {
		switch {
		case *req.DiscountID == removeDiscount:
			in.Discount = services.DiscountChange{Action: services.DiscountClear}
		case *req.DiscountID > 0:
			in.Discount = services.DiscountChange{Action: services.DiscountSet, ID: uint(*req.DiscountID)}
		default:
			utils.RespondError(c, http.StatusBadRequest, errors.New("discount_id must be positive, or -1 to remove the discount"))
			return
		}
	}

	order, err := oc.Orders.UpdateOrder(c.Request.Context(), id, in)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// CancelOrder -> restore stock and mark the order cancelled
func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.CancelOrder(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func (oc *OrderController) AddOrderItem(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req orderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.AddItem(c.Request.Context(), id, services.LineItemRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order item added", order)
}

func (oc *OrderController) UpdateOrderItem(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req struct {
		Quantity *int    `json:"quantity"`
		Notes    *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateItem(c.Request.Context(), orderID, itemID, services.UpdateItemInput{
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order item updated", order)
}

func (oc *OrderController) DeleteOrderItem(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	order, err := oc.Orders.DeleteItem(c.Request.Context(), orderID, itemID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order item deleted", order)
}
