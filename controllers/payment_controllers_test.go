package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

func TestOrderPaymentEndpoints(t *testing.T) {
	r, db, s := setupOrderRouter(t)
	payments := controllers.NewPaymentController(services.NewOrderService(db, services.PricingConfig{}, nil, nil))
	r.POST("/orders/:order_id/payment", payments.CreatePayment)
	r.GET("/orders/:order_id/payment", payments.GetPayment)

	order := createTakeaway(t, r, s, nil)
	path := fmt.Sprintf("/orders/%d/payment", order.ID)

	w := performRequest(r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, http.MethodPost, "/orders/abc/payment", gin.H{"method": "card"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = performRequest(r, http.MethodPost, path, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "method is required")

	w = performRequest(r, http.MethodPost, path, gin.H{"method": "voucher"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errBody errorData
	decode(t, w, &errBody)
	assert.Equal(t, "validation_error", errBody.Kind)

	w = performRequest(r, http.MethodPost, path, gin.H{"method": "cash", "cash_received": 50000})
	assert.Equal(t, http.StatusBadRequest, w.Code, "60500 is due")

	w = performRequest(r, http.MethodPost, path, gin.H{"method": "card", "reference": "EDC-778"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var paid models.Order
	decode(t, w, &paid)
	require.NotNil(t, paid.Payment)
	assert.Equal(t, models.PaymentPaid, paid.Payment.Status)
	assertDecimal(t, "60500", paid.Payment.Amount)
	require.NotNil(t, paid.Payment.VerifiedBy)
	assert.Equal(t, s.cashier.ID, *paid.Payment.VerifiedBy)

	w = performRequest(r, http.MethodPost, path, gin.H{"method": "card"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(r, http.MethodPost, fmt.Sprintf("/orders/%d/items", order.ID), gin.H{"product_id": s.teh.ID, "quantity": 1})
	assert.Equal(t, http.StatusConflict, w.Code, "paid orders keep their lines")

	w = performRequest(r, http.MethodPost, fmt.Sprintf("/orders/%d/cancel", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var refunded models.Payment
	decode(t, w, &refunded)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	assert.NotNil(t, refunded.RefundedAt)
}
