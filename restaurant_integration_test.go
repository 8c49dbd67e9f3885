package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t     *testing.T
	r     http.Handler
	token string
}

func (cl client) do(method, path string, body interface{}) (int, apiResponse) {
	cl.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(cl.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	w := httptest.NewRecorder()
	cl.r.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(cl.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (cl client) must(code int, method, path string, body, out interface{}) {
	cl.t.Helper()
	got, resp := cl.do(method, path, body)
	require.Equal(cl.t, code, got, "%s %s: %s", method, path, resp.Message)
	if out != nil {
		require.NoError(cl.t, json.Unmarshal(resp.Data, out))
	}
}

func (cl client) login(email, password string) client {
	cl.t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	cl.must(http.StatusOK, http.MethodPost, "/login", gin.H{"email": email, "password": password}, &out)
	require.NotEmpty(cl.t, out.Token)
	return client{t: cl.t, r: cl.r, token: out.Token}
}

func setupApp(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	cfg := config.Config{
		DBDriver:       "sqlite",
		DBDSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		VATRate:        decimal.RequireFromString("0.10"),
		DeliveryFee:    decimal.NewFromInt(15000),
		OrderPrefix:    "INV",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		CORSOrigin:     "*",
		RestaurantName: "Warung Integrasi",
		AdminEmail:     "admin@resto.test",
		AdminPassword:  "admin123",
	}
	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.AutoMigrate(db))
	require.NoError(t, config.SeedAdmin(db, cfg))

	orders := services.NewOrderService(db, router.PricingFrom(cfg), services.SpendTierProvider{}, kds.Notifier{})
	return router.NewEngine(db, cfg, orders), db
}

// Seeded admin sets up the menu, a cashier takes an order, the kitchen
// moves it along, the cashier settles and hands it over, then cancels a
// second one.
func TestEndToEndOrderFlow(t *testing.T) {
	r, db := setupApp(t)
	anon := client{t: t, r: r}

	code, _ := anon.do(http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	admin := anon.login("admin@resto.test", "admin123")

	for _, e := range []gin.H{
		{"name": "Sari", "email": "sari@resto.test", "password": "kasir123", "role": "cashier"},
		{"name": "Budi", "email": "budi@resto.test", "password": "koki1234", "role": "chef"},
	} {
		admin.must(http.StatusCreated, http.MethodPost, "/api/employees", e, nil)
	}

	var category models.Category
	admin.must(http.StatusCreated, http.MethodPost, "/api/categories", gin.H{"name": "Minuman"}, &category)
	var coffee models.Product
	admin.must(http.StatusCreated, http.MethodPost, "/api/products", gin.H{
		"category_id":    category.ID,
		"name":           "Kopi Susu",
		"price":          "18000",
		"stock_quantity": 12,
	}, &coffee)

	cashier := anon.login("sari@resto.test", "kasir123")
	chef := anon.login("budi@resto.test", "koki1234")

	var customer models.Customer
	cashier.must(http.StatusCreated, http.MethodPost, "/api/customers", gin.H{"name": "Dewi"}, &customer)

	code, _ = chef.do(http.MethodPost, "/api/orders", gin.H{"customer_id": customer.ID, "type": "takeaway"})
	assert.Equal(t, http.StatusForbidden, code, "kitchen staff cannot take orders")

	var order models.Order
	cashier.must(http.StatusCreated, http.MethodPost, "/api/orders", gin.H{
		"customer_id": customer.ID,
		"type":        "delivery",
		"items":       []gin.H{{"product_id": coffee.ID, "quantity": 3}},
	}, &order)
	assert.Regexp(t, `^INV\d{8}0001$`, order.OrderNumber)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(74400)), "54000 + 5400 vat + 15000 fee, got %s", order.TotalAmount)

	path := fmt.Sprintf("/api/orders/%d", order.ID)
	chef.must(http.StatusOK, http.MethodPatch, path, gin.H{"status": "preparing"}, nil)
	chef.must(http.StatusOK, http.MethodPatch, path, gin.H{"status": "ready"}, nil)

	code, _ = cashier.do(http.MethodPatch, path, gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, code, "unpaid orders cannot be delivered")
	code, _ = chef.do(http.MethodPost, path+"/payment", gin.H{"method": "cash", "cash_received": "80000"})
	assert.Equal(t, http.StatusForbidden, code)
	cashier.must(http.StatusCreated, http.MethodPost, path+"/payment", gin.H{"method": "cash", "cash_received": "80000"}, &order)
	require.NotNil(t, order.Payment)
	assert.True(t, order.Payment.Change.Equal(decimal.NewFromInt(5600)), "got %s", order.Payment.Change)

	cashier.must(http.StatusOK, http.MethodPatch, path, gin.H{"status": "delivered"}, &order)
	assert.Equal(t, models.OrderDelivered, order.Status)
	assert.NotNil(t, order.ReadyAt)

	code, _ = cashier.do(http.MethodPost, path+"/items", gin.H{"product_id": coffee.ID, "quantity": 1})
	assert.Equal(t, http.StatusConflict, code, "delivered orders are closed")

	var second models.Order
	cashier.must(http.StatusCreated, http.MethodPost, "/api/orders", gin.H{
		"customer_id": customer.ID,
		"type":        "takeaway",
		"items":       []gin.H{{"product_id": coffee.ID, "quantity": 4}},
	}, &second)

	var left models.Product
	require.NoError(t, db.First(&left, coffee.ID).Error)
	assert.Equal(t, 5, left.StockQuantity)

	secondPath := fmt.Sprintf("/api/orders/%d", second.ID)
	code, _ = chef.do(http.MethodPost, secondPath+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, code)
	cashier.must(http.StatusOK, http.MethodPost, secondPath+"/cancel", nil, &second)
	assert.Equal(t, models.OrderCancelled, second.Status)

	require.NoError(t, db.First(&left, coffee.ID).Error)
	assert.Equal(t, 9, left.StockQuantity)

	var stats struct {
		TodayOrders    int64            `json:"today_orders"`
		TodayRevenue   decimal.Decimal  `json:"today_revenue"`
		OrdersByStatus map[string]int64 `json:"orders_by_status"`
	}
	code, _ = cashier.do(http.MethodGet, "/api/dashboard/stats", nil)
	assert.Equal(t, http.StatusForbidden, code)
	admin.must(http.StatusOK, http.MethodGet, "/api/dashboard/stats", nil, &stats)
	assert.Equal(t, int64(1), stats.TodayOrders, "cancelled orders are not counted")
	assert.True(t, stats.TodayRevenue.Equal(decimal.NewFromInt(74400)), "got %s", stats.TodayRevenue)
	assert.Equal(t, int64(1), stats.OrdersByStatus["cancelled"])
}
