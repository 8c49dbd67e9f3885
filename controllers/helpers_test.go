package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, config.AutoMigrate(db))
	return db
}

// asEmployee stands in for AuthMiddleware.
func asEmployee(id uint, role models.EmployeeRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.ContextEmployeeID, id)
		c.Set(middlewares.ContextRole, string(role))
		c.Next()
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorData struct {
	Kind    string         `json:"kind"`
	Reason  string         `json:"reason"`
	Details map[string]any `json:"details"`
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

type seed struct {
	customer models.Customer
	cashier  models.Employee
	food     models.Category
	nasi     models.Product
	teh      models.Product
}

func seedCatalog(t *testing.T, db *gorm.DB) seed {
	t.Helper()
	s := seed{
		customer: models.Customer{Name: "Budi"},
		cashier:  models.Employee{Name: "Sari", Email: "sari@resto.test", Password: "x", Role: models.RoleCashier, IsActive: true},
		food:     models.Category{Name: "Makanan"},
	}
	require.NoError(t, db.Create(&s.customer).Error)
	require.NoError(t, db.Create(&s.cashier).Error)
	require.NoError(t, db.Create(&s.food).Error)

	s.nasi = models.Product{Name: "Nasi Goreng", CategoryID: s.food.ID, Price: decimal.NewFromInt(25000), IsActive: true, IsAvailable: true, StockQuantity: 10}
	s.teh = models.Product{Name: "Es Teh", CategoryID: s.food.ID, Price: decimal.NewFromInt(5000), IsActive: true, IsAvailable: true, StockQuantity: 20}
	require.NoError(t, db.Create(&s.nasi).Error)
	require.NoError(t, db.Create(&s.teh).Error)
	return s
}

func activeDiscount(t *testing.T, db *gorm.DB, d models.Discount) models.Discount {
	t.Helper()
	d.StartDate = time.Now().Add(-time.Hour)
	d.EndDate = time.Now().Add(24 * time.Hour)
	d.IsActive = true
	require.NoError(t, db.Create(&d).Error)
	return d
}

func stockOf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.StockQuantity
}

func performAuthed(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
