package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

type AdminController struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db, Now: time.Now}
}

type dashboardStats struct {
	TodayOrders      int64                        `json:"today_orders"`
	TodayRevenue     decimal.Decimal              `json:"today_revenue"`
	TodayDiscounts   decimal.Decimal              `json:"today_discounts"`
	OrdersByStatus   map[models.OrderStatus]int64 `json:"orders_by_status"`
	LowStock         int64                        `json:"low_stock_ingredients"`
	TableStats       map[string]int64             `json:"table_stats"`
	ConnectedScreens int                          `json:"connected_screens"`
}

// GetDashboardStats mengambil statistik untuk dashboard
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	now := ac.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today := ac.DB.Model(&models.Order{}).Where("created_at >= ? AND status <> ?", dayStart, models.OrderCancelled)

	stats := dashboardStats{
		OrdersByStatus:   map[models.OrderStatus]int64{},
		TableStats:       (&TableController{DB: ac.DB}).getDashboardStats(),
		ConnectedScreens: kds.ClientCount(),
	}

	if err := today.Session(&gorm.Session{}).Count(&stats.TodayOrders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var sums struct {
		Revenue   decimal.NullDecimal
		Discounts decimal.NullDecimal
	}
	if err := today.Session(&gorm.Session{}).
		Select("SUM(total_amount) AS revenue, SUM(discount_amount) AS discounts").
		Scan(&sums).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	stats.TodayRevenue = sums.Revenue.Decimal
	stats.TodayDiscounts = sums.Discounts.Decimal

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := ac.DB.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	for _, r := range rows {
		stats.OrdersByStatus[r.Status] = r.Count
	}

	if err := ac.DB.Model(&models.Ingredient{}).
		Where("min_quantity > 0 AND quantity < min_quantity").
		Count(&stats.LowStock).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}
