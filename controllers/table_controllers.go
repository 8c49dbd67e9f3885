package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

var activeOrderStatuses = []models.OrderStatus{
	models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady,
}

func validTableStatus(s string) bool {
	switch s {
	case models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableDirty:
		return true
	}
	return false
}

type TableController struct {
	DB *gorm.DB
}

func NewTableController(db *gorm.DB) *TableController {
	return &TableController{DB: db}
}

// CreateTable -> menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
		Capacity    int    `json:"capacity"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{TableNumber: req.TableNumber, Capacity: 4, Status: models.TableAvailable}
	if req.Capacity > 0 {
		table.Capacity = req.Capacity
	}
	if req.Status != "" {
		if !validTableStatus(req.Status) {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown table status %q", req.Status))
			return
		}
		table.Status = req.Status
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	kds.BroadcastTableUpdate(table)

	utils.InfoLogger.Printf("New table created: %s (status=%s)", table.TableNumber, table.Status)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables; ?status= filters, stats summarises the floor
func (tc *TableController) GetAllTables(c *gin.Context) {
	query := tc.DB.Order("table_number")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var tables []models.Table
	if err := query.Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", gin.H{
		"tables": tables,
		"stats":  tc.getDashboardStats(),
	})
}

// GetTableByID -> detail satu meja
func (tc *TableController) GetTableByID(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// UpdateTableStatus; a table with active orders cannot be freed by hand
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !validTableStatus(body.Status) {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown table status %q", body.Status))
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	if body.Status == models.TableAvailable {
		active, err := tc.activeOrders(table)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		if active > 0 {
			utils.RespondError(c, http.StatusConflict, errors.New("table still has active orders"))
			return
		}
	}

	table.Status = body.Status
	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	kds.BroadcastTableUpdate(table)

	utils.InfoLogger.Printf("Table %d status changed to %s", table.ID, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// DeleteTable -> menghapus meja tanpa order aktif
func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}
	active, err := tc.activeOrders(table)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if active > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("table still has active orders"))
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// CreateTableGroup joins free tables for one party.
func (tc *TableController) CreateTableGroup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		TableIDs []uint `json:"table_ids" binding:"required,min=2"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	group := models.TableGroup{Name: req.Name}
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		var tables []models.Table
		if err := tx.Where("id IN ?", req.TableIDs).Find(&tables).Error; err != nil {
			return err
		}
		if len(tables) != len(req.TableIDs) {
			return &CustomError{"some tables do not exist"}
		}
		for _, t := range tables {
			if t.TableGroupID != nil {
				return &CustomError{fmt.Sprintf("table %s already belongs to a group", t.TableNumber)}
			}
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Model(&models.Table{}).Where("id IN ?", req.TableIDs).Update("table_group_id", group.ID).Error
	})
	var custom *CustomError
	if errors.As(err, &custom) {
		utils.RespondError(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := tc.DB.Preload("Tables").First(&group, group.ID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	for _, t := range group.Tables {
		kds.BroadcastTableUpdate(t)
	}
	utils.RespondJSON(c, http.StatusCreated, "Table group created", group)
}

func (tc *TableController) GetAllTableGroups(c *gin.Context) {
	var groups []models.TableGroup
	if err := tc.DB.Preload("Tables").Order("name").Find(&groups).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of table groups", groups)
}

// DeleteTableGroup ungroups the tables; refused while the group has active orders.
func (tc *TableController) DeleteTableGroup(c *gin.Context) {
	id, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	var group models.TableGroup
	if err := tc.DB.First(&group, id).Error; err != nil {
		RespondServiceError(c, err)
		return
	}

	var active int64
	if err := tc.DB.Model(&models.Order{}).
		Where("table_group_id = ? AND status IN ?", group.ID, activeOrderStatuses).
		Count(&active).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if active > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("table group still has active orders"))
		return
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Table{}).Where("table_group_id = ?", group.ID).Update("table_group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table group deleted", gin.H{"id": group.ID})
}

// activeOrders counts non-terminal orders seated at the table directly or via its group.
func (tc *TableController) activeOrders(table models.Table) (int64, error) {
	query := tc.DB.Model(&models.Order{}).Where("status IN ?", activeOrderStatuses)
	if table.TableGroupID != nil {
		query = query.Where("table_id = ? OR table_group_id = ?", table.ID, *table.TableGroupID)
	} else {
		query = query.Where("table_id = ?", table.ID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// getDashboardStats menghitung statistik dashboard
func (tc *TableController) getDashboardStats() map[string]int64 {
	stats := map[string]int64{}
	var total int64
	for _, status := range []string{models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableDirty} {
		var n int64
		tc.DB.Model(&models.Table{}).Where("status = ?", status).Count(&n)
		stats[status] = n
		total += n
	}
	stats["total"] = total
	return stats
}
