package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/services"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

type TableController struct {
	DB          *gorm.DB
	Coordinator *services.OccupancyCoordinator
}

func NewTableController(db *gorm.DB, coordinator *services.OccupancyCoordinator) *TableController {
	return &TableController{DB: db, Coordinator: coordinator}
}

// CreateTable -> staff menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber     string `json:"table_number" binding:"required"`
		Capacity        int    `json:"capacity" binding:"required,min=1"`
		EnforceCapacity *bool  `json:"enforce_capacity"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	principal := staffPrincipal(c)
	table := models.Table{
		RestaurantID:    principal.RestaurantID,
		TableNumber:     req.TableNumber,
		Capacity:        req.Capacity,
		EnforceCapacity: true,
	}
	if req.EnforceCapacity != nil {
		table.EnforceCapacity = *req.EnforceCapacity
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %s (capacity=%d)", table.TableNumber, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> seluruh meja restoran dengan occupancy live
func (tc *TableController) GetAllTables(c *gin.Context) {
	principal := staffPrincipal(c)

	var tables []models.Table
	if err := tc.DB.Where("restaurant_id = ?", principal.RestaurantID).
		Order("table_number asc").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	type tableView struct {
		models.Table
		CurrentCount int `json:"current_count"`
	}

	views := make([]tableView, 0, len(tables))
	for _, table := range tables {
		view := tableView{Table: table}
		if state, err := tc.Coordinator.Occupancy(table.ID); err == nil {
			view.CurrentCount = state.CurrentCount
		}
		views = append(views, view)
	}

	utils.RespondJSON(c, http.StatusOK, "List of tables", views)
}

// GetTableByID -> detail satu meja
func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// UpdateTable -> ubah kapasitas / enforcement
func (tc *TableController) UpdateTable(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Capacity        *int  `json:"capacity"`
		EnforceCapacity *bool `json:"enforce_capacity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.Capacity != nil && *body.Capacity > 0 {
		table.Capacity = *body.Capacity
	}
	if body.EnforceCapacity != nil {
		table.EnforceCapacity = *body.EnforceCapacity
	}

	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d updated (capacity=%d, enforce=%v)",
		table.ID, table.Capacity, table.EnforceCapacity)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}
