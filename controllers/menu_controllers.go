package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

type MenuController struct {
	DB  *gorm.DB
	Pub realtime.Publisher
}

func NewMenuController(db *gorm.DB, pub realtime.Publisher) *MenuController {
	return &MenuController{DB: db, Pub: pub}
}

// GetAllMenus -> daftar menu untuk guest menu screen
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	restaurantID, err := parseID(c.Query("restaurant_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var menus []models.Menu
	if err := mc.DB.Where("restaurant_id = ? AND available = ?", restaurantID, true).
		Order("category_id asc, name asc").Find(&menus).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

// GetMenuByID -> detail 1 menu
func (mc *MenuController) GetMenuByID(c *gin.Context) {
	menuID, err := parseID(c.Param("menu_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var menu models.Menu
	if err := mc.DB.First(&menu, menuID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu detail", menu)
}

// CreateMenu -> staff menambahkan menu baru
func (mc *MenuController) CreateMenu(c *gin.Context) {
	var req struct {
		CategoryID  uint    `json:"category_id" binding:"required"`
		Name        string  `json:"name" binding:"required"`
		Price       float64 `json:"price" binding:"required,gt=0"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	principal := staffPrincipal(c)
	menu := models.Menu{
		RestaurantID: principal.RestaurantID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Price:        req.Price,
		Available:    true,
		Description:  req.Description,
	}

	if err := mc.DB.Create(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.emitMenuChanged(menu)
	utils.RespondJSON(c, http.StatusCreated, "Menu created", menu)
}

// UpdateMenu -> harga baru hanya untuk order berikutnya; order lama tetap
// memakai harga snapshot
func (mc *MenuController) UpdateMenu(c *gin.Context) {
	menuID, err := parseID(c.Param("menu_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Name        *string  `json:"name"`
		Price       *float64 `json:"price"`
		Available   *bool    `json:"available"`
		Description *string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var menu models.Menu
	if err := mc.DB.First(&menu, menuID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.Name != nil {
		menu.Name = *body.Name
	}
	if body.Price != nil && *body.Price > 0 {
		menu.Price = *body.Price
	}
	if body.Available != nil {
		menu.Available = *body.Available
	}
	if body.Description != nil {
		menu.Description = *body.Description
	}

	if err := mc.DB.Save(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.emitMenuChanged(menu)
	utils.RespondJSON(c, http.StatusOK, "Menu updated", menu)
}

func (mc *MenuController) emitMenuChanged(menu models.Menu) {
	mc.Pub.Publish(realtime.RestaurantRoom(menu.RestaurantID), realtime.Event{
		Kind:    realtime.EventMenuItemChanged,
		Payload: menu,
	})
}
