package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/services"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Engine *services.OrderEngine
}

func NewOrderController(db *gorm.DB, engine *services.OrderEngine) *OrderController {
	return &OrderController{DB: db, Engine: engine}
}

// guestSession resolves the X-Session-Key header into an active guest session
// seated at the given table.
func (oc *OrderController) guestSession(c *gin.Context, tableID uint) (*models.GuestSession, bool) {
	sessionKey := c.GetHeader("X-Session-Key")
	if sessionKey == "" {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing X-Session-Key header"))
		return nil, false
	}

	var sess models.GuestSession
	err := oc.DB.Where("session_key = ? AND table_id = ? AND status = ?",
		sessionKey, tableID, models.GuestSessionActive).First(&sess).Error
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no active session at this table"))
		return nil, false
	}
	return &sess, true
}

// CreateOrder -> guest checkout dari cart (status awal 'pending')
func (oc *OrderController) CreateOrder(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := oc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	sess, ok := oc.guestSession(c, tableID)
	if !ok {
		return
	}

	var body struct {
		Items []services.OrderItemInput `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	principal := services.Principal{
		Subject:      "guest:" + sess.SessionKey,
		Role:         "guest",
		RestaurantID: table.RestaurantID,
	}

	order, err := oc.Engine.Create(table.RestaurantID, &table.ID, body.Items, principal)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// CreateStaffOrder -> staff membuat order non dine-in (takeaway dsb),
// table_id boleh kosong
func (oc *OrderController) CreateStaffOrder(c *gin.Context) {
	var body struct {
		TableID *uint                     `json:"table_id"`
		Items   []services.OrderItemInput `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	principal := staffPrincipal(c)
	order, err := oc.Engine.Create(principal.RestaurantID, body.TableID, body.Items, principal)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrderByID -> detail 1 order dengan items dan status history
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Engine.Get(orderID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// TransitionOrder -> staff menggeser order satu edge di status graph
func (oc *OrderController) TransitionOrder(c *gin.Context) {
	orderID, err := parseID(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Engine.Transition(orderID, models.OrderStatus(body.Status), staffPrincipal(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// GetBoard -> authoritative order list untuk staff dashboard resync
func (oc *OrderController) GetBoard(c *gin.Context) {
	principal := staffPrincipal(c)

	orders, err := oc.Engine.Board(principal.RestaurantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order board", orders)
}

// GetTableOrders -> guest melihat progres order meja sendiri (resync)
func (oc *OrderController) GetTableOrders(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, ok := oc.guestSession(c, tableID); !ok {
		return
	}

	orders, err := oc.Engine.TableOrders(tableID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table orders", orders)
}

// GetAllOrders -> semua order restoran (termasuk terminal), admin/staff
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	principal := staffPrincipal(c)

	var orders []models.Order
	if err := oc.DB.Preload("OrderItems").
		Where("restaurant_id = ?", principal.RestaurantID).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}
