package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Sesuaikan dengan kebutuhan keamanan
	},
}

type RealtimeController struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewRealtimeController(db *gorm.DB, hub *realtime.Hub) *RealtimeController {
	return &RealtimeController{DB: db, Hub: hub}
}

// StaffSocket -> staff dashboard masuk ke restaurant room miliknya.
// Role sudah divalidasi oleh WebSocketAuthMiddleware.
func (rc *RealtimeController) StaffSocket(c *gin.Context) {
	roleInterface, exists := c.Get("role")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role := roleInterface.(string)
	if role != "chef" && role != "staff" && role != "admin" {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	restaurantIDInterface, _ := c.Get("restaurant_id")
	restaurantID, ok := restaurantIDInterface.(uint)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	room := realtime.RestaurantRoom(restaurantID)
	rc.Hub.Subscribe(room, ws)
	rc.readLoop(room, ws)
}

// GuestSocket -> guest device masuk ke table room mejanya sendiri; butuh
// session key aktif, bukan JWT.
func (rc *RealtimeController) GuestSocket(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	sessionKey := c.Query("session_key")
	if sessionKey == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var sess models.GuestSession
	if err := rc.DB.Where("session_key = ? AND table_id = ? AND status = ?",
		sessionKey, tableID, models.GuestSessionActive).First(&sess).Error; err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	room := realtime.TableRoom(tableID)
	rc.Hub.Subscribe(room, ws)
	rc.readLoop(room, ws)
}

// readLoop blocks until the peer goes away, then drops the subscription.
func (rc *RealtimeController) readLoop(room string, ws *websocket.Conn) {
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				utils.InfoLogger.Printf("Client left room %s: %v", room, err)
			}
			break
		}
	}
	rc.Hub.Unsubscribe(room, ws)
}
