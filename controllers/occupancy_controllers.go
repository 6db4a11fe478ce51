package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pawansuthar01/Qresto-sub000/services"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

type OccupancyController struct {
	Coordinator *services.OccupancyCoordinator
}

func NewOccupancyController(coordinator *services.OccupancyCoordinator) *OccupancyController {
	return &OccupancyController{Coordinator: coordinator}
}

// JoinTable -> guest device scan QR dan minta kursi
func (oc *OccupancyController) JoinTable(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		DeviceToken string `json:"device_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	sess, err := oc.Coordinator.Join(tableID, body.DeviceToken)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Joined table", sess)
}

// LeaveTable -> selalu 200, leave is idempotent
func (oc *OccupancyController) LeaveTable(c *gin.Context) {
	sessionKey := c.Param("session_key")

	if err := oc.Coordinator.Leave(sessionKey); err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Left table", gin.H{"session_key": sessionKey})
}

// Heartbeat -> refresh idle clock; 404 berarti device harus join ulang
func (oc *OccupancyController) Heartbeat(c *gin.Context) {
	sessionKey := c.Param("session_key")

	if err := oc.Coordinator.Heartbeat(sessionKey); err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Heartbeat accepted", gin.H{"session_key": sessionKey})
}

// GetOccupancy -> authoritative occupancy state untuk resync
func (oc *OccupancyController) GetOccupancy(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	state, err := oc.Coordinator.Occupancy(tableID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table occupancy", state)
}

// ResetTable -> staff membebaskan meja (ghost sessions dsb)
func (oc *OccupancyController) ResetTable(c *gin.Context) {
	tableID, err := parseID(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := oc.Coordinator.Reset(tableID, staffPrincipal(c)); err != nil {
		RespondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table occupancy reset", gin.H{"table_id": tableID})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	return uint(id), err
}
