package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pawansuthar01/Qresto-sub000/services"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

// RespondServiceError maps the service error taxonomy onto HTTP codes. All of
// these are recoverable caller errors; anything unrecognized is a 500.
func RespondServiceError(c *gin.Context, err error) {
	var (
		capacityErr   *services.CapacityError
		notFoundErr   *services.NotFoundError
		permissionErr *services.PermissionError
		transitionErr *services.InvalidTransitionError
		conflictErr   *services.ConflictError
	)

	switch {
	case errors.As(err, &capacityErr):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.As(err, &notFoundErr):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.As(err, &permissionErr):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.As(err, &transitionErr):
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
	case errors.As(err, &conflictErr):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrEmptyOrder):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// staffPrincipal builds the acting principal from the auth middleware context.
func staffPrincipal(c *gin.Context) services.Principal {
	p := services.Principal{}
	if v, ok := c.Get("role"); ok {
		p.Role, _ = v.(string)
	}
	if v, ok := c.Get("restaurant_id"); ok {
		if id, ok := v.(uint); ok {
			p.RestaurantID = id
		}
	}
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			p.Subject = "user:" + strconv.Itoa(int(id))
		}
	}
	return p
}
