package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/service"
)

// respondError maps service errors onto the HTTP surface: invalid input is
// 400, state conflicts are 409, missing entities are 404, role failures are
// 403, anything else is 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case service.IsConflict(err):
		var alreadyOpen *service.AlreadyOpenError
		if errors.As(err, &alreadyOpen) {
			c.JSON(http.StatusConflict, gin.H{
				"error":        alreadyOpen.Error(),
				"timesheet_id": alreadyOpen.TimesheetID,
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
