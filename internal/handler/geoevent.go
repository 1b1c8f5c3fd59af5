package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/middleware"
	"openwfm/api/internal/model"
	"openwfm/api/internal/service"
)

// GeoEventHandler handles geofence entry/exit submissions
type GeoEventHandler struct {
	tracker *service.Tracker
}

// NewGeoEventHandler creates a new geo-event handler
func NewGeoEventHandler(tracker *service.Tracker) *GeoEventHandler {
	return &GeoEventHandler{tracker: tracker}
}

type geoEventRequest struct {
	GeozoneID  string        `json:"geozone_id"`
	EventType  string        `json:"event_type" binding:"required,oneof=entry exit"`
	Lat        *float64      `json:"lat" binding:"required"`
	Lon        *float64      `json:"lon" binding:"required"`
	Timestamp  *time.Time    `json:"timestamp"`
	DeviceInfo model.JSONMap `json:"device_info"`
}

// Submit records a geofence entry or exit for the authenticated worker
// @Summary Submit geofence event
// @Description Record a geofence entry (clock-in) or exit (clock-out) event
// @Tags GeoEvents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body geoEventRequest true "Geo event"
// @Success 201 {object} model.Timesheet
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /geoevents [post]
func (h *GeoEventHandler) Submit(c *gin.Context) {
	var req geoEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workerID := c.GetString(middleware.ContextUserID)

	ping := service.GeoPing{
		Lat:        *req.Lat,
		Lon:        *req.Lon,
		Timestamp:  time.Now(),
		DeviceInfo: req.DeviceInfo,
	}
	if req.Timestamp != nil {
		ping.Timestamp = *req.Timestamp
	}

	var (
		ts  *model.Timesheet
		err error
	)
	switch req.EventType {
	case model.GeoEventEntry:
		ts, err = h.tracker.RecordEntry(c.Request.Context(), workerID, req.GeozoneID, ping)
	default:
		ts, err = h.tracker.RecordExit(c.Request.Context(), workerID, req.GeozoneID, ping)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"timesheet": ts})
}
