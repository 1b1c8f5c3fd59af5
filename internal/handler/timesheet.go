package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/middleware"
	"openwfm/api/internal/model"
	"openwfm/api/internal/service"
)

// TimesheetHandler handles manual clock operations and timesheet review
type TimesheetHandler struct {
	tracker *service.Tracker
}

// NewTimesheetHandler creates a new timesheet handler
func NewTimesheetHandler(tracker *service.Tracker) *TimesheetHandler {
	return &TimesheetHandler{tracker: tracker}
}

type clockInRequest struct {
	ProjectID string     `json:"project_id" binding:"required"`
	GeozoneID *string    `json:"geozone_id"`
	Timestamp *time.Time `json:"timestamp"`
	Notes     string     `json:"notes"`
}

// ClockIn opens a manual session for the authenticated worker
// @Summary Manual clock-in
// @Tags Timesheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body clockInRequest true "Clock-in"
// @Success 201 {object} model.Timesheet
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /timesheets/clock-in [post]
func (h *TimesheetHandler) ClockIn(c *gin.Context) {
	var req clockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	ts, err := h.tracker.ManualClockIn(c.Request.Context(),
		c.GetString(middleware.ContextUserID), req.ProjectID, req.GeozoneID, at, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"timesheet": ts})
}

type clockOutRequest struct {
	Timestamp *time.Time `json:"timestamp"`
}

// ClockOut closes the authenticated worker's open session
// @Summary Manual clock-out
// @Tags Timesheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body clockOutRequest false "Clock-out"
// @Success 200 {object} model.Timesheet
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /timesheets/clock-out [post]
func (h *TimesheetHandler) ClockOut(c *gin.Context) {
	var req clockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	ts, err := h.tracker.ManualClockOut(c.Request.Context(),
		c.GetString(middleware.ContextUserID), at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheet": ts})
}

// List returns timesheets visible to the caller
// @Summary List timesheets
// @Description Workers see their own timesheets; managers and admins see the organization
// @Tags Timesheets
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Filter by worker (managers only)"
// @Param project_id query string false "Filter by project"
// @Param status query string false "Filter by status"
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Router /timesheets [get]
func (h *TimesheetHandler) List(c *gin.Context) {
	filter := service.TimesheetFilter{
		OrgID:     c.GetString(middleware.ContextOrgID),
		UserID:    c.Query("user_id"),
		ProjectID: c.Query("project_id"),
		Status:    c.Query("status"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}

	// Workers are pinned to their own rows regardless of the filter.
	if !model.IsAdminOrManager(c.GetString(middleware.ContextRole)) {
		filter.UserID = c.GetString(middleware.ContextUserID)
	}

	sheets, err := h.tracker.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheets": sheets, "total": len(sheets)})
}

// Get returns one timesheet
// @Summary Get timesheet
// @Tags Timesheets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Timesheet ID"
// @Success 200 {object} model.Timesheet
// @Failure 404 {object} map[string]string
// @Router /timesheets/{id} [get]
func (h *TimesheetHandler) Get(c *gin.Context) {
	ts, err := h.tracker.Get(c.Request.Context(), c.GetString(middleware.ContextOrgID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !model.IsAdminOrManager(c.GetString(middleware.ContextRole)) &&
		ts.UserID != c.GetString(middleware.ContextUserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "timesheet not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheet": ts})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateStatus approves, rejects or flags a pending timesheet
// @Summary Review timesheet
// @Tags Timesheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Timesheet ID"
// @Param request body statusRequest true "New status and reason"
// @Success 200 {object} model.Timesheet
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /timesheets/{id}/status [patch]
func (h *TimesheetHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts, err := h.tracker.UpdateStatus(c.Request.Context(),
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextRole),
		c.Param("id"), req.Status, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheet": ts})
}

// Open returns the caller's currently open session, if any
// @Summary Current open session
// @Tags Timesheets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /timesheets/open [get]
func (h *TimesheetHandler) Open(c *gin.Context) {
	ts, err := h.tracker.OpenSession(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timesheet": ts, "open": ts != nil})
}
