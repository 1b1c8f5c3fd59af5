package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/middleware"
	"openwfm/api/internal/service"
)

// SettingsHandler handles organization-level policy requests
type SettingsHandler struct {
	rates *service.RatePolicy
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(rates *service.RatePolicy) *SettingsHandler {
	return &SettingsHandler{rates: rates}
}

// GetOvertime returns the organization's overtime multipliers
// @Summary Get overtime policy
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.OvertimePolicy
// @Router /settings/overtime [get]
func (h *SettingsHandler) GetOvertime(c *gin.Context) {
	policy := h.rates.GetOvertimePolicy(c.Request.Context(), c.GetString(middleware.ContextOrgID))
	c.JSON(http.StatusOK, gin.H{"overtime_policy": policy})
}

type overtimeRequest struct {
	SaturdayMultiplier *float64 `json:"saturdayMultiplier"`
	SundayMultiplier   *float64 `json:"sundayMultiplier"`
	WeekdayMultiplier  *float64 `json:"weekdayMultiplier"`
}

// UpdateOvertime patches the organization's overtime multipliers. Omitted
// fields keep their current value.
// @Summary Update overtime policy
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body overtimeRequest true "Multiplier patch"
// @Success 200 {object} model.OvertimePolicy
// @Failure 400 {object} map[string]string
// @Router /settings/overtime [patch]
func (h *SettingsHandler) UpdateOvertime(c *gin.Context) {
	var req overtimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.rates.UpdateOvertimePolicy(c.Request.Context(),
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextOrgID),
		req.SaturdayMultiplier, req.SundayMultiplier, req.WeekdayMultiplier)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overtime_policy": policy})
}
