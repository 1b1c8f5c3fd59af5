package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"openwfm/api/internal/middleware"
	"openwfm/api/internal/model"
	"openwfm/api/internal/service"
)

// AllocationHandler handles worker-to-project allocation requests
type AllocationHandler struct {
	allocations *service.AllocationService
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(allocations *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

type allocationRequest struct {
	UserID        string          `json:"user_id" binding:"required"`
	ProjectID     string          `json:"project_id" binding:"required"`
	RoleOnProject string          `json:"role_on_project"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
}

// Create assigns a worker to a project at an hourly cost rate
// @Summary Create allocation
// @Tags Allocations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param allocation body allocationRequest true "Allocation"
// @Success 201 {object} model.Allocation
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /allocations [post]
func (h *AllocationHandler) Create(c *gin.Context) {
	var req allocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alloc := &model.Allocation{
		UserID:        req.UserID,
		ProjectID:     req.ProjectID,
		RoleOnProject: req.RoleOnProject,
		HourlyRate:    req.HourlyRate,
		EndDate:       req.EndDate,
	}
	if req.StartDate != nil {
		alloc.StartDate = *req.StartDate
	} else {
		alloc.StartDate = time.Now()
	}
	err := h.allocations.Create(c.Request.Context(),
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextOrgID), alloc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"allocation": alloc})
}

// List returns active allocations in the organization
// @Summary List allocations
// @Tags Allocations
// @Produce json
// @Security BearerAuth
// @Param project_id query string false "Filter by project"
// @Param user_id query string false "Filter by worker"
// @Success 200 {object} map[string]interface{}
// @Router /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	allocs, err := h.allocations.List(c.Request.Context(),
		c.GetString(middleware.ContextOrgID), c.Query("project_id"), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocs, "total": len(allocs)})
}

// Deactivate ends an allocation
// @Summary Remove allocation
// @Tags Allocations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Allocation ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /allocations/{id} [delete]
func (h *AllocationHandler) Deactivate(c *gin.Context) {
	err := h.allocations.Deactivate(c.Request.Context(),
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextOrgID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "allocation removed"})
}
