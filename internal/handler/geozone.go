package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/model"
	"openwfm/api/internal/service"
)

// GeozoneHandler handles geozone management requests
type GeozoneHandler struct {
	zones *service.GeozoneService
}

// NewGeozoneHandler creates a new geozone handler
func NewGeozoneHandler(zones *service.GeozoneService) *GeozoneHandler {
	return &GeozoneHandler{zones: zones}
}

type geozoneRequest struct {
	Name         string            `json:"name" binding:"required"`
	ProjectID    string            `json:"project_id" binding:"required"`
	Polygon      model.PolygonRing `json:"polygon" binding:"required"`
	RadiusMeters *float64          `json:"radius_meters"`
	Color        string            `json:"color"`
}

// Create registers a geozone for a project
// @Summary Create geozone
// @Tags Geozones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param zone body geozoneRequest true "Geozone"
// @Success 201 {object} model.Geozone
// @Failure 400 {object} map[string]string
// @Router /geozones [post]
func (h *GeozoneHandler) Create(c *gin.Context) {
	var req geozoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone := &model.Geozone{
		Name:      req.Name,
		ProjectID: req.ProjectID,
		Polygon:   req.Polygon,
		Color:     req.Color,
		IsActive:  true,
	}
	if req.RadiusMeters != nil {
		zone.RadiusMeters = *req.RadiusMeters
	}

	if err := h.zones.Create(c.Request.Context(), zone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"geozone": zone})
}

// List returns geozones, optionally filtered by project
// @Summary List geozones
// @Tags Geozones
// @Produce json
// @Security BearerAuth
// @Param project_id query string false "Filter by project"
// @Success 200 {object} map[string]interface{}
// @Router /geozones [get]
func (h *GeozoneHandler) List(c *gin.Context) {
	zones, err := h.zones.List(c.Request.Context(), c.Query("project_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geozones": zones, "total": len(zones)})
}

// Get returns one geozone
// @Summary Get geozone
// @Tags Geozones
// @Produce json
// @Security BearerAuth
// @Param id path string true "Geozone ID"
// @Success 200 {object} model.Geozone
// @Failure 404 {object} map[string]string
// @Router /geozones/{id} [get]
func (h *GeozoneHandler) Get(c *gin.Context) {
	zone, err := h.zones.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geozone": zone})
}

type activeRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive activates or deactivates a geozone
// @Summary Set geozone active flag
// @Tags Geozones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Geozone ID"
// @Param request body activeRequest true "Active flag"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /geozones/{id}/active [patch]
func (h *GeozoneHandler) SetActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.zones.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "geozone updated"})
}

type checkRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Check tests whether a point falls inside a geozone
// @Summary Check point against geozone
// @Tags Geozones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Geozone ID"
// @Param request body checkRequest true "Coordinate"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /geozones/{id}/check [post]
func (h *GeozoneHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.zones.CheckPoint(c.Request.Context(), c.Param("id"), req.Lat, req.Lon)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"inside": true})
	case errors.Is(err, service.ErrOutsideGeozone), errors.Is(err, service.ErrGeozoneInactive):
		c.JSON(http.StatusOK, gin.H{"inside": false, "reason": err.Error()})
	default:
		respondError(c, err)
	}
}
