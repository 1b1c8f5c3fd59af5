package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/middleware"
	"openwfm/api/internal/service"
)

// FinancialHandler handles financial aggregation and payroll export requests
type FinancialHandler struct {
	financials *service.FinancialService
}

// NewFinancialHandler creates a new financial handler
func NewFinancialHandler(financials *service.FinancialService) *FinancialHandler {
	return &FinancialHandler{financials: financials}
}

func (h *FinancialHandler) scope(c *gin.Context) service.Scope {
	return service.Scope{
		OrgID:     c.GetString(middleware.ContextOrgID),
		ProjectID: c.Query("project_id"),
		UserID:    c.Query("user_id"),
	}
}

// dateRange reads from/to query params, defaulting to the current month.
func dateRange(c *gin.Context) (string, string) {
	now := time.Now().UTC()
	from := c.DefaultQuery("from", now.Format("2006-01")+"-01")
	to := c.DefaultQuery("to", now.Format("2006-01-02"))
	return from, to
}

// Summary returns aggregated revenue, cost and margin for a period
// @Summary Financial summary
// @Description Aggregate revenue, labour cost, margin and breakdowns over closed sessions
// @Tags Financials
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Param project_id query string false "Filter by project"
// @Param user_id query string false "Filter by worker"
// @Success 200 {object} service.Summary
// @Router /financials/summary [get]
func (h *FinancialHandler) Summary(c *gin.Context) {
	from, to := dateRange(c)
	summary, err := h.financials.Summary(c.Request.Context(), h.scope(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Trend returns revenue/cost buckets over time
// @Summary Financial trend
// @Tags Financials
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Param group_by query string false "Bucket size: month or week" default(month)
// @Success 200 {object} map[string]interface{}
// @Router /financials/trend [get]
func (h *FinancialHandler) Trend(c *gin.Context) {
	from, to := dateRange(c)
	groupBy := c.DefaultQuery("group_by", "month")
	if groupBy != "month" && groupBy != "week" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_by must be month or week"})
		return
	}

	points, err := h.financials.Trend(c.Request.Context(), h.scope(c), from, to, groupBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trend": points, "group_by": groupBy})
}

// PayrollExport streams the payroll report as CSV or XLSX
// @Summary Payroll export
// @Description One row per closed session with effective rates applied, ordered by date and clock-in
// @Tags Financials
// @Produce octet-stream
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Router /reports/payroll [get]
func (h *FinancialHandler) PayrollExport(c *gin.Context) {
	from, to := dateRange(c)
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	rows, err := h.financials.PayrollRows(c.Request.Context(), h.scope(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("payroll_%s_%s.%s", from, to, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if format == "xlsx" {
		buf, err := service.PayrollXLSX(rows)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
		return
	}

	data, err := service.PayrollCSV(rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/csv", data)
}
