package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appbilling "github.com/mealfee/backend/internal/application/billing"
)

// ReportHandler serves billing report exports
type ReportHandler struct {
	BaseHandler
	service *appbilling.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *appbilling.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reports/invoices", h.ExportMonthly)
}

// ExportMonthly handles GET /reports/invoices?year=&month= and streams an
// xlsx workbook.
func (h *ReportHandler) ExportMonthly(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		h.BadRequest(c, "Invalid year")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		h.BadRequest(c, "Invalid month")
		return
	}

	report, err := h.service.ExportMonthly(c.Request.Context(), schoolID, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+report.FileName)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		report.Content)
}
