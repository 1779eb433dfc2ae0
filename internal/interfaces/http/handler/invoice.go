package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/mealfee/backend/internal/application/billing"
	"github.com/mealfee/backend/internal/interfaces/http/dto"
)

// InvoiceHandler serves invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	service *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/invoices")
	{
		group.POST("/generate", h.Generate)
		group.GET("", h.ListByMonth)
		group.GET("/:id", h.Get)
		group.POST("/:id/regenerate", h.Regenerate)
		group.POST("/:id/review", h.MarkReviewed)
	}
	rg.GET("/students/:studentId/invoices/unpaid", h.ListUnpaid)
}

type generateInvoicesRequest struct {
	StudentIDs  []string `json:"student_ids" binding:"required,min=1,dive,uuid"`
	Year        int      `json:"year" binding:"required,min=2000,max=2100"`
	MonthNo     int      `json:"month_no" binding:"required,min=1,max=12"`
	HolidayDays int      `json:"holiday_days" binding:"min=0"`
}

// Generate handles POST /invoices/generate
func (h *InvoiceHandler) Generate(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}

	var req generateInvoicesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	studentIDs := make([]uuid.UUID, len(req.StudentIDs))
	for i, s := range req.StudentIDs {
		studentIDs[i], _ = uuid.Parse(s)
	}

	resp, err := h.service.Generate(c.Request.Context(), appbilling.GenerateInvoicesRequest{
		SchoolID:    schoolID,
		StudentIDs:  studentIDs,
		Year:        req.Year,
		MonthNo:     req.MonthNo,
		HolidayDays: req.HolidayDays,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByMonth handles GET /invoices?year=&month=
func (h *InvoiceHandler) ListByMonth(c *gin.Context) {
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

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	filter := listReq.ToFilter()

	invoices, total, err := h.service.ListByMonth(c.Request.Context(), schoolID, year, month, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Get handles GET /invoices/:id with an optional student_id scope
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var resp *appbilling.InvoiceResponse
	if raw := c.Query("student_id"); raw != "" {
		studentID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid student ID")
			return
		}
		resp, err = h.service.GetForStudent(c.Request.Context(), id, studentID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
	} else {
		resp, err = h.service.Get(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
	}
	h.Success(c, resp)
}

// ListUnpaid handles GET /students/:studentId/invoices/unpaid
func (h *InvoiceHandler) ListUnpaid(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		h.BadRequest(c, "Invalid student ID")
		return
	}

	invoices, err := h.service.ListUnpaidByStudent(c.Request.Context(), schoolID, studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}

type regenerateInvoiceRequest struct {
	HolidayDays int `json:"holiday_days" binding:"min=0"`
}

// Regenerate handles POST /invoices/:id/regenerate
func (h *InvoiceHandler) Regenerate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req regenerateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Regenerate(c.Request.Context(), appbilling.RegenerateInvoiceRequest{
		InvoiceID:   id,
		HolidayDays: req.HolidayDays,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkReviewed handles POST /invoices/:id/review
func (h *InvoiceHandler) MarkReviewed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	resp, err := h.service.MarkReviewed(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
