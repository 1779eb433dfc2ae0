package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appbilling "github.com/mealfee/backend/internal/application/billing"
	"github.com/mealfee/backend/internal/interfaces/http/dto"
)

// PaymentSettingHandler serves payment setting endpoints
type PaymentSettingHandler struct {
	BaseHandler
	service *appbilling.PaymentSettingService
}

// NewPaymentSettingHandler creates a new PaymentSettingHandler
func NewPaymentSettingHandler(service *appbilling.PaymentSettingService) *PaymentSettingHandler {
	return &PaymentSettingHandler{service: service}
}

// RegisterRoutes registers payment setting routes
func (h *PaymentSettingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/payment-settings")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/active", h.GetActive)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}

type createPaymentSettingRequest struct {
	AcademicYearID  string `json:"academic_year_id" binding:"omitempty,uuid"`
	Year            int    `json:"year" binding:"required,min=2000,max=2100"`
	FromMonth       int    `json:"from_month" binding:"required,min=1,max=12"`
	ToMonth         int    `json:"to_month" binding:"required,min=1,max=12"`
	MealPricePerDay string `json:"meal_price_per_day" binding:"required"`
	TotalAmount     string `json:"total_amount" binding:"required"`
	Note            string `json:"note" binding:"max=500"`
}

// Create handles POST /payment-settings
func (h *PaymentSettingHandler) Create(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}

	var req createPaymentSettingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	price, err := decimal.NewFromString(req.MealPricePerDay)
	if err != nil {
		h.BadRequest(c, "Invalid meal price per day")
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		h.BadRequest(c, "Invalid total amount")
		return
	}

	var academicYearID uuid.UUID
	if req.AcademicYearID != "" {
		academicYearID, _ = uuid.Parse(req.AcademicYearID)
	}

	resp, err := h.service.Create(c.Request.Context(), appbilling.CreatePaymentSettingRequest{
		SchoolID:        schoolID,
		AcademicYearID:  academicYearID,
		Year:            req.Year,
		FromMonth:       req.FromMonth,
		ToMonth:         req.ToMonth,
		MealPricePerDay: price,
		TotalAmount:     total,
		Note:            req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /payment-settings
func (h *PaymentSettingHandler) List(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	filter := listReq.ToFilter()

	settings, total, err := h.service.List(c.Request.Context(), schoolID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, settings, total, filter.Page, filter.PageSize)
}

// GetActive handles GET /payment-settings/active?year=&month=
func (h *PaymentSettingHandler) GetActive(c *gin.Context) {
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

	resp, err := h.service.GetActiveFor(c.Request.Context(), schoolID, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get handles GET /payment-settings/:id
func (h *PaymentSettingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment setting ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type updatePaymentSettingRequest struct {
	Year            *int    `json:"year" binding:"omitempty,min=2000,max=2100"`
	FromMonth       *int    `json:"from_month" binding:"omitempty,min=1,max=12"`
	ToMonth         *int    `json:"to_month" binding:"omitempty,min=1,max=12"`
	MealPricePerDay *string `json:"meal_price_per_day"`
	TotalAmount     *string `json:"total_amount"`
	IsActive        *bool   `json:"is_active"`
	Note            *string `json:"note" binding:"omitempty,max=500"`
}

// Update handles PUT /payment-settings/:id
func (h *PaymentSettingHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment setting ID")
		return
	}

	var req updatePaymentSettingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	update := appbilling.UpdatePaymentSettingRequest{
		Year:      req.Year,
		FromMonth: req.FromMonth,
		ToMonth:   req.ToMonth,
		IsActive:  req.IsActive,
		Note:      req.Note,
	}
	if req.MealPricePerDay != nil {
		price, err := decimal.NewFromString(*req.MealPricePerDay)
		if err != nil {
			h.BadRequest(c, "Invalid meal price per day")
			return
		}
		update.MealPricePerDay = &price
	}
	if req.TotalAmount != nil {
		total, err := decimal.NewFromString(*req.TotalAmount)
		if err != nil {
			h.BadRequest(c, "Invalid total amount")
			return
		}
		update.TotalAmount = &total
	}

	resp, err := h.service.Update(c.Request.Context(), id, update)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /payment-settings/:id
func (h *PaymentSettingHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment setting ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
