package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appschool "github.com/mealfee/backend/internal/application/school"
	"github.com/mealfee/backend/internal/interfaces/http/dto"
)

// AcademicYearHandler serves academic year endpoints
type AcademicYearHandler struct {
	BaseHandler
	service *appschool.AcademicYearService
}

// NewAcademicYearHandler creates a new AcademicYearHandler
func NewAcademicYearHandler(service *appschool.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{service: service}
}

// RegisterRoutes registers academic year routes
func (h *AcademicYearHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/academic-years")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}

type createAcademicYearRequest struct {
	Name      string `json:"name" binding:"required,max=60"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	IsCurrent bool   `json:"is_current"`
}

// Create handles POST /academic-years
func (h *AcademicYearHandler) Create(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}

	var req createAcademicYearRequest
	if !h.BindJSON(c, &req) {
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		h.BadRequest(c, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		h.BadRequest(c, "Invalid end date, expected YYYY-MM-DD")
		return
	}

	resp, err := h.service.Create(c.Request.Context(), appschool.CreateAcademicYearRequest{
		SchoolID:  schoolID,
		Name:      req.Name,
		StartDate: startDate,
		EndDate:   endDate,
		IsCurrent: req.IsCurrent,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /academic-years
func (h *AcademicYearHandler) List(c *gin.Context) {
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

	years, total, err := h.service.List(c.Request.Context(), schoolID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, years, total, filter.Page, filter.PageSize)
}

// Get handles GET /academic-years/:id
func (h *AcademicYearHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid academic year ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type updateAcademicYearRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=60"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	IsCurrent *bool   `json:"is_current"`
}

// Update handles PUT /academic-years/:id
func (h *AcademicYearHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid academic year ID")
		return
	}

	var req updateAcademicYearRequest
	if !h.BindJSON(c, &req) {
		return
	}

	update := appschool.UpdateAcademicYearRequest{
		Name:      req.Name,
		IsCurrent: req.IsCurrent,
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			h.BadRequest(c, "Invalid start date, expected YYYY-MM-DD")
			return
		}
		update.StartDate = &startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			h.BadRequest(c, "Invalid end date, expected YYYY-MM-DD")
			return
		}
		update.EndDate = &endDate
	}

	resp, err := h.service.Update(c.Request.Context(), id, update)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /academic-years/:id
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid academic year ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
