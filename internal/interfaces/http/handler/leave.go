package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appattendance "github.com/mealfee/backend/internal/application/attendance"
	"github.com/mealfee/backend/internal/interfaces/http/dto"
)

const dateLayout = "2006-01-02"

// LeaveHandler serves leave record endpoints
type LeaveHandler struct {
	BaseHandler
	service *appattendance.LeaveService
}

// NewLeaveHandler creates a new LeaveHandler
func NewLeaveHandler(service *appattendance.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: service}
}

// RegisterRoutes registers leave record routes
func (h *LeaveHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leaves", h.Create)
	rg.GET("/students/:studentId/leaves", h.ListByStudent)
}

type createLeaveRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"max=500"`
}

// Create handles POST /leaves
func (h *LeaveHandler) Create(c *gin.Context) {
	schoolID, err := getSchoolID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid school ID")
		return
	}
	notifiedBy, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid user ID")
		return
	}

	var req createLeaveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	studentID, _ := uuid.Parse(req.StudentID)
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

	resp, err := h.service.Create(c.Request.Context(), appattendance.CreateLeaveRequest{
		SchoolID:   schoolID,
		StudentID:  studentID,
		NotifiedBy: notifiedBy,
		StartDate:  startDate,
		EndDate:    endDate,
		Reason:     req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListByStudent handles GET /students/:studentId/leaves
func (h *LeaveHandler) ListByStudent(c *gin.Context) {
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

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	filter := listReq.ToFilter()

	records, total, err := h.service.ListByStudent(c.Request.Context(), schoolID, studentID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}
