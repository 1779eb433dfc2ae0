package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/attendance"
	"github.com/mealfee/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LeaveService provides application-level leave record operations
type LeaveService struct {
	leaveRepo attendance.LeaveRecordRepository
	logger    *zap.Logger
}

// LeaveServiceConfig holds configuration for the leave service
type LeaveServiceConfig struct {
	LeaveRepo attendance.LeaveRecordRepository
	Logger    *zap.Logger
}

// NewLeaveService creates a new LeaveService
func NewLeaveService(config LeaveServiceConfig) *LeaveService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		leaveRepo: config.LeaveRepo,
		logger:    logger,
	}
}

// CreateLeaveRequest reports an absence span for a student
type CreateLeaveRequest struct {
	SchoolID   uuid.UUID `json:"school_id" validate:"required"`
	StudentID  uuid.UUID `json:"student_id" validate:"required"`
	NotifiedBy uuid.UUID `json:"notified_by" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	Reason     string    `json:"reason"`
}

// LeaveRecordResponse represents a leave record in API responses
type LeaveRecordResponse struct {
	ID         uuid.UUID `json:"id"`
	SchoolID   uuid.UUID `json:"school_id"`
	StudentID  uuid.UUID `json:"student_id"`
	NotifiedBy uuid.UUID `json:"notified_by"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Days       int       `json:"days"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toLeaveRecordResponse(r *attendance.LeaveRecord) *LeaveRecordResponse {
	return &LeaveRecordResponse{
		ID:         r.ID,
		SchoolID:   r.SchoolID,
		StudentID:  r.StudentID,
		NotifiedBy: r.NotifiedBy,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Days:       r.Days(),
		Reason:     r.Reason,
		CreatedAt:  r.CreatedAt,
	}
}

// Create records a leave span. Overlap with existing records is allowed;
// billing unions the days at generation time.
func (s *LeaveService) Create(ctx context.Context, req CreateLeaveRequest) (*LeaveRecordResponse, error) {
	record, err := attendance.NewLeaveRecord(req.SchoolID, req.StudentID, req.NotifiedBy, req.StartDate, req.EndDate, req.Reason)
	if err != nil {
		return nil, err
	}

	if err := s.leaveRepo.Save(ctx, record); err != nil {
		s.logger.Error("Failed to save leave record",
			zap.String("student_id", req.StudentID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Leave record created",
		zap.String("student_id", req.StudentID.String()),
		zap.Time("start_date", record.StartDate),
		zap.Time("end_date", record.EndDate))

	return toLeaveRecordResponse(record), nil
}

// ListByStudent lists a student's leave records with pagination
func (s *LeaveService) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID, filter shared.Filter) ([]*LeaveRecordResponse, int64, error) {
	records, total, err := s.leaveRepo.FindByStudent(ctx, schoolID, studentID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]*LeaveRecordResponse, len(records))
	for i, r := range records {
		responses[i] = toLeaveRecordResponse(r)
	}
	return responses, total, nil
}

// CountAbsentDaysForMonth returns the student's distinct absent days in a month
func (s *LeaveService) CountAbsentDaysForMonth(ctx context.Context, schoolID, studentID uuid.UUID, year, monthNo int) (int, error) {
	records, err := s.leaveRepo.FindByStudentMonth(ctx, schoolID, studentID, year, monthNo)
	if err != nil {
		return 0, err
	}
	return attendance.CountAbsentDays(records, year, monthNo), nil
}
