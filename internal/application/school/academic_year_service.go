package school

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/school"
	"github.com/mealfee/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SettingReferenceChecker reports whether billing settings still reference an
// academic year. Satisfied by the payment setting repository.
type SettingReferenceChecker interface {
	ExistsForAcademicYear(ctx context.Context, academicYearID uuid.UUID) (bool, error)
}

// AcademicYearService provides application-level academic year operations
type AcademicYearService struct {
	yearRepo   school.AcademicYearRepository
	settingRef SettingReferenceChecker
	logger     *zap.Logger
}

// AcademicYearServiceConfig holds configuration for the service
type AcademicYearServiceConfig struct {
	YearRepo   school.AcademicYearRepository
	SettingRef SettingReferenceChecker
	Logger     *zap.Logger
}

// NewAcademicYearService creates a new AcademicYearService
func NewAcademicYearService(config AcademicYearServiceConfig) *AcademicYearService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{
		yearRepo:   config.YearRepo,
		settingRef: config.SettingRef,
		logger:     logger,
	}
}

// CreateAcademicYearRequest carries the input for creating a year
type CreateAcademicYearRequest struct {
	SchoolID  uuid.UUID `json:"school_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsCurrent bool      `json:"is_current"`
}

// UpdateAcademicYearRequest carries the input for updating a year
type UpdateAcademicYearRequest struct {
	Name      *string    `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsCurrent *bool      `json:"is_current"`
}

// AcademicYearResponse represents an academic year in API responses
type AcademicYearResponse struct {
	ID        uuid.UUID `json:"id"`
	SchoolID  uuid.UUID `json:"school_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAcademicYearResponse(y *school.AcademicYear) *AcademicYearResponse {
	return &AcademicYearResponse{
		ID:        y.ID,
		SchoolID:  y.SchoolID,
		Name:      y.Name,
		StartDate: y.StartDate,
		EndDate:   y.EndDate,
		IsCurrent: y.IsCurrent,
		CreatedAt: y.CreatedAt,
		UpdatedAt: y.UpdatedAt,
	}
}

// Create creates an academic year. Marking it current demotes the previous one.
func (s *AcademicYearService) Create(ctx context.Context, req CreateAcademicYearRequest) (*AcademicYearResponse, error) {
	year, err := school.NewAcademicYear(req.SchoolID, req.Name, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	if req.IsCurrent {
		if err := s.demoteCurrent(ctx, req.SchoolID); err != nil {
			return nil, err
		}
		year.MarkCurrent(true)
	}

	if err := s.yearRepo.Save(ctx, year); err != nil {
		return nil, err
	}

	s.logger.Info("Academic year created",
		zap.String("year_id", year.ID.String()),
		zap.String("name", year.Name))
	return toAcademicYearResponse(year), nil
}

func (s *AcademicYearService) demoteCurrent(ctx context.Context, schoolID uuid.UUID) error {
	current, err := s.yearRepo.FindCurrent(ctx, schoolID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	current.MarkCurrent(false)
	return s.yearRepo.Save(ctx, current)
}

// Get returns an academic year by ID
func (s *AcademicYearService) Get(ctx context.Context, id uuid.UUID) (*AcademicYearResponse, error) {
	year, err := s.yearRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAcademicYearResponse(year), nil
}

// List returns the school's academic years with pagination
func (s *AcademicYearService) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*AcademicYearResponse, int64, error) {
	years, total, err := s.yearRepo.FindBySchool(ctx, schoolID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]*AcademicYearResponse, len(years))
	for i, y := range years {
		responses[i] = toAcademicYearResponse(y)
	}
	return responses, total, nil
}

// Update applies a partial update
func (s *AcademicYearService) Update(ctx context.Context, id uuid.UUID, req UpdateAcademicYearRequest) (*AcademicYearResponse, error) {
	year, err := s.yearRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, start, end := year.Name, year.StartDate, year.EndDate
	if req.Name != nil {
		name = *req.Name
	}
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if err := year.Update(name, start, end); err != nil {
		return nil, err
	}

	if req.IsCurrent != nil && *req.IsCurrent && !year.IsCurrent {
		if err := s.demoteCurrent(ctx, year.SchoolID); err != nil {
			return nil, err
		}
		year.MarkCurrent(true)
	}

	if err := s.yearRepo.Save(ctx, year); err != nil {
		return nil, err
	}
	return toAcademicYearResponse(year), nil
}

// Delete removes an academic year. Years still referenced by payment
// settings cannot be deleted.
func (s *AcademicYearService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.yearRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if s.settingRef != nil {
		referenced, err := s.settingRef.ExistsForAcademicYear(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return shared.NewConflictError("Academic year is referenced by payment settings and cannot be deleted")
		}
	}
	if err := s.yearRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Academic year deleted", zap.String("year_id", id.String()))
	return nil
}
