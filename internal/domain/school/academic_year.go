package school

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
)

// AcademicYear is a school year (for example "2025-2026") that payment
// settings attach to.
type AcademicYear struct {
	shared.SchoolAggregateRoot
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}

// NewAcademicYear creates an academic year after validating its date range
func NewAcademicYear(schoolID uuid.UUID, name string, startDate, endDate time.Time) (*AcademicYear, error) {
	if schoolID == uuid.Nil {
		return nil, shared.NewValidationError("School ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewValidationError("Academic year name cannot be empty")
	}
	if endDate.Before(startDate) {
		return nil, shared.NewValidationError("Academic year end must not be before its start")
	}

	return &AcademicYear{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		Name:                name,
		StartDate:           startDate,
		EndDate:             endDate,
	}, nil
}

// Update replaces the year's name and date range
func (a *AcademicYear) Update(name string, startDate, endDate time.Time) error {
	if name == "" {
		return shared.NewValidationError("Academic year name cannot be empty")
	}
	if endDate.Before(startDate) {
		return shared.NewValidationError("Academic year end must not be before its start")
	}
	a.Name = name
	a.StartDate = startDate
	a.EndDate = endDate
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// MarkCurrent flags this year as the school's current one
func (a *AcademicYear) MarkCurrent(current bool) {
	a.IsCurrent = current
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// Contains reports whether a date falls inside the year
func (a *AcademicYear) Contains(t time.Time) bool {
	return !t.Before(a.StartDate) && !t.After(a.EndDate)
}
