package school

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
)

// AcademicYearRepository persists academic years
type AcademicYearRepository interface {
	Save(ctx context.Context, year *AcademicYear) error
	FindByID(ctx context.Context, id uuid.UUID) (*AcademicYear, error)
	FindBySchool(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*AcademicYear, int64, error)
	FindCurrent(ctx context.Context, schoolID uuid.UUID) (*AcademicYear, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
