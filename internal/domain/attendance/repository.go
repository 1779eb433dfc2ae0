package attendance

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
)

// LeaveRecordRepository persists leave records. The ledger is append-only:
// records are superseded by new submissions, never deleted.
type LeaveRecordRepository interface {
	Save(ctx context.Context, record *LeaveRecord) error
	FindByStudent(ctx context.Context, schoolID, studentID uuid.UUID, filter shared.Filter) ([]*LeaveRecord, int64, error)

	// FindByStudentMonth returns every record of the student whose span
	// touches the given month, including spans crossing month boundaries.
	FindByStudentMonth(ctx context.Context, schoolID, studentID uuid.UUID, year, monthNo int) ([]*LeaveRecord, error)
}
