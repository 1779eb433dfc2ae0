package attendance

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
)

// LeaveRecord is one reported absence span for a student. Spans may overlap
// freely; billing counts distinct absent days, never span lengths.
type LeaveRecord struct {
	shared.SchoolAggregateRoot
	StudentID  uuid.UUID `json:"student_id"`
	NotifiedBy uuid.UUID `json:"notified_by"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Reason     string    `json:"reason"`
}

// NewLeaveRecord creates a leave record after validating the date span.
// NotifiedBy identifies who reported the absence, usually a parent.
func NewLeaveRecord(schoolID, studentID, notifiedBy uuid.UUID, startDate, endDate time.Time, reason string) (*LeaveRecord, error) {
	if schoolID == uuid.Nil {
		return nil, shared.NewValidationError("School ID cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewValidationError("Student ID cannot be empty")
	}
	if notifiedBy == uuid.Nil {
		return nil, shared.NewValidationError("Notifier ID cannot be empty")
	}
	startDate = truncateToDay(startDate)
	endDate = truncateToDay(endDate)
	if endDate.Before(startDate) {
		return nil, shared.NewValidationError("Leave end date must not be before its start date")
	}

	record := &LeaveRecord{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		StudentID:           studentID,
		NotifiedBy:          notifiedBy,
		StartDate:           startDate,
		EndDate:             endDate,
		Reason:              reason,
	}
	record.SetCreatedBy(notifiedBy)
	return record, nil
}

// Days returns the inclusive length of the span in calendar days
func (l *LeaveRecord) Days() int {
	return int(l.EndDate.Sub(l.StartDate).Hours()/24) + 1
}

// OverlapsMonth reports whether the span touches the given month
func (l *LeaveRecord) OverlapsMonth(year, monthNo int) bool {
	from := time.Date(year, time.Month(monthNo), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return !l.StartDate.After(to) && !l.EndDate.Before(from)
}

// CountAbsentDays returns the number of distinct calendar days inside the
// given month covered by at least one of the records. Overlapping spans are
// unioned, so a day reported twice deducts once.
func CountAbsentDays(records []*LeaveRecord, year, monthNo int) int {
	monthStart := time.Date(year, time.Month(monthNo), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	days := make(map[time.Time]struct{})
	for _, r := range records {
		start := r.StartDate
		if start.Before(monthStart) {
			start = monthStart
		}
		end := r.EndDate
		if end.After(monthEnd) {
			end = monthEnd
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			days[d] = struct{}{}
		}
	}
	return len(days)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
