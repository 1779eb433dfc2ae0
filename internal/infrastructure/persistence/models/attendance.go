package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/attendance"
)

// LeaveRecordModel is the persistence model for attendance.LeaveRecord
type LeaveRecordModel struct {
	SchoolAggregateModel
	StudentID  uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_records_student_dates"`
	NotifiedBy uuid.UUID `gorm:"type:uuid;not null"`
	StartDate  time.Time `gorm:"not null;index:idx_leave_records_student_dates"`
	EndDate    time.Time `gorm:"not null;index:idx_leave_records_student_dates"`
	Reason     string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LeaveRecordModel) TableName() string {
	return "leave_records"
}

// ToDomain converts the model to a domain LeaveRecord
func (m *LeaveRecordModel) ToDomain() *attendance.LeaveRecord {
	r := &attendance.LeaveRecord{
		StudentID:  m.StudentID,
		NotifiedBy: m.NotifiedBy,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		Reason:     m.Reason,
	}
	m.PopulateSchoolAggregateRoot(&r.SchoolAggregateRoot)
	return r
}

// LeaveRecordModelFromDomain converts a domain LeaveRecord to its model
func LeaveRecordModelFromDomain(r *attendance.LeaveRecord) *LeaveRecordModel {
	m := &LeaveRecordModel{
		StudentID:  r.StudentID,
		NotifiedBy: r.NotifiedBy,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Reason:     r.Reason,
	}
	m.FromDomainSchoolAggregateRoot(r.SchoolAggregateRoot)
	return m
}
