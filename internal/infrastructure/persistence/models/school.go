package models

import (
	"time"

	"github.com/mealfee/backend/internal/domain/school"
)

// AcademicYearModel is the persistence model for school.AcademicYear
type AcademicYearModel struct {
	SchoolAggregateModel
	Name      string    `gorm:"type:varchar(60);not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	IsCurrent bool      `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (AcademicYearModel) TableName() string {
	return "academic_years"
}

// ToDomain converts the model to a domain AcademicYear
func (m *AcademicYearModel) ToDomain() *school.AcademicYear {
	y := &school.AcademicYear{
		Name:      m.Name,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		IsCurrent: m.IsCurrent,
	}
	m.PopulateSchoolAggregateRoot(&y.SchoolAggregateRoot)
	return y
}

// AcademicYearModelFromDomain converts a domain AcademicYear to its model
func AcademicYearModelFromDomain(y *school.AcademicYear) *AcademicYearModel {
	m := &AcademicYearModel{
		Name:      y.Name,
		StartDate: y.StartDate,
		EndDate:   y.EndDate,
		IsCurrent: y.IsCurrent,
	}
	m.FromDomainSchoolAggregateRoot(y.SchoolAggregateRoot)
	return m
}
