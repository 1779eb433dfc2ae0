package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// PaymentSettingModel is the persistence model for billing.PaymentSetting
type PaymentSettingModel struct {
	SchoolAggregateModel
	AcademicYearID  uuid.UUID       `gorm:"type:uuid;index"`
	Year            int             `gorm:"not null;index:idx_payment_settings_window"`
	FromMonth       int             `gorm:"not null;index:idx_payment_settings_window"`
	ToMonth         int             `gorm:"not null;index:idx_payment_settings_window"`
	MealPricePerDay decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	IsActive        bool            `gorm:"not null;default:true;index"`
	Note            string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentSettingModel) TableName() string {
	return "payment_settings"
}

// ToDomain converts the model to a domain PaymentSetting
func (m *PaymentSettingModel) ToDomain() *billing.PaymentSetting {
	ps := &billing.PaymentSetting{
		AcademicYearID:  m.AcademicYearID,
		Year:            m.Year,
		FromMonth:       m.FromMonth,
		ToMonth:         m.ToMonth,
		MealPricePerDay: m.MealPricePerDay,
		TotalAmount:     m.TotalAmount,
		IsActive:        m.IsActive,
		Note:            m.Note,
	}
	m.PopulateSchoolAggregateRoot(&ps.SchoolAggregateRoot)
	return ps
}

// PaymentSettingModelFromDomain converts a domain PaymentSetting to its model
func PaymentSettingModelFromDomain(ps *billing.PaymentSetting) *PaymentSettingModel {
	m := &PaymentSettingModel{
		AcademicYearID:  ps.AcademicYearID,
		Year:            ps.Year,
		FromMonth:       ps.FromMonth,
		ToMonth:         ps.ToMonth,
		MealPricePerDay: ps.MealPricePerDay,
		TotalAmount:     ps.TotalAmount,
		IsActive:        ps.IsActive,
		Note:            ps.Note,
	}
	m.FromDomainSchoolAggregateRoot(ps.SchoolAggregateRoot)
	return m
}

// InvoiceModel is the persistence model for billing.Invoice. The unique
// index on (school_id, student_id, year, month_no) makes generation
// idempotent under concurrent runs.
type InvoiceModel struct {
	AggregateModel
	SchoolID         uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_student_month"`
	CreatedBy        *uuid.UUID             `gorm:"type:uuid"`
	InvoiceCode      string                 `gorm:"type:varchar(40);not null;uniqueIndex"`
	StudentID        uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_student_month"`
	PaymentSettingID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Year             int                    `gorm:"not null;uniqueIndex:idx_invoices_student_month"`
	MonthNo          int                    `gorm:"not null;uniqueIndex:idx_invoices_student_month"`
	DateFrom         time.Time              `gorm:"not null"`
	DateTo           time.Time              `gorm:"not null"`
	MealPricePerDay  decimal.Decimal        `gorm:"type:numeric(14,2);not null"`
	TotalAmount      decimal.Decimal        `gorm:"type:numeric(14,2);not null"`
	AbsentDays       int                    `gorm:"not null;default:0"`
	HolidayDays      int                    `gorm:"not null;default:0"`
	AbsentDeduction  decimal.Decimal        `gorm:"type:numeric(14,2);not null"`
	HolidayDeduction decimal.Decimal        `gorm:"type:numeric(14,2);not null"`
	AmountToPay      decimal.Decimal        `gorm:"type:numeric(14,2);not null"`
	Status           string                 `gorm:"type:varchar(20);not null;index"`
	NeedsReview      bool                   `gorm:"not null;default:false;index"`
	PaymentEntries   billing.PaymentEntries `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceCode:      m.InvoiceCode,
		StudentID:        m.StudentID,
		PaymentSettingID: m.PaymentSettingID,
		Year:             m.Year,
		MonthNo:          m.MonthNo,
		DateFrom:         m.DateFrom,
		DateTo:           m.DateTo,
		MealPricePerDay:  m.MealPricePerDay,
		TotalAmount:      m.TotalAmount,
		AbsentDays:       m.AbsentDays,
		HolidayDays:      m.HolidayDays,
		AbsentDeduction:  m.AbsentDeduction,
		HolidayDeduction: m.HolidayDeduction,
		AmountToPay:      m.AmountToPay,
		Status:           billing.InvoiceStatus(m.Status),
		NeedsReview:      m.NeedsReview,
		PaymentEntries:   m.PaymentEntries,
	}
	if inv.PaymentEntries == nil {
		inv.PaymentEntries = billing.PaymentEntries{}
	}
	inv.ID = m.ID
	inv.CreatedAt = m.CreatedAt
	inv.UpdatedAt = m.UpdatedAt
	inv.Version = m.Version
	inv.SchoolID = m.SchoolID
	inv.CreatedBy = m.CreatedBy
	return inv
}

// InvoiceModelFromDomain converts a domain Invoice to its model
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		SchoolID:         inv.SchoolID,
		CreatedBy:        inv.CreatedBy,
		InvoiceCode:      inv.InvoiceCode,
		StudentID:        inv.StudentID,
		PaymentSettingID: inv.PaymentSettingID,
		Year:             inv.Year,
		MonthNo:          inv.MonthNo,
		DateFrom:         inv.DateFrom,
		DateTo:           inv.DateTo,
		MealPricePerDay:  inv.MealPricePerDay,
		TotalAmount:      inv.TotalAmount,
		AbsentDays:       inv.AbsentDays,
		HolidayDays:      inv.HolidayDays,
		AbsentDeduction:  inv.AbsentDeduction,
		HolidayDeduction: inv.HolidayDeduction,
		AmountToPay:      inv.AmountToPay,
		Status:           string(inv.Status),
		NeedsReview:      inv.NeedsReview,
		PaymentEntries:   inv.PaymentEntries,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}
