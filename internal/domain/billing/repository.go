package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
)

// PaymentSettingRepository persists payment settings
type PaymentSettingRepository interface {
	Save(ctx context.Context, setting *PaymentSetting) error
	SaveWithLock(ctx context.Context, setting *PaymentSetting) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentSetting, error)
	FindBySchool(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*PaymentSetting, int64, error)

	// FindActiveForMonth returns every active setting whose window covers the
	// month. The service layer turns zero or multiple results into a
	// configuration error; the repository just reports what exists.
	FindActiveForMonth(ctx context.Context, schoolID uuid.UUID, year, monthNo int) ([]*PaymentSetting, error)

	// ExistsForAcademicYear reports whether any setting references the
	// academic year. Referenced years cannot be deleted.
	ExistsForAcademicYear(ctx context.Context, academicYearID uuid.UUID) (bool, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock persists the invoice only if its stored version matches,
	// returning shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByCode(ctx context.Context, invoiceCode string) (*Invoice, error)

	// FindByStudentMonth locates the unique invoice for one student and month
	FindByStudentMonth(ctx context.Context, schoolID, studentID uuid.UUID, year, monthNo int) (*Invoice, error)

	// FindByMonth lists all invoices of a school for one billing month
	FindByMonth(ctx context.Context, schoolID uuid.UUID, year, monthNo int, filter shared.Filter) ([]*Invoice, int64, error)

	// FindUnpaidByStudent lists the student's invoices that still carry a balance
	FindUnpaidByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*Invoice, error)

	// ExistsPaidForSetting reports whether any invoice generated from the
	// setting has received payment. Such settings cannot be deleted.
	ExistsPaidForSetting(ctx context.Context, settingID uuid.UUID) (bool, error)
}
