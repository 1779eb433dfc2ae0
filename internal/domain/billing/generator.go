package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// GenerationInput carries everything the generator needs to price one
// student's month. AbsentDays must already be the size of the unioned
// absent-day set for the month, not a sum of overlapping leave spans.
type GenerationInput struct {
	SchoolID    uuid.UUID
	StudentID   uuid.UUID
	Setting     *PaymentSetting
	Year        int
	MonthNo     int
	AbsentDays  int
	HolidayDays int
}

// Generator is the domain service that derives a month's invoice from the
// active payment setting and the reconciled absence count.
type Generator struct{}

// NewGenerator creates an invoice generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the invoice for one student and month.
//
//	amountToPay = max(0, totalAmount - absentDays*pricePerDay - holidayDays*pricePerDay)
//
// The derived amounts are frozen on the invoice; later changes to the
// payment setting never reprice an existing invoice.
func (g *Generator) Generate(in GenerationInput) (*Invoice, error) {
	if in.Setting == nil {
		return nil, shared.NewConfigurationError("No active payment setting for the billing month")
	}
	if !in.Setting.IsActive {
		return nil, shared.NewConfigurationError("Payment setting is inactive")
	}
	if !in.Setting.CoversMonth(in.MonthNo, in.Year) {
		return nil, shared.NewConfigurationError(
			fmt.Sprintf("Payment setting does not cover %04d-%02d", in.Year, in.MonthNo))
	}
	if in.AbsentDays < 0 || in.HolidayDays < 0 {
		return nil, shared.NewValidationError("Deduction day counts cannot be negative")
	}

	price := in.Setting.MealPricePerDay
	deduction := price.Mul(decimal.NewFromInt(int64(in.AbsentDays + in.HolidayDays)))
	amountToPay := in.Setting.TotalAmount.Sub(deduction)
	if amountToPay.IsNegative() {
		amountToPay = decimal.Zero
	}

	dateFrom, dateTo := MonthBounds(in.Year, in.MonthNo)

	return NewInvoice(
		in.SchoolID, in.StudentID, in.Setting.ID,
		in.Year, in.MonthNo,
		dateFrom, dateTo,
		price, in.Setting.TotalAmount,
		in.AbsentDays, in.HolidayDays,
		amountToPay,
	)
}

// MonthBounds returns the first and last calendar day of a month in UTC
func MonthBounds(year, monthNo int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(monthNo), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}
