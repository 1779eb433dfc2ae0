package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentSetting configures meal pricing for a school over an inclusive
// month range [FromMonth, ToMonth] within one calendar year. At most one
// setting may be active for any given month of a school; the invoice
// generator treats overlap as a configuration error, never a precedence rule.
type PaymentSetting struct {
	shared.SchoolAggregateRoot
	AcademicYearID  uuid.UUID       `json:"academic_year_id"`
	Year            int             `json:"year"`
	FromMonth       int             `json:"from_month"`
	ToMonth         int             `json:"to_month"`
	MealPricePerDay decimal.Decimal `json:"meal_price_per_day"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	IsActive        bool            `json:"is_active"`
	Note            string          `json:"note"`
}

// NewPaymentSetting creates a payment setting after validating its invariants
func NewPaymentSetting(
	schoolID uuid.UUID,
	academicYearID uuid.UUID,
	year, fromMonth, toMonth int,
	mealPricePerDay, totalAmount decimal.Decimal,
	note string,
) (*PaymentSetting, error) {
	if schoolID == uuid.Nil {
		return nil, shared.NewValidationError("School ID cannot be empty")
	}
	if err := validateMonthRange(year, fromMonth, toMonth); err != nil {
		return nil, err
	}
	if mealPricePerDay.IsNegative() {
		return nil, shared.NewValidationError("Meal price per day cannot be negative")
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewValidationError("Total amount cannot be negative")
	}

	return &PaymentSetting{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		AcademicYearID:      academicYearID,
		Year:                year,
		FromMonth:           fromMonth,
		ToMonth:             toMonth,
		MealPricePerDay:     mealPricePerDay,
		TotalAmount:         totalAmount,
		IsActive:            true,
		Note:                note,
	}, nil
}

func validateMonthRange(year, fromMonth, toMonth int) error {
	if year < 2000 || year > 2100 {
		return shared.NewValidationError(fmt.Sprintf("Year %d is out of range", year))
	}
	if fromMonth < 1 || fromMonth > 12 {
		return shared.NewValidationError(fmt.Sprintf("From month %d is out of range", fromMonth))
	}
	if toMonth < 1 || toMonth > 12 {
		return shared.NewValidationError(fmt.Sprintf("To month %d is out of range", toMonth))
	}
	if fromMonth > toMonth {
		return shared.NewValidationError("From month must not be after to month")
	}
	return nil
}

// UpdatePricing replaces the monetary fields
func (ps *PaymentSetting) UpdatePricing(mealPricePerDay, totalAmount decimal.Decimal) error {
	if mealPricePerDay.IsNegative() {
		return shared.NewValidationError("Meal price per day cannot be negative")
	}
	if totalAmount.IsNegative() {
		return shared.NewValidationError("Total amount cannot be negative")
	}
	ps.MealPricePerDay = mealPricePerDay
	ps.TotalAmount = totalAmount
	ps.touch()
	return nil
}

// UpdateMonthRange replaces the billing window
func (ps *PaymentSetting) UpdateMonthRange(year, fromMonth, toMonth int) error {
	if err := validateMonthRange(year, fromMonth, toMonth); err != nil {
		return err
	}
	ps.Year = year
	ps.FromMonth = fromMonth
	ps.ToMonth = toMonth
	ps.touch()
	return nil
}

// SetActive toggles the active flag
func (ps *PaymentSetting) SetActive(active bool) {
	ps.IsActive = active
	ps.touch()
}

// SetNote sets the free-text note
func (ps *PaymentSetting) SetNote(note string) {
	ps.Note = note
	ps.touch()
}

// CoversMonth reports whether the setting's window includes the given month
func (ps *PaymentSetting) CoversMonth(month, year int) bool {
	return ps.Year == year && ps.FromMonth <= month && month <= ps.ToMonth
}

// Overlaps reports whether two settings share at least one month of the same
// year. Used to reject a second active setting for an already-priced month.
func (ps *PaymentSetting) Overlaps(other *PaymentSetting) bool {
	if ps.Year != other.Year {
		return false
	}
	return ps.FromMonth <= other.ToMonth && other.FromMonth <= ps.ToMonth
}

func (ps *PaymentSetting) touch() {
	ps.UpdatedAt = time.Now()
	ps.IncrementVersion()
}
