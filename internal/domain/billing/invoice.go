package billing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment state of a monthly meal-fee invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "unpaid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
)

// IsValid checks if the status is a known value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid:
		return true
	}
	return false
}

// CanAcceptPayment reports whether further payments may be recorded.
// Paid invoices still accept entries (overpayment or correction) but the
// result is flagged for review.
func (s InvoiceStatus) CanAcceptPayment() bool {
	return s.IsValid()
}

// PaymentEntry is a single payment recorded against an invoice. Entries are
// append-only; corrections are new entries with a negative amount and a note.
type PaymentEntry struct {
	ID                    uuid.UUID       `json:"id"`
	Amount                decimal.Decimal `json:"amount"`
	Method                string          `json:"method"`
	GatewayTransactionRef string          `json:"gateway_transaction_ref,omitempty"`
	Note                  string          `json:"note,omitempty"`
	PaidAt                time.Time       `json:"paid_at"`
	RecordedAt            time.Time       `json:"recorded_at"`
}

// PaymentEntries is stored as a JSONB column on the invoice row
type PaymentEntries []PaymentEntry

// Value implements driver.Valuer for database storage
func (p PaymentEntries) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (p *PaymentEntries) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentEntries{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into PaymentEntries", value)
	}
}

// Total sums all entries, corrections included
func (p PaymentEntries) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p {
		total = total.Add(e.Amount)
	}
	return total
}

// HasTransactionRef reports whether a gateway transaction reference was
// already recorded. Empty refs (manual entries) never match.
func (p PaymentEntries) HasTransactionRef(ref string) bool {
	if ref == "" {
		return false
	}
	for _, e := range p {
		if e.GatewayTransactionRef == ref {
			return true
		}
	}
	return false
}

// Invoice is the monthly meal-fee receivable for one student. Its derived
// amounts are fixed at generation time; payment entries accumulate against it.
type Invoice struct {
	shared.SchoolAggregateRoot
	InvoiceCode      string          `json:"invoice_code"`
	StudentID        uuid.UUID       `json:"student_id"`
	PaymentSettingID uuid.UUID       `json:"payment_setting_id"`
	Year             int             `json:"year"`
	MonthNo          int             `json:"month_no"`
	DateFrom         time.Time       `json:"date_from"`
	DateTo           time.Time       `json:"date_to"`
	MealPricePerDay  decimal.Decimal `json:"meal_price_per_day"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AbsentDays       int             `json:"absent_days"`
	HolidayDays      int             `json:"holiday_days"`
	AbsentDeduction  decimal.Decimal `json:"absent_deduction"`
	HolidayDeduction decimal.Decimal `json:"holiday_deduction"`
	AmountToPay      decimal.Decimal `json:"amount_to_pay"`
	Status           InvoiceStatus   `json:"status"`
	NeedsReview      bool            `json:"needs_review"`
	PaymentEntries   PaymentEntries  `json:"payment_entries"`
}

// NewInvoice creates an invoice with precomputed billing amounts.
// Callers normally go through the Generator, which derives the amounts
// from the active payment setting and the student's leave records.
func NewInvoice(
	schoolID, studentID, paymentSettingID uuid.UUID,
	year, monthNo int,
	dateFrom, dateTo time.Time,
	mealPricePerDay, totalAmount decimal.Decimal,
	absentDays, holidayDays int,
	amountToPay decimal.Decimal,
) (*Invoice, error) {
	if schoolID == uuid.Nil {
		return nil, shared.NewValidationError("School ID cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewValidationError("Student ID cannot be empty")
	}
	if monthNo < 1 || monthNo > 12 {
		return nil, shared.NewValidationError(fmt.Sprintf("Month %d is out of range", monthNo))
	}
	if dateTo.Before(dateFrom) {
		return nil, shared.NewValidationError("Invoice period end must not be before its start")
	}
	if absentDays < 0 || holidayDays < 0 {
		return nil, shared.NewValidationError("Deduction day counts cannot be negative")
	}
	if amountToPay.IsNegative() {
		return nil, shared.NewValidationError("Amount to pay cannot be negative")
	}

	inv := &Invoice{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		InvoiceCode:         generateInvoiceCode(year, monthNo),
		StudentID:           studentID,
		PaymentSettingID:    paymentSettingID,
		Year:                year,
		MonthNo:             monthNo,
		DateFrom:            dateFrom,
		DateTo:              dateTo,
		MealPricePerDay:     mealPricePerDay,
		TotalAmount:         totalAmount,
		AbsentDays:          absentDays,
		HolidayDays:         holidayDays,
		AbsentDeduction:     mealPricePerDay.Mul(decimal.NewFromInt(int64(absentDays))),
		HolidayDeduction:    mealPricePerDay.Mul(decimal.NewFromInt(int64(holidayDays))),
		AmountToPay:         amountToPay,
		Status:              InvoiceStatusUnpaid,
		PaymentEntries:      PaymentEntries{},
	}
	if amountToPay.IsZero() {
		inv.Status = InvoiceStatusPaid
	}
	return inv, nil
}

func generateInvoiceCode(year, monthNo int) string {
	return fmt.Sprintf("INV-%04d%02d-%s", year, monthNo, uuid.New().String()[:8])
}

// PaidAmount returns the sum of all payment entries
func (i *Invoice) PaidAmount() decimal.Decimal {
	return i.PaymentEntries.Total()
}

// OutstandingAmount returns the remaining balance, floored at zero
func (i *Invoice) OutstandingAmount() decimal.Decimal {
	out := i.AmountToPay.Sub(i.PaidAmount())
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// RecordPayment appends a payment entry and recomputes the invoice status.
// A duplicate gateway transaction ref is rejected with a CONFLICT so the
// caller can treat a redelivered webhook as already processed.
// Corrections are negative amounts and require a note; the resulting paid
// total must not fall below zero.
func (i *Invoice) RecordPayment(amount decimal.Decimal, method, gatewayTransactionRef, note string, paidAt time.Time) (*PaymentEntry, error) {
	if amount.IsZero() {
		return nil, shared.NewValidationError("Payment amount cannot be zero")
	}
	if method == "" {
		return nil, shared.NewValidationError("Payment method cannot be empty")
	}
	if i.PaymentEntries.HasTransactionRef(gatewayTransactionRef) {
		return nil, shared.NewConflictError(
			fmt.Sprintf("Transaction %s was already recorded on invoice %s", gatewayTransactionRef, i.InvoiceCode))
	}
	if amount.IsNegative() {
		if note == "" {
			return nil, shared.NewValidationError("A correction entry requires a note")
		}
		if i.PaidAmount().Add(amount).IsNegative() {
			return nil, shared.NewValidationError("Correction would make the paid total negative")
		}
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	entry := PaymentEntry{
		ID:                    uuid.New(),
		Amount:                amount,
		Method:                method,
		GatewayTransactionRef: gatewayTransactionRef,
		Note:                  note,
		PaidAt:                paidAt,
		RecordedAt:            time.Now(),
	}
	i.PaymentEntries = append(i.PaymentEntries, entry)
	i.recomputeStatus()
	i.touch()
	return &entry, nil
}

// recomputeStatus derives the status from the full payment sum rather than
// transitioning from the previous status, so corrections settle correctly.
func (i *Invoice) recomputeStatus() {
	paid := i.PaidAmount()
	switch {
	case paid.GreaterThanOrEqual(i.AmountToPay) && i.AmountToPay.IsPositive():
		i.Status = InvoiceStatusPaid
	case i.AmountToPay.IsZero():
		i.Status = InvoiceStatusPaid
	case paid.IsPositive():
		i.Status = InvoiceStatusPartiallyPaid
	default:
		i.Status = InvoiceStatusUnpaid
	}
	if paid.GreaterThan(i.AmountToPay) {
		i.NeedsReview = true
	}
}

// Reprice replaces the derived billing amounts with freshly computed ones,
// picking up leave records submitted after generation. An invoice with
// payments recorded keeps its amounts; the figure underlying past payments
// must stay stable once money has moved.
func (i *Invoice) Reprice(mealPricePerDay, totalAmount decimal.Decimal, absentDays, holidayDays int, amountToPay decimal.Decimal) error {
	if len(i.PaymentEntries) > 0 {
		return shared.NewConflictError(
			fmt.Sprintf("Invoice %s already has payments recorded and cannot be regenerated", i.InvoiceCode))
	}
	if absentDays < 0 || holidayDays < 0 {
		return shared.NewValidationError("Deduction day counts cannot be negative")
	}
	if amountToPay.IsNegative() {
		return shared.NewValidationError("Amount to pay cannot be negative")
	}

	i.MealPricePerDay = mealPricePerDay
	i.TotalAmount = totalAmount
	i.AbsentDays = absentDays
	i.HolidayDays = holidayDays
	i.AbsentDeduction = mealPricePerDay.Mul(decimal.NewFromInt(int64(absentDays)))
	i.HolidayDeduction = mealPricePerDay.Mul(decimal.NewFromInt(int64(holidayDays)))
	i.AmountToPay = amountToPay
	i.recomputeStatus()
	i.touch()
	return nil
}

// MarkReviewed clears the review flag once an operator has reconciled the
// overpayment out of band.
func (i *Invoice) MarkReviewed() {
	i.NeedsReview = false
	i.touch()
}

// IsSettled reports whether the invoice is fully paid
func (i *Invoice) IsSettled() bool {
	return i.Status == InvoiceStatusPaid
}

func (i *Invoice) touch() {
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}
