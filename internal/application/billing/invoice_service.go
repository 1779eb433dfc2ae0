package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/attendance"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService generates monthly meal-fee invoices and serves invoice queries
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	settingSvc  *PaymentSettingService
	leaveRepo   attendance.LeaveRecordRepository
	generator   *billing.Generator
	logger      *zap.Logger
}

// InvoiceServiceConfig holds configuration for the invoice service
type InvoiceServiceConfig struct {
	InvoiceRepo billing.InvoiceRepository
	SettingSvc  *PaymentSettingService
	LeaveRepo   attendance.LeaveRecordRepository
	Logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(config InvoiceServiceConfig) *InvoiceService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: config.InvoiceRepo,
		settingSvc:  config.SettingSvc,
		leaveRepo:   config.LeaveRepo,
		generator:   billing.NewGenerator(),
		logger:      logger,
	}
}

// GenerateInvoicesRequest asks for invoice generation for a billing month
type GenerateInvoicesRequest struct {
	SchoolID    uuid.UUID   `json:"school_id" validate:"required"`
	StudentIDs  []uuid.UUID `json:"student_ids" validate:"required,min=1"`
	Year        int         `json:"year" validate:"required"`
	MonthNo     int         `json:"month_no" validate:"required,min=1,max=12"`
	HolidayDays int         `json:"holiday_days" validate:"min=0"`
}

// GenerateInvoicesResponse summarizes one generation run
type GenerateInvoicesResponse struct {
	Generated []*InvoiceResponse `json:"generated"`
	Existing  []*InvoiceResponse `json:"existing"`
}

// PaymentEntryResponse represents one payment entry in API responses
type PaymentEntryResponse struct {
	ID                    uuid.UUID       `json:"id"`
	Amount                decimal.Decimal `json:"amount"`
	Method                string          `json:"method"`
	GatewayTransactionRef string          `json:"gateway_transaction_ref,omitempty"`
	Note                  string          `json:"note,omitempty"`
	PaidAt                time.Time       `json:"paid_at"`
	RecordedAt            time.Time       `json:"recorded_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                uuid.UUID              `json:"id"`
	InvoiceCode       string                 `json:"invoice_code"`
	SchoolID          uuid.UUID              `json:"school_id"`
	StudentID         uuid.UUID              `json:"student_id"`
	PaymentSettingID  uuid.UUID              `json:"payment_setting_id"`
	Year              int                    `json:"year"`
	MonthNo           int                    `json:"month_no"`
	DateFrom          time.Time              `json:"date_from"`
	DateTo            time.Time              `json:"date_to"`
	MealPricePerDay   decimal.Decimal        `json:"meal_price_per_day"`
	TotalAmount       decimal.Decimal        `json:"total_amount"`
	AbsentDays        int                    `json:"absent_days"`
	HolidayDays       int                    `json:"holiday_days"`
	AbsentDeduction   decimal.Decimal        `json:"absent_deduction"`
	HolidayDeduction  decimal.Decimal        `json:"holiday_deduction"`
	AmountToPay       decimal.Decimal        `json:"amount_to_pay"`
	PaidAmount        decimal.Decimal        `json:"paid_amount"`
	OutstandingAmount decimal.Decimal        `json:"outstanding_amount"`
	Status            string                 `json:"status"`
	NeedsReview       bool                   `json:"needs_review"`
	PaymentEntries    []PaymentEntryResponse `json:"payment_entries,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func toInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	entries := make([]PaymentEntryResponse, len(inv.PaymentEntries))
	for i, e := range inv.PaymentEntries {
		entries[i] = PaymentEntryResponse{
			ID:                    e.ID,
			Amount:                e.Amount,
			Method:                e.Method,
			GatewayTransactionRef: e.GatewayTransactionRef,
			Note:                  e.Note,
			PaidAt:                e.PaidAt,
			RecordedAt:            e.RecordedAt,
		}
	}
	return &InvoiceResponse{
		ID:                inv.ID,
		InvoiceCode:       inv.InvoiceCode,
		SchoolID:          inv.SchoolID,
		StudentID:         inv.StudentID,
		PaymentSettingID:  inv.PaymentSettingID,
		Year:              inv.Year,
		MonthNo:           inv.MonthNo,
		DateFrom:          inv.DateFrom,
		DateTo:            inv.DateTo,
		MealPricePerDay:   inv.MealPricePerDay,
		TotalAmount:       inv.TotalAmount,
		AbsentDays:        inv.AbsentDays,
		HolidayDays:       inv.HolidayDays,
		AbsentDeduction:   inv.AbsentDeduction,
		HolidayDeduction:  inv.HolidayDeduction,
		AmountToPay:       inv.AmountToPay,
		PaidAmount:        inv.PaidAmount(),
		OutstandingAmount: inv.OutstandingAmount(),
		Status:            string(inv.Status),
		NeedsReview:       inv.NeedsReview,
		PaymentEntries:    entries,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

// Generate creates invoices for the requested students and month.
// Generation is idempotent per (school, student, year, month): students who
// already have an invoice are reported back unchanged, never re-billed.
// The whole run fails fast on a configuration error so a misconfigured month
// never produces a partially priced batch.
func (s *InvoiceService) Generate(ctx context.Context, req GenerateInvoicesRequest) (*GenerateInvoicesResponse, error) {
	if req.HolidayDays < 0 {
		return nil, shared.NewValidationError("Holiday days cannot be negative")
	}

	setting, err := s.settingSvc.resolveActive(ctx, req.SchoolID, req.Year, req.MonthNo)
	if err != nil {
		return nil, err
	}

	resp := &GenerateInvoicesResponse{
		Generated: []*InvoiceResponse{},
		Existing:  []*InvoiceResponse{},
	}

	for _, studentID := range req.StudentIDs {
		existing, err := s.invoiceRepo.FindByStudentMonth(ctx, req.SchoolID, studentID, req.Year, req.MonthNo)
		if err == nil {
			resp.Existing = append(resp.Existing, toInvoiceResponse(existing))
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		records, err := s.leaveRepo.FindByStudentMonth(ctx, req.SchoolID, studentID, req.Year, req.MonthNo)
		if err != nil {
			return nil, err
		}
		absentDays := attendance.CountAbsentDays(records, req.Year, req.MonthNo)

		invoice, err := s.generator.Generate(billing.GenerationInput{
			SchoolID:    req.SchoolID,
			StudentID:   studentID,
			Setting:     setting,
			Year:        req.Year,
			MonthNo:     req.MonthNo,
			AbsentDays:  absentDays,
			HolidayDays: req.HolidayDays,
		})
		if err != nil {
			return nil, err
		}

		if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
			// A concurrent run may have inserted the same student-month; the
			// unique index makes one writer win, the other reads it back.
			if errors.Is(err, shared.ErrAlreadyExists) {
				won, findErr := s.invoiceRepo.FindByStudentMonth(ctx, req.SchoolID, studentID, req.Year, req.MonthNo)
				if findErr != nil {
					return nil, findErr
				}
				resp.Existing = append(resp.Existing, toInvoiceResponse(won))
				continue
			}
			return nil, err
		}

		s.logger.Info("Invoice generated",
			zap.String("invoice_code", invoice.InvoiceCode),
			zap.String("student_id", studentID.String()),
			zap.Int("absent_days", absentDays),
			zap.String("amount_to_pay", invoice.AmountToPay.String()))
		resp.Generated = append(resp.Generated, toInvoiceResponse(invoice))
	}

	return resp, nil
}

// RegenerateInvoiceRequest asks for a recompute of one invoice's amounts
type RegenerateInvoiceRequest struct {
	InvoiceID   uuid.UUID `json:"invoice_id" validate:"required"`
	HolidayDays int       `json:"holiday_days" validate:"min=0"`
}

// Regenerate recomputes an invoice's derived amounts from the current leave
// records and the active payment setting. Invoices with payments recorded are
// refused with a conflict; their amounts are frozen.
func (s *InvoiceService) Regenerate(ctx context.Context, req RegenerateInvoiceRequest) (*InvoiceResponse, error) {
	if req.HolidayDays < 0 {
		return nil, shared.NewValidationError("Holiday days cannot be negative")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	setting, err := s.settingSvc.resolveActive(ctx, invoice.SchoolID, invoice.Year, invoice.MonthNo)
	if err != nil {
		return nil, err
	}

	records, err := s.leaveRepo.FindByStudentMonth(ctx, invoice.SchoolID, invoice.StudentID, invoice.Year, invoice.MonthNo)
	if err != nil {
		return nil, err
	}
	absentDays := attendance.CountAbsentDays(records, invoice.Year, invoice.MonthNo)

	fresh, err := s.generator.Generate(billing.GenerationInput{
		SchoolID:    invoice.SchoolID,
		StudentID:   invoice.StudentID,
		Setting:     setting,
		Year:        invoice.Year,
		MonthNo:     invoice.MonthNo,
		AbsentDays:  absentDays,
		HolidayDays: req.HolidayDays,
	})
	if err != nil {
		return nil, err
	}

	if err := invoice.Reprice(fresh.MealPricePerDay, fresh.TotalAmount, fresh.AbsentDays, fresh.HolidayDays, fresh.AmountToPay); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice regenerated",
		zap.String("invoice_code", invoice.InvoiceCode),
		zap.Int("absent_days", absentDays),
		zap.String("amount_to_pay", invoice.AmountToPay.String()))
	return toInvoiceResponse(invoice), nil
}

// Get returns an invoice by ID
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

// GetForStudent returns an invoice by ID scoped to one student. An invoice
// belonging to a different student reads as not found, so one parent cannot
// pull up another family's billing detail.
func (s *InvoiceService) GetForStudent(ctx context.Context, id, studentID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.StudentID != studentID {
		return nil, shared.ErrNotFound
	}
	return toInvoiceResponse(invoice), nil
}

// ListByMonth lists a school's invoices for one billing month
func (s *InvoiceService) ListByMonth(ctx context.Context, schoolID uuid.UUID, year, monthNo int, filter shared.Filter) ([]*InvoiceResponse, int64, error) {
	invoices, total, err := s.invoiceRepo.FindByMonth(ctx, schoolID, year, monthNo, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = toInvoiceResponse(inv)
	}
	return responses, total, nil
}

// ListUnpaidByStudent lists the student's invoices that still carry a balance
func (s *InvoiceService) ListUnpaidByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*InvoiceResponse, error) {
	invoices, err := s.invoiceRepo.FindUnpaidByStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	responses := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = toInvoiceResponse(inv)
	}
	return responses, nil
}

// MarkReviewed clears an invoice's review flag after manual reconciliation
func (s *InvoiceService) MarkReviewed(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.MarkReviewed()
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}
