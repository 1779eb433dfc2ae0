package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentSettingService provides application-level payment setting operations
type PaymentSettingService struct {
	settingRepo billing.PaymentSettingRepository
	invoiceRepo billing.InvoiceRepository
	logger      *zap.Logger
}

// PaymentSettingServiceConfig holds configuration for the service
type PaymentSettingServiceConfig struct {
	SettingRepo billing.PaymentSettingRepository
	InvoiceRepo billing.InvoiceRepository
	Logger      *zap.Logger
}

// NewPaymentSettingService creates a new PaymentSettingService
func NewPaymentSettingService(config PaymentSettingServiceConfig) *PaymentSettingService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentSettingService{
		settingRepo: config.SettingRepo,
		invoiceRepo: config.InvoiceRepo,
		logger:      logger,
	}
}

// CreatePaymentSettingRequest carries the input for creating a setting
type CreatePaymentSettingRequest struct {
	SchoolID        uuid.UUID       `json:"school_id" validate:"required"`
	AcademicYearID  uuid.UUID       `json:"academic_year_id"`
	Year            int             `json:"year" validate:"required"`
	FromMonth       int             `json:"from_month" validate:"required,min=1,max=12"`
	ToMonth         int             `json:"to_month" validate:"required,min=1,max=12"`
	MealPricePerDay decimal.Decimal `json:"meal_price_per_day"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Note            string          `json:"note"`
}

// UpdatePaymentSettingRequest carries the input for updating a setting
type UpdatePaymentSettingRequest struct {
	Year            *int             `json:"year"`
	FromMonth       *int             `json:"from_month"`
	ToMonth         *int             `json:"to_month"`
	MealPricePerDay *decimal.Decimal `json:"meal_price_per_day"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	IsActive        *bool            `json:"is_active"`
	Note            *string          `json:"note"`
}

// PaymentSettingResponse represents a payment setting in API responses
type PaymentSettingResponse struct {
	ID              uuid.UUID       `json:"id"`
	SchoolID        uuid.UUID       `json:"school_id"`
	AcademicYearID  uuid.UUID       `json:"academic_year_id"`
	Year            int             `json:"year"`
	FromMonth       int             `json:"from_month"`
	ToMonth         int             `json:"to_month"`
	MealPricePerDay decimal.Decimal `json:"meal_price_per_day"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	IsActive        bool            `json:"is_active"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toPaymentSettingResponse(ps *billing.PaymentSetting) *PaymentSettingResponse {
	return &PaymentSettingResponse{
		ID:              ps.ID,
		SchoolID:        ps.SchoolID,
		AcademicYearID:  ps.AcademicYearID,
		Year:            ps.Year,
		FromMonth:       ps.FromMonth,
		ToMonth:         ps.ToMonth,
		MealPricePerDay: ps.MealPricePerDay,
		TotalAmount:     ps.TotalAmount,
		IsActive:        ps.IsActive,
		Note:            ps.Note,
		CreatedAt:       ps.CreatedAt,
		UpdatedAt:       ps.UpdatedAt,
	}
}

// Create creates a new payment setting. An active setting overlapping an
// existing active one for the same school is rejected so GetActiveFor can
// always resolve a single setting per month.
func (s *PaymentSettingService) Create(ctx context.Context, req CreatePaymentSettingRequest) (*PaymentSettingResponse, error) {
	setting, err := billing.NewPaymentSetting(
		req.SchoolID, req.AcademicYearID,
		req.Year, req.FromMonth, req.ToMonth,
		req.MealPricePerDay, req.TotalAmount,
		req.Note,
	)
	if err != nil {
		return nil, err
	}

	if err := s.checkOverlap(ctx, setting, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.settingRepo.Save(ctx, setting); err != nil {
		s.logger.Error("Failed to save payment setting",
			zap.String("school_id", req.SchoolID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Payment setting created",
		zap.String("setting_id", setting.ID.String()),
		zap.Int("year", setting.Year),
		zap.Int("from_month", setting.FromMonth),
		zap.Int("to_month", setting.ToMonth))

	return toPaymentSettingResponse(setting), nil
}

// checkOverlap rejects an active setting whose window collides with another
// active setting of the same school. excludeID skips the setting being updated.
func (s *PaymentSettingService) checkOverlap(ctx context.Context, setting *billing.PaymentSetting, excludeID uuid.UUID) error {
	if !setting.IsActive {
		return nil
	}
	for month := setting.FromMonth; month <= setting.ToMonth; month++ {
		existing, err := s.settingRepo.FindActiveForMonth(ctx, setting.SchoolID, setting.Year, month)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.ID == excludeID || other.ID == setting.ID {
				continue
			}
			return shared.NewConflictError(fmt.Sprintf(
				"An active payment setting already covers %04d-%02d", setting.Year, month))
		}
	}
	return nil
}

// Get returns a payment setting by ID
func (s *PaymentSettingService) Get(ctx context.Context, id uuid.UUID) (*PaymentSettingResponse, error) {
	setting, err := s.settingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPaymentSettingResponse(setting), nil
}

// List returns the school's payment settings with pagination
func (s *PaymentSettingService) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*PaymentSettingResponse, int64, error) {
	settings, total, err := s.settingRepo.FindBySchool(ctx, schoolID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]*PaymentSettingResponse, len(settings))
	for i, ps := range settings {
		responses[i] = toPaymentSettingResponse(ps)
	}
	return responses, total, nil
}

// GetActiveFor resolves the single active setting covering a month.
// Zero matches and multiple matches are both configuration errors; the
// generator must never guess between candidate prices.
func (s *PaymentSettingService) GetActiveFor(ctx context.Context, schoolID uuid.UUID, year, monthNo int) (*PaymentSettingResponse, error) {
	setting, err := s.resolveActive(ctx, schoolID, year, monthNo)
	if err != nil {
		return nil, err
	}
	return toPaymentSettingResponse(setting), nil
}

func (s *PaymentSettingService) resolveActive(ctx context.Context, schoolID uuid.UUID, year, monthNo int) (*billing.PaymentSetting, error) {
	settings, err := s.settingRepo.FindActiveForMonth(ctx, schoolID, year, monthNo)
	if err != nil {
		return nil, err
	}
	switch len(settings) {
	case 0:
		return nil, shared.NewConfigurationError(fmt.Sprintf(
			"No active payment setting covers %04d-%02d", year, monthNo))
	case 1:
		return settings[0], nil
	default:
		return nil, shared.NewConfigurationError(fmt.Sprintf(
			"%d active payment settings cover %04d-%02d", len(settings), year, monthNo))
	}
}

// repricesSetting reports whether the update changes the month window or the
// pricing. Activation and note edits are not repricing.
func repricesSetting(setting *billing.PaymentSetting, req UpdatePaymentSettingRequest) bool {
	if req.Year != nil && *req.Year != setting.Year {
		return true
	}
	if req.FromMonth != nil && *req.FromMonth != setting.FromMonth {
		return true
	}
	if req.ToMonth != nil && *req.ToMonth != setting.ToMonth {
		return true
	}
	if req.MealPricePerDay != nil && !req.MealPricePerDay.Equal(setting.MealPricePerDay) {
		return true
	}
	if req.TotalAmount != nil && !req.TotalAmount.Equal(setting.TotalAmount) {
		return true
	}
	return false
}

// Update applies a partial update with optimistic locking. Once a setting has
// paid invoices its window and pricing are frozen; the amounts those invoices
// were billed on must stay reconstructable.
func (s *PaymentSettingService) Update(ctx context.Context, id uuid.UUID, req UpdatePaymentSettingRequest) (*PaymentSettingResponse, error) {
	setting, err := s.settingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	baseVersion := setting.Version

	if repricesSetting(setting, req) {
		paid, err := s.invoiceRepo.ExistsPaidForSetting(ctx, id)
		if err != nil {
			return nil, err
		}
		if paid {
			return nil, shared.NewConflictError("Payment setting has paid invoices; its window and pricing cannot change")
		}
	}

	if req.Year != nil || req.FromMonth != nil || req.ToMonth != nil {
		year, from, to := setting.Year, setting.FromMonth, setting.ToMonth
		if req.Year != nil {
			year = *req.Year
		}
		if req.FromMonth != nil {
			from = *req.FromMonth
		}
		if req.ToMonth != nil {
			to = *req.ToMonth
		}
		if err := setting.UpdateMonthRange(year, from, to); err != nil {
			return nil, err
		}
	}
	if req.MealPricePerDay != nil || req.TotalAmount != nil {
		price, total := setting.MealPricePerDay, setting.TotalAmount
		if req.MealPricePerDay != nil {
			price = *req.MealPricePerDay
		}
		if req.TotalAmount != nil {
			total = *req.TotalAmount
		}
		if err := setting.UpdatePricing(price, total); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		setting.SetActive(*req.IsActive)
	}
	if req.Note != nil {
		setting.SetNote(*req.Note)
	}

	if err := s.checkOverlap(ctx, setting, id); err != nil {
		return nil, err
	}

	// Each mutator steps the version; one save is one version step
	setting.Version = baseVersion + 1

	if err := s.settingRepo.SaveWithLock(ctx, setting); err != nil {
		return nil, err
	}

	s.logger.Info("Payment setting updated", zap.String("setting_id", id.String()))
	return toPaymentSettingResponse(setting), nil
}

// Delete removes a payment setting. Settings referenced by paid invoices
// cannot be deleted; deactivate them instead.
func (s *PaymentSettingService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.settingRepo.FindByID(ctx, id); err != nil {
		return err
	}

	paid, err := s.invoiceRepo.ExistsPaidForSetting(ctx, id)
	if err != nil {
		return err
	}
	if paid {
		return shared.NewConflictError("Payment setting has paid invoices and cannot be deleted")
	}

	if err := s.settingRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Payment setting deleted", zap.String("setting_id", id.String()))
	return nil
}
