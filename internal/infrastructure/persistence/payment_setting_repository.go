package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/mealfee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentSettingRepository implements PaymentSettingRepository using GORM
type GormPaymentSettingRepository struct {
	db *gorm.DB
}

// NewGormPaymentSettingRepository creates a new GormPaymentSettingRepository
func NewGormPaymentSettingRepository(db *gorm.DB) *GormPaymentSettingRepository {
	return &GormPaymentSettingRepository{db: db}
}

// Save persists a payment setting
func (r *GormPaymentSettingRepository) Save(ctx context.Context, setting *billing.PaymentSetting) error {
	model := models.PaymentSettingModelFromDomain(setting)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormPaymentSettingRepository) SaveWithLock(ctx context.Context, setting *billing.PaymentSetting) error {
	model := models.PaymentSettingModelFromDomain(setting)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", setting.ID, setting.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a payment setting by its ID
func (r *GormPaymentSettingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentSetting, error) {
	var model models.PaymentSettingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySchool lists a school's payment settings with pagination
func (r *GormPaymentSettingRepository) FindBySchool(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*billing.PaymentSetting, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentSettingModel{}).
		Where("school_id = ?", schoolID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var settingModels []models.PaymentSettingModel
	if err := applyFilter(query, filter).Find(&settingModels).Error; err != nil {
		return nil, 0, err
	}

	settings := make([]*billing.PaymentSetting, len(settingModels))
	for i := range settingModels {
		settings[i] = settingModels[i].ToDomain()
	}
	return settings, total, nil
}

// FindActiveForMonth returns all active settings covering the given month
func (r *GormPaymentSettingRepository) FindActiveForMonth(ctx context.Context, schoolID uuid.UUID, year, monthNo int) ([]*billing.PaymentSetting, error) {
	var settingModels []models.PaymentSettingModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND is_active = ? AND year = ? AND from_month <= ? AND to_month >= ?",
			schoolID, true, year, monthNo, monthNo).
		Find(&settingModels).Error; err != nil {
		return nil, err
	}

	settings := make([]*billing.PaymentSetting, len(settingModels))
	for i := range settingModels {
		settings[i] = settingModels[i].ToDomain()
	}
	return settings, nil
}

// ExistsForAcademicYear reports whether any setting references the academic year
func (r *GormPaymentSettingRepository) ExistsForAcademicYear(ctx context.Context, academicYearID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentSettingModel{}).
		Where("academic_year_id = ?", academicYearID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes a payment setting
func (r *GormPaymentSettingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentSettingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ billing.PaymentSettingRepository = (*GormPaymentSettingRepository)(nil)
