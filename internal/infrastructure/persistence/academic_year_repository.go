package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/school"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/mealfee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAcademicYearRepository implements AcademicYearRepository using GORM
type GormAcademicYearRepository struct {
	db *gorm.DB
}

// NewGormAcademicYearRepository creates a new GormAcademicYearRepository
func NewGormAcademicYearRepository(db *gorm.DB) *GormAcademicYearRepository {
	return &GormAcademicYearRepository{db: db}
}

// Save persists an academic year
func (r *GormAcademicYearRepository) Save(ctx context.Context, year *school.AcademicYear) error {
	model := models.AcademicYearModelFromDomain(year)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an academic year by its ID
func (r *GormAcademicYearRepository) FindByID(ctx context.Context, id uuid.UUID) (*school.AcademicYear, error) {
	var model models.AcademicYearModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySchool lists a school's academic years with pagination
func (r *GormAcademicYearRepository) FindBySchool(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*school.AcademicYear, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AcademicYearModel{}).
		Where("school_id = ?", schoolID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var yearModels []models.AcademicYearModel
	if err := applyFilter(query, filter).Find(&yearModels).Error; err != nil {
		return nil, 0, err
	}

	years := make([]*school.AcademicYear, len(yearModels))
	for i := range yearModels {
		years[i] = yearModels[i].ToDomain()
	}
	return years, total, nil
}

// FindCurrent returns the school's current academic year
func (r *GormAcademicYearRepository) FindCurrent(ctx context.Context, schoolID uuid.UUID) (*school.AcademicYear, error) {
	var model models.AcademicYearModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND is_current = ?", schoolID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Delete removes an academic year
func (r *GormAcademicYearRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AcademicYearModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ school.AcademicYearRepository = (*GormAcademicYearRepository)(nil)
