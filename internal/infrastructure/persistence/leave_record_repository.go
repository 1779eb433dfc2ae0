package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/attendance"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/mealfee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLeaveRecordRepository implements LeaveRecordRepository using GORM
type GormLeaveRecordRepository struct {
	db *gorm.DB
}

// NewGormLeaveRecordRepository creates a new GormLeaveRecordRepository
func NewGormLeaveRecordRepository(db *gorm.DB) *GormLeaveRecordRepository {
	return &GormLeaveRecordRepository{db: db}
}

// Save persists a leave record
func (r *GormLeaveRecordRepository) Save(ctx context.Context, record *attendance.LeaveRecord) error {
	model := models.LeaveRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByStudent lists a student's leave records with pagination
func (r *GormLeaveRecordRepository) FindByStudent(ctx context.Context, schoolID, studentID uuid.UUID, filter shared.Filter) ([]*attendance.LeaveRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaveRecordModel{}).
		Where("school_id = ? AND student_id = ?", schoolID, studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recordModels []models.LeaveRecordModel
	if err := applyFilter(query, filter).Find(&recordModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]*attendance.LeaveRecord, len(recordModels))
	for i := range recordModels {
		records[i] = recordModels[i].ToDomain()
	}
	return records, total, nil
}

// FindByStudentMonth returns records whose span touches the given month
func (r *GormLeaveRecordRepository) FindByStudentMonth(ctx context.Context, schoolID, studentID uuid.UUID, year, monthNo int) ([]*attendance.LeaveRecord, error) {
	monthStart := time.Date(year, time.Month(monthNo), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	var recordModels []models.LeaveRecordModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND student_id = ? AND start_date <= ? AND end_date >= ?",
			schoolID, studentID, monthEnd, monthStart).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]*attendance.LeaveRecord, len(recordModels))
	for i := range recordModels {
		records[i] = recordModels[i].ToDomain()
	}
	return records, nil
}

var _ attendance.LeaveRecordRepository = (*GormLeaveRecordRepository)(nil)
