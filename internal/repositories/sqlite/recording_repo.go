package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RamonSaldanha/gravadorjuridico/internal/models"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

type RecordingRepo interface {
	Create(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id uint) (*models.Recording, error)
	List(ctx context.Context) ([]models.Recording, error)
	Update(ctx context.Context, rec *models.Recording) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
}

type recordingRepo struct {
	db *gorm.DB
}

func NewRecordingRepo(db *gorm.DB) RecordingRepo {
	return &recordingRepo{db: db}
}

func (r *recordingRepo) Create(ctx context.Context, rec *models.Recording) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordingRepo) GetByID(ctx context.Context, id uint) (*models.Recording, error) {
	var row models.Recording
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *recordingRepo) List(ctx context.Context) ([]models.Recording, error) {
	var rows []models.Recording
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *recordingRepo) Update(ctx context.Context, rec *models.Recording) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *recordingRepo) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *recordingRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Recording{}, id).Error
}
