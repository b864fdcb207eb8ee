package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TourRepo interface {
	Create(ctx context.Context, t *model.Tour) error
	Get(ctx context.Context, id uuid.UUID) (*model.Tour, error)
	LatestByProperty(ctx context.Context, propertyID uuid.UUID) (*model.Tour, error)

	// MarkCompleted and MarkFailed only touch rows still in generating,
	// so a terminal tour is never rewritten.
	MarkCompleted(ctx context.Context, id uuid.UUID, tourURL string, narration datatypes.JSONMap) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type tourRepo struct{ db *gorm.DB }

func NewTourRepo(db *gorm.DB) TourRepo {
	return &tourRepo{db: db}
}

func (r *tourRepo) Create(ctx context.Context, t *model.Tour) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tourRepo) Get(ctx context.Context, id uuid.UUID) (*model.Tour, error) {
	var t model.Tour
	if err := r.db.WithContext(ctx).Where(&model.Tour{ID: id}).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tourRepo) LatestByProperty(ctx context.Context, propertyID uuid.UUID) (*model.Tour, error) {
	var t model.Tour
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tourRepo) MarkCompleted(ctx context.Context, id uuid.UUID, tourURL string, narration datatypes.JSONMap) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       model.TourCompleted,
		"tour_url":     tourURL,
		"completed_at": now,
	}
	if narration != nil {
		updates["narration"] = narration
	}
	return r.db.WithContext(ctx).
		Model(&model.Tour{}).
		Where("id = ? AND status = ?", id, model.TourGenerating).
		Updates(updates).Error
}

func (r *tourRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&model.Tour{}).
		Where("id = ? AND status = ?", id, model.TourGenerating).
		Updates(map[string]any{
			"status": model.TourFailed,
			"reason": reason,
		}).Error
}
