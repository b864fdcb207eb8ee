package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/model"
	"gorm.io/gorm"
)

type PropertyRepo interface {
	Create(ctx context.Context, p *model.Property) error
	Get(ctx context.Context, id uuid.UUID) (*model.Property, error)
	// SetHasTour flips the tour flag with a single idempotent UPDATE so
	// concurrent completions cannot lose the write.
	SetHasTour(ctx context.Context, id uuid.UUID) error
}

type propertyRepo struct{ db *gorm.DB }

func NewPropertyRepo(db *gorm.DB) PropertyRepo {
	return &propertyRepo{db: db}
}

func (r *propertyRepo) Create(ctx context.Context, p *model.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *propertyRepo) Get(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	var p model.Property
	if err := r.db.WithContext(ctx).Where(&model.Property{ID: id}).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *propertyRepo) SetHasTour(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Property{}).
		Where("id = ?", id).
		UpdateColumn("has_tour", true).Error
}
