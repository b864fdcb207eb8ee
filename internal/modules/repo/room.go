package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/model"
	"gorm.io/gorm"
)

type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	Get(ctx context.Context, id uuid.UUID) (*model.Room, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateSortOrder(ctx context.Context, id uuid.UUID, sortOrder int) error

	// ListByProperty returns rooms in scene order: sort_order, then
	// insertion time for ties.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error)
	ListCompletedByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Room, error)

	// ResetForUpload accepts a fresh upload: back to pending, prior
	// artifact URLs cleared.
	ResetForUpload(ctx context.Context, id uuid.UUID, sourcePath string) error
	// MarkProcessing transitions pending -> processing. It reports false
	// when the room was not pending, which happens when a newer upload
	// superseded the one this job was queued for.
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, imageURL, thumbURL string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type roomRepo struct{ db *gorm.DB }

func NewRoomRepo(db *gorm.DB) RoomRepo {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepo) Get(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where(&model.Room{ID: id}).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Room{ID: id}).Error
}

func (r *roomRepo) UpdateSortOrder(ctx context.Context, id uuid.UUID, sortOrder int) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", id).
		UpdateColumn("sort_order", sortOrder).Error
}

func (r *roomRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("sort_order ASC, created_at ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) ListCompletedByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND processing_status = ? AND processed_image_url IS NOT NULL",
			propertyID, model.RoomCompleted).
		Order("sort_order ASC, created_at ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("sort_order ASC, created_at ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) ResetForUpload(ctx context.Context, id uuid.UUID, sourcePath string) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"source_image_path":   sourcePath,
			"processing_status":   model.RoomPending,
			"processed_image_url": nil,
			"thumbnail_url":       nil,
			"failure_reason":      "",
		}).Error
}

func (r *roomRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND processing_status = ?", id, model.RoomPending).
		UpdateColumn("processing_status", model.RoomProcessing)
	return res.RowsAffected > 0, res.Error
}

func (r *roomRepo) MarkCompleted(ctx context.Context, id uuid.UUID, imageURL, thumbURL string) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND processing_status = ?", id, model.RoomProcessing).
		Updates(map[string]any{
			"processing_status":   model.RoomCompleted,
			"processed_image_url": imageURL,
			"thumbnail_url":       thumbURL,
		}).Error
}

func (r *roomRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND processing_status = ?", id, model.RoomProcessing).
		Updates(map[string]any{
			"processing_status": model.RoomFailed,
			"failure_reason":    reason,
		}).Error
}
