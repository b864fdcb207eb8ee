package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoomService owns the room lifecycle: creation, panorama upload intake,
// ordering, deletion. Validation happens synchronously at upload time so a
// bad file is rejected before any job is queued; processing itself is async.
type RoomService struct {
	rooms     repo.RoomRepo
	props     repo.PropertyRepo
	validator *PanoramaValidator
	publisher JobPublisher
	uploadDir string
	log       *zap.Logger
}

func NewRoomService(cfg *config.Config, rooms repo.RoomRepo, props repo.PropertyRepo, validator *PanoramaValidator, publisher JobPublisher, log *zap.Logger) *RoomService {
	return &RoomService{
		rooms:     rooms,
		props:     props,
		validator: validator,
		publisher: publisher,
		uploadDir: cfg.Storage.UploadDir,
		log:       log,
	}
}

func (s *RoomService) Create(ctx context.Context, room *model.Room) error {
	if _, err := s.props.Get(ctx, room.PropertyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPropertyNotFound
		}
		return err
	}
	return s.rooms.Create(ctx, room)
}

func (s *RoomService) Get(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

func (s *RoomService) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error) {
	return s.rooms.ListByProperty(ctx, propertyID)
}

func (s *RoomService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.rooms.Delete(ctx, id)
}

// Reorder rewrites sort_order to match the given sequence. Every ID must
// belong to the property; the request is rejected whole otherwise.
func (s *RoomService) Reorder(ctx context.Context, propertyID uuid.UUID, orderedIDs []uuid.UUID) error {
	existing, err := s.rooms.ListByProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	owned := make(map[uuid.UUID]bool, len(existing))
	for _, r := range existing {
		owned[r.ID] = true
	}
	for _, id := range orderedIDs {
		if !owned[id] {
			return fmt.Errorf("%w: %s does not belong to property %s", ErrRoomNotFound, id, propertyID)
		}
	}
	for i, id := range orderedIDs {
		if err := s.rooms.UpdateSortOrder(ctx, id, i); err != nil {
			return err
		}
	}
	return nil
}

// UploadResult reports the synchronous validation outcome. A rejected
// upload leaves the room untouched; an accepted one resets it to pending
// and queues processing.
type UploadResult struct {
	Accepted bool
	Reason   string
}

// AcceptUpload stages the file, validates it, and queues the processing
// job. Uploading again replaces the prior panorama: the room goes back to
// pending and old artifact URLs are cleared before the new job is queued.
func (s *RoomService) AcceptUpload(ctx context.Context, roomID uuid.UUID, filename string, file io.Reader) (*UploadResult, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	stagedPath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", roomID, filepath.Base(filename)))
	if err := writeUpload(stagedPath, file); err != nil {
		return nil, err
	}

	if ok, reason := s.validator.Validate(stagedPath); !ok {
		os.Remove(stagedPath)
		return &UploadResult{Accepted: false, Reason: reason}, nil
	}

	if err := s.rooms.ResetForUpload(ctx, roomID, stagedPath); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishJSON(ctx, RoomJob{RoomID: roomID}); err != nil {
		return nil, fmt.Errorf("queue processing job: %w", err)
	}

	s.log.Sugar().Infow("panorama upload accepted",
		"room_id", roomID, "property_id", room.PropertyID, "file", filename)
	return &UploadResult{Accepted: true}, nil
}

func writeUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("stage upload: %w", err)
	}
	return f.Close()
}
