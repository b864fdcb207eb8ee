package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/infra/storage"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/repo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pipeline runs the queued jobs: panorama processing and tour assembly.
// Every failure path lands the row in a terminal failed state with a
// human-readable reason; jobs themselves are fire-and-forget.
type Pipeline struct {
	rooms     repo.RoomRepo
	tours     repo.TourRepo
	props     repo.PropertyRepo
	processor *PanoramaProcessor
	graph     *SceneGraphBuilder
	narrator  *NarrationOrchestrator
	renderer  *TourRenderer
	store     storage.Store
	workDir   string
	log       *zap.Logger
}

func NewPipeline(cfg *config.Config, rooms repo.RoomRepo, tours repo.TourRepo, props repo.PropertyRepo, processor *PanoramaProcessor, graph *SceneGraphBuilder, narrator *NarrationOrchestrator, renderer *TourRenderer, store storage.Store, log *zap.Logger) *Pipeline {
	return &Pipeline{
		rooms:     rooms,
		tours:     tours,
		props:     props,
		processor: processor,
		graph:     graph,
		narrator:  narrator,
		renderer:  renderer,
		store:     store,
		workDir:   cfg.Storage.WorkDir,
		log:       log,
	}
}

// ProcessRoom converts the staged upload into web and thumbnail renditions
// and publishes them to storage. A job whose room is gone or no longer
// pending is dropped silently: a newer upload owns the row now.
func (p *Pipeline) ProcessRoom(ctx context.Context, roomID uuid.UUID) error {
	room, err := p.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.log.Sugar().Warnw("room job for missing room", "room_id", roomID)
			return nil
		}
		return err
	}

	claimed, err := p.rooms.MarkProcessing(ctx, roomID)
	if err != nil {
		return err
	}
	if !claimed {
		p.log.Sugar().Infow("room job superseded", "room_id", roomID, "status", room.ProcessingStatus)
		return nil
	}

	dir := filepath.Join(p.workDir, "rooms", roomID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return p.failRoom(ctx, roomID, fmt.Sprintf("create work dir: %v", err))
	}
	defer os.RemoveAll(dir)

	stem := artifactStem(room.Name)
	processed, err := p.processor.Process(ctx, room.SourceImagePath, dir, stem)
	if err != nil {
		return p.failRoom(ctx, roomID, fmt.Sprintf("process panorama: %v", err))
	}

	prefix := fmt.Sprintf("tours/%s/%s/", room.PropertyID, roomID)
	imageURL, err := p.store.SaveFile(ctx, prefix+processed.ImageName, "image/jpeg",
		filepath.Join(dir, processed.ImageName))
	if err != nil {
		return p.failRoom(ctx, roomID, fmt.Sprintf("store panorama: %v", err))
	}
	thumbURL, err := p.store.SaveFile(ctx, prefix+processed.ThumbName, "image/jpeg",
		filepath.Join(dir, processed.ThumbName))
	if err != nil {
		return p.failRoom(ctx, roomID, fmt.Sprintf("store thumbnail: %v", err))
	}

	if err := p.rooms.MarkCompleted(context.WithoutCancel(ctx), roomID, imageURL, thumbURL); err != nil {
		return err
	}
	p.log.Sugar().Infow("panorama processed",
		"room_id", roomID, "width", processed.Width, "height", processed.Height)
	return nil
}

// failRoom writes the terminal state on a detached context: once a job is
// claimed, shutdown must not leave the row stuck in processing.
func (p *Pipeline) failRoom(ctx context.Context, roomID uuid.UUID, reason string) error {
	p.log.Sugar().Warnw("room processing failed", "room_id", roomID, "reason", reason)
	return p.rooms.MarkFailed(context.WithoutCancel(ctx), roomID, reason)
}

// artifactStem derives processed-file names from the room name, keeping
// the name's case and mapping separators to underscores.
func artifactStem(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "scene"
	}
	return b.String()
}

// GenerateTour assembles the tour page from the snapshot taken at request
// time: scene graph, optional narration, rendered viewer, all published to
// storage before the row turns completed.
func (p *Pipeline) GenerateTour(ctx context.Context, tourID uuid.UUID) error {
	tour, err := p.tours.Get(ctx, tourID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.log.Sugar().Warnw("tour job for missing tour", "tour_id", tourID)
			return nil
		}
		return err
	}
	if tour.Status != model.TourGenerating {
		p.log.Sugar().Infow("tour job redelivered for terminal tour",
			"tour_id", tourID, "status", tour.Status)
		return nil
	}

	prop, err := p.props.Get(ctx, tour.PropertyID)
	if err != nil {
		return p.failTour(ctx, tourID, fmt.Sprintf("load property: %v", err))
	}

	rooms, err := p.snapshotRooms(ctx, tour)
	if err != nil {
		return p.failTour(ctx, tourID, fmt.Sprintf("load rooms: %v", err))
	}

	scenes := p.graph.Build(rooms)
	if len(scenes) == 0 {
		return p.failTour(ctx, tourID, "no renderable scenes in snapshot")
	}

	dir := filepath.Join(p.workDir, "tours", tourID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return p.failTour(ctx, tourID, fmt.Sprintf("create work dir: %v", err))
	}
	defer os.RemoveAll(dir)

	prefix := fmt.Sprintf("tours/%s/%s/", tour.PropertyID, tourID)

	var audio map[string]string
	var narrationURLs datatypes.JSONMap
	if tour.Narrated && p.narrator != nil {
		result, err := p.narrator.Narrate(ctx, prop, rooms, tour.Voice, dir)
		if err != nil {
			return p.failTour(ctx, tourID, fmt.Sprintf("narrate: %v", err))
		}
		audio = result.Audio
		narrationURLs = make(datatypes.JSONMap, len(result.Audio))
		for key, rel := range result.Audio {
			url, err := p.store.SaveFile(ctx, prefix+rel, "audio/mpeg", filepath.Join(dir, rel))
			if err != nil {
				return p.failTour(ctx, tourID, fmt.Sprintf("store narration: %v", err))
			}
			narrationURLs[key] = url
		}
		for key, reason := range result.Failures {
			p.log.Sugar().Warnw("narration unit skipped",
				"tour_id", tourID, "unit", key, "reason", reason)
		}
	}

	page, err := p.renderer.Render(tour.Name, scenes, audio)
	if err != nil {
		return p.failTour(ctx, tourID, fmt.Sprintf("render tour: %v", err))
	}

	tourURL, err := p.store.Save(ctx, prefix+"tour.html", "text/html; charset=utf-8",
		bytes.NewReader(page))
	if err != nil {
		return p.failTour(ctx, tourID, fmt.Sprintf("store tour page: %v", err))
	}

	done := context.WithoutCancel(ctx)
	if err := p.tours.MarkCompleted(done, tourID, tourURL, narrationURLs); err != nil {
		return err
	}
	if err := p.props.SetHasTour(done, tour.PropertyID); err != nil {
		return err
	}
	p.log.Sugar().Infow("tour generated",
		"tour_id", tourID, "property_id", tour.PropertyID,
		"scenes", len(scenes), "narrated", tour.Narrated)
	return nil
}

// snapshotRooms loads the snapshot in its recorded order, dropping IDs
// whose rows were deleted since the request.
func (p *Pipeline) snapshotRooms(ctx context.Context, tour *model.Tour) ([]model.Room, error) {
	ids := make([]uuid.UUID, 0, len(tour.RoomIDs))
	for _, raw := range tour.RoomIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot holds invalid room id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}

	rooms, err := p.rooms.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}

	ordered := make([]model.Room, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

func (p *Pipeline) failTour(ctx context.Context, tourID uuid.UUID, reason string) error {
	p.log.Sugar().Warnw("tour generation failed", "tour_id", tourID, "reason", reason)
	return p.tours.MarkFailed(context.WithoutCancel(ctx), tourID, reason)
}
