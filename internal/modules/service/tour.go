package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/repo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenerateTourInput is the accepted shape of a generation request.
type GenerateTourInput struct {
	Name     string
	Narrated bool
	Voice    string
}

// TourAnalytics combines the durable tour record with the Redis view
// counters.
type TourAnalytics struct {
	TourID       uuid.UUID  `json:"tour_id"`
	Status       string     `json:"status"`
	SceneCount   int        `json:"scene_count"`
	Narrated     bool       `json:"narrated"`
	Views        int64      `json:"views"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TourService accepts generation requests and serves tour state. The
// request path is synchronous and fast: every rejectable condition (missing
// property, unknown voice, zero usable rooms) is checked before a record is
// created or a job queued.
type TourService struct {
	tours            repo.TourRepo
	rooms            repo.RoomRepo
	props            repo.PropertyRepo
	narrator         *NarrationOrchestrator
	narrationEnabled bool
	publisher        JobPublisher
	rdb              *redis.Client
	log              *zap.Logger
}

func NewTourService(cfg *config.Config, tours repo.TourRepo, rooms repo.RoomRepo, props repo.PropertyRepo, narrator *NarrationOrchestrator, publisher JobPublisher, rdb *redis.Client, log *zap.Logger) *TourService {
	return &TourService{
		tours:            tours,
		rooms:            rooms,
		props:            props,
		narrator:         narrator,
		narrationEnabled: cfg.Narration.Enabled,
		publisher:        publisher,
		rdb:              rdb,
		log:              log,
	}
}

// RequestGeneration validates the request, snapshots the property's
// completed rooms, creates the generating record and queues the job. Rooms
// completed after this call belong to the next tour, not this one.
func (s *TourService) RequestGeneration(ctx context.Context, propertyID uuid.UUID, in GenerateTourInput) (*model.Tour, error) {
	prop, err := s.props.Get(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	voice := ""
	if in.Narrated {
		if !s.narrationEnabled {
			return nil, ErrNarrationDisabled
		}
		preset, err := s.narrator.ResolveVoice(in.Voice)
		if err != nil {
			return nil, err
		}
		voice = preset.Name
	}

	completed, err := s.rooms.ListCompletedByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, ErrNoCompletedRooms
	}

	roomIDs := make(datatypes.JSONSlice[string], 0, len(completed))
	for _, r := range completed {
		roomIDs = append(roomIDs, r.ID.String())
	}

	name := in.Name
	if name == "" {
		name = fmt.Sprintf("%s Virtual Tour", prop.Title)
	}

	tour := &model.Tour{
		PropertyID: propertyID,
		Name:       name,
		Status:     model.TourGenerating,
		RoomIDs:    roomIDs,
		SceneCount: len(completed),
		Narrated:   in.Narrated,
		Voice:      voice,
	}
	if err := s.tours.Create(ctx, tour); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishJSON(ctx, TourJob{TourID: tour.ID}); err != nil {
		reason := fmt.Sprintf("queue generation job: %v", err)
		if markErr := s.tours.MarkFailed(ctx, tour.ID, reason); markErr != nil {
			s.log.Sugar().Errorw("mark tour failed after publish error",
				"tour_id", tour.ID, "err", markErr)
		}
		return nil, fmt.Errorf("queue generation job: %w", err)
	}

	s.log.Sugar().Infow("tour generation queued",
		"tour_id", tour.ID, "property_id", propertyID,
		"scenes", len(completed), "narrated", in.Narrated)
	return tour, nil
}

func (s *TourService) Get(ctx context.Context, id uuid.UUID) (*model.Tour, error) {
	tour, err := s.tours.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTourNotFound
	}
	return tour, err
}

// LatestByProperty returns the most recent tour regardless of status, so a
// client polling after regeneration sees generating, not the stale
// completed one.
func (s *TourService) LatestByProperty(ctx context.Context, propertyID uuid.UUID) (*model.Tour, error) {
	tour, err := s.tours.LatestByProperty(ctx, propertyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTourNotFound
	}
	return tour, err
}

func viewsKey(id uuid.UUID) string    { return "tour:views:" + id.String() }
func lastViewKey(id uuid.UUID) string { return "tour:last_viewed:" + id.String() }

// TrackView bumps the Redis counter for the tour. Counters live only in
// Redis; losing them loses analytics, never tours.
func (s *TourService) TrackView(ctx context.Context, tourID uuid.UUID) (int64, error) {
	if _, err := s.Get(ctx, tourID); err != nil {
		return 0, err
	}
	views, err := s.rdb.Incr(ctx, viewsKey(tourID)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	if err := s.rdb.Set(ctx, lastViewKey(tourID), time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		s.log.Sugar().Warnw("record last view time", "tour_id", tourID, "err", err)
	}
	return views, nil
}

func (s *TourService) Analytics(ctx context.Context, tourID uuid.UUID) (*TourAnalytics, error) {
	tour, err := s.Get(ctx, tourID)
	if err != nil {
		return nil, err
	}

	out := &TourAnalytics{
		TourID:      tour.ID,
		Status:      string(tour.Status),
		SceneCount:  tour.SceneCount,
		Narrated:    tour.Narrated,
		CreatedAt:   tour.CreatedAt,
		CompletedAt: tour.CompletedAt,
	}

	views, err := s.rdb.Get(ctx, viewsKey(tourID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read views: %w", err)
	}
	out.Views = views

	raw, err := s.rdb.Get(ctx, lastViewKey(tourID)).Result()
	if err == nil {
		if t, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			out.LastViewedAt = &t
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read last view: %w", err)
	}
	return out, nil
}
