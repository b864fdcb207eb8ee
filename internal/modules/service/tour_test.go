package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MockPropertyRepo is a mock implementation of repo.PropertyRepo
type MockPropertyRepo struct {
	mock.Mock
}

func (m *MockPropertyRepo) Create(ctx context.Context, p *model.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPropertyRepo) Get(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Property), args.Error(1)
}

func (m *MockPropertyRepo) SetHasTour(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRoomRepo is a mock implementation of repo.RoomRepo
type MockRoomRepo struct {
	mock.Mock
}

func (m *MockRoomRepo) Create(ctx context.Context, room *model.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepo) Get(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoomRepo) UpdateSortOrder(ctx context.Context, id uuid.UUID, sortOrder int) error {
	args := m.Called(ctx, id, sortOrder)
	return args.Error(0)
}

func (m *MockRoomRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *MockRoomRepo) ListCompletedByProperty(ctx context.Context, propertyID uuid.UUID) ([]model.Room, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *MockRoomRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Room, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *MockRoomRepo) ResetForUpload(ctx context.Context, id uuid.UUID, sourcePath string) error {
	args := m.Called(ctx, id, sourcePath)
	return args.Error(0)
}

func (m *MockRoomRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepo) MarkCompleted(ctx context.Context, id uuid.UUID, imageURL, thumbURL string) error {
	args := m.Called(ctx, id, imageURL, thumbURL)
	return args.Error(0)
}

func (m *MockRoomRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// MockTourRepo is a mock implementation of repo.TourRepo
type MockTourRepo struct {
	mock.Mock
}

func (m *MockTourRepo) Create(ctx context.Context, t *model.Tour) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTourRepo) Get(ctx context.Context, id uuid.UUID) (*model.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tour), args.Error(1)
}

func (m *MockTourRepo) LatestByProperty(ctx context.Context, propertyID uuid.UUID) (*model.Tour, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tour), args.Error(1)
}

func (m *MockTourRepo) MarkCompleted(ctx context.Context, id uuid.UUID, tourURL string, narration datatypes.JSONMap) error {
	args := m.Called(ctx, id, tourURL, narration)
	return args.Error(0)
}

func (m *MockTourRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

type fakePublisher struct {
	published []any
	err       error
}

func (f *fakePublisher) PublishJSON(ctx context.Context, v any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, v)
	return nil
}

func newTourService(props *MockPropertyRepo, rooms *MockRoomRepo, tours *MockTourRepo, pub JobPublisher) *TourService {
	cfg := narrationConfig()
	narrator := NewNarrationOrchestrator(cfg, &fakeSynthesizer{}, nil, zap.NewNop())
	return NewTourService(cfg, tours, rooms, props, narrator, pub, nil, zap.NewNop())
}

func TestRequestGenerationSnapshotsRooms(t *testing.T) {
	props := new(MockPropertyRepo)
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	pub := &fakePublisher{}
	svc := newTourService(props, rooms, tours, pub)

	propertyID := uuid.New()
	roomA := completedRoom("Entry")
	roomB := completedRoom("Kitchen")

	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID, Title: "Maple Street"}, nil)
	rooms.On("ListCompletedByProperty", mock.Anything, propertyID).
		Return([]model.Room{roomA, roomB}, nil)
	tours.On("Create", mock.Anything, mock.AnythingOfType("*model.Tour")).Return(nil)

	tour, err := svc.RequestGeneration(context.Background(), propertyID, GenerateTourInput{})
	require.NoError(t, err)

	assert.Equal(t, model.TourGenerating, tour.Status)
	assert.Equal(t, 2, tour.SceneCount)
	assert.Equal(t, []string{roomA.ID.String(), roomB.ID.String()}, []string(tour.RoomIDs))
	assert.Equal(t, "Maple Street Virtual Tour", tour.Name)
	assert.False(t, tour.Narrated)

	require.Len(t, pub.published, 1)
	job := pub.published[0].(TourJob)
	assert.Equal(t, tour.ID, job.TourID)
}

func TestRequestGenerationNoCompletedRooms(t *testing.T) {
	props := new(MockPropertyRepo)
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	pub := &fakePublisher{}
	svc := newTourService(props, rooms, tours, pub)

	propertyID := uuid.New()
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID, Title: "Empty Lot"}, nil)
	rooms.On("ListCompletedByProperty", mock.Anything, propertyID).
		Return([]model.Room{}, nil)

	_, err := svc.RequestGeneration(context.Background(), propertyID, GenerateTourInput{})
	assert.ErrorIs(t, err, ErrNoCompletedRooms)

	// rejected before any record or job exists
	tours.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, pub.published)
}

func TestRequestGenerationUnknownProperty(t *testing.T) {
	props := new(MockPropertyRepo)
	svc := newTourService(props, new(MockRoomRepo), new(MockTourRepo), &fakePublisher{})

	propertyID := uuid.New()
	props.On("Get", mock.Anything, propertyID).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.RequestGeneration(context.Background(), propertyID, GenerateTourInput{})
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestRequestGenerationUnknownVoice(t *testing.T) {
	props := new(MockPropertyRepo)
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	svc := newTourService(props, rooms, tours, &fakePublisher{})

	propertyID := uuid.New()
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID}, nil)

	_, err := svc.RequestGeneration(context.Background(), propertyID, GenerateTourInput{
		Narrated: true,
		Voice:    "robotic",
	})
	assert.ErrorIs(t, err, ErrUnknownVoice)
	tours.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestGenerationNarrationDisabled(t *testing.T) {
	cfg := &config.Config{} // narration disabled
	props := new(MockPropertyRepo)
	tours := new(MockTourRepo)
	narrator := NewNarrationOrchestrator(narrationConfig(), &fakeSynthesizer{}, nil, zap.NewNop())
	svc := NewTourService(cfg, tours, new(MockRoomRepo), props, narrator, &fakePublisher{}, nil, zap.NewNop())

	propertyID := uuid.New()
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID}, nil)

	_, err := svc.RequestGeneration(context.Background(), propertyID, GenerateTourInput{Narrated: true})
	assert.ErrorIs(t, err, ErrNarrationDisabled)
	tours.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestGenerationPublishFailureMarksTourFailed(t *testing.T) {
	props := new(MockPropertyRepo)
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	pub := &fakePublisher{err: assert.AnError}
	svc := newTourService(props, rooms, tours, pub)

	propertyID := uuid.New()
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID, Title: "Maple Street"}, nil)
	rooms.On("ListCompletedByProperty", mock.Anything, propertyID).
		Return([]model.Room{completedRoom("Entry")}, nil)
	tours.On("Create", mock.Anything, mock.AnythingOfType("*model.Tour")).Return(nil)
	tours.On("MarkFailed", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.RequestGeneration(context.Background(), propertyID, GenerateTourInput{})
	require.Error(t, err)
	tours.AssertCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTourNotFound(t *testing.T) {
	tours := new(MockTourRepo)
	svc := newTourService(new(MockPropertyRepo), new(MockRoomRepo), tours, &fakePublisher{})

	id := uuid.New()
	tours.On("Get", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrTourNotFound)
}
