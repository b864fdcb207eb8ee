package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeStore struct {
	saved map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string][]byte{}}
}

func (f *fakeStore) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.saved[key] = data
	return "https://store.test/" + key, nil
}

func (f *fakeStore) SaveFile(ctx context.Context, key, contentType, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	f.saved[key] = data
	return "https://store.test/" + key, nil
}

func newPipeline(t *testing.T, rooms *MockRoomRepo, tours *MockTourRepo, props *MockPropertyRepo, store *fakeStore) *Pipeline {
	t.Helper()
	cfg := narrationConfig()
	cfg.Storage.WorkDir = t.TempDir()

	renderer, err := NewTourRenderer()
	require.NoError(t, err)
	narrator := NewNarrationOrchestrator(cfg, &fakeSynthesizer{}, nil, zap.NewNop())

	return NewPipeline(cfg, rooms, tours, props,
		NewPanoramaProcessor(zap.NewNop()), NewSceneGraphBuilder(),
		narrator, renderer, store, zap.NewNop())
}

func TestProcessRoomStoresArtifacts(t *testing.T) {
	rooms := new(MockRoomRepo)
	store := newFakeStore()
	p := newPipeline(t, rooms, new(MockTourRepo), new(MockPropertyRepo), store)

	src := filepath.Join(t.TempDir(), "upload.jpg")
	writeTestJPEG(t, src, 2048, 1024)

	roomID := uuid.New()
	propertyID := uuid.New()
	rooms.On("Get", mock.Anything, roomID).Return(&model.Room{
		ID:               roomID,
		PropertyID:       propertyID,
		Name:             "Kitchen",
		SourceImagePath:  src,
		ProcessingStatus: model.RoomPending,
	}, nil)
	rooms.On("MarkProcessing", mock.Anything, roomID).Return(true, nil)

	prefix := "tours/" + propertyID.String() + "/" + roomID.String() + "/"
	rooms.On("MarkCompleted", mock.Anything, roomID,
		"https://store.test/"+prefix+"Kitchen_360.jpg",
		"https://store.test/"+prefix+"Kitchen_thumb.jpg").Return(nil)

	require.NoError(t, p.ProcessRoom(context.Background(), roomID))

	assert.Contains(t, store.saved, prefix+"Kitchen_360.jpg")
	assert.Contains(t, store.saved, prefix+"Kitchen_thumb.jpg")
	rooms.AssertExpectations(t)
}

func TestArtifactStemKeepsCase(t *testing.T) {
	assert.Equal(t, "Kitchen", artifactStem("Kitchen"))
	assert.Equal(t, "Master_Bedroom", artifactStem("Master Bedroom"))
	assert.Equal(t, "Den_2", artifactStem("Den #2"))
	assert.Equal(t, "scene", artifactStem("日本間"))
}

func TestProcessRoomSupersededJobIsDropped(t *testing.T) {
	rooms := new(MockRoomRepo)
	p := newPipeline(t, rooms, new(MockTourRepo), new(MockPropertyRepo), newFakeStore())

	roomID := uuid.New()
	rooms.On("Get", mock.Anything, roomID).Return(&model.Room{
		ID:               roomID,
		ProcessingStatus: model.RoomCompleted,
	}, nil)
	rooms.On("MarkProcessing", mock.Anything, roomID).Return(false, nil)

	require.NoError(t, p.ProcessRoom(context.Background(), roomID))
	rooms.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	rooms.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRoomFailureIsTerminal(t *testing.T) {
	rooms := new(MockRoomRepo)
	p := newPipeline(t, rooms, new(MockTourRepo), new(MockPropertyRepo), newFakeStore())

	roomID := uuid.New()
	rooms.On("Get", mock.Anything, roomID).Return(&model.Room{
		ID:               roomID,
		Name:             "Kitchen",
		SourceImagePath:  "/nonexistent/upload.jpg",
		ProcessingStatus: model.RoomPending,
	}, nil)
	rooms.On("MarkProcessing", mock.Anything, roomID).Return(true, nil)
	rooms.On("MarkFailed", mock.Anything, roomID, mock.AnythingOfType("string")).Return(nil)

	require.NoError(t, p.ProcessRoom(context.Background(), roomID))
	rooms.AssertCalled(t, "MarkFailed", mock.Anything, roomID, mock.AnythingOfType("string"))
}

// A cancelled job context must still land the claimed row in a terminal
// state; otherwise shutdown strands it in processing forever.
func TestProcessRoomCancelledContextStillMarksFailed(t *testing.T) {
	rooms := new(MockRoomRepo)
	p := newPipeline(t, rooms, new(MockTourRepo), new(MockPropertyRepo), newFakeStore())

	src := filepath.Join(t.TempDir(), "upload.jpg")
	writeTestJPEG(t, src, 2048, 1024)

	roomID := uuid.New()
	rooms.On("Get", mock.Anything, roomID).Return(&model.Room{
		ID:               roomID,
		Name:             "Kitchen",
		SourceImagePath:  src,
		ProcessingStatus: model.RoomPending,
	}, nil)
	rooms.On("MarkProcessing", mock.Anything, roomID).Return(true, nil)

	liveCtx := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	rooms.On("MarkFailed", liveCtx, roomID, mock.AnythingOfType("string")).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.ProcessRoom(ctx, roomID))

	rooms.AssertExpectations(t)
	rooms.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateTourRendersSnapshotInOrder(t *testing.T) {
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	props := new(MockPropertyRepo)
	store := newFakeStore()
	p := newPipeline(t, rooms, tours, props, store)

	propertyID := uuid.New()
	tourID := uuid.New()
	roomA := completedRoom("Entry")
	roomB := completedRoom("Kitchen")

	tour := &model.Tour{
		ID:         tourID,
		PropertyID: propertyID,
		Name:       "Maple Street Virtual Tour",
		Status:     model.TourGenerating,
		RoomIDs:    datatypes.JSONSlice[string]{roomA.ID.String(), roomB.ID.String()},
	}
	tours.On("Get", mock.Anything, tourID).Return(tour, nil)
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID, Title: "Maple Street"}, nil)
	// repo returns rows in DB order; the pipeline must restore snapshot order
	rooms.On("ListByIDs", mock.Anything, mock.Anything).
		Return([]model.Room{roomB, roomA}, nil)

	prefix := "tours/" + propertyID.String() + "/" + tourID.String() + "/"
	tours.On("MarkCompleted", mock.Anything, tourID,
		"https://store.test/"+prefix+"tour.html", datatypes.JSONMap(nil)).Return(nil)
	props.On("SetHasTour", mock.Anything, propertyID).Return(nil)

	require.NoError(t, p.GenerateTour(context.Background(), tourID))

	page := string(store.saved[prefix+"tour.html"])
	assert.Contains(t, page, "Maple Street Virtual Tour")
	assert.Contains(t, page, `firstScene: "`+roomA.ID.String()+`"`)
	tours.AssertExpectations(t)
	props.AssertExpectations(t)
}

func TestGenerateTourNarrated(t *testing.T) {
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	props := new(MockPropertyRepo)
	store := newFakeStore()
	p := newPipeline(t, rooms, tours, props, store)

	propertyID := uuid.New()
	tourID := uuid.New()
	room := completedRoom("Kitchen")

	tour := &model.Tour{
		ID:         tourID,
		PropertyID: propertyID,
		Name:       "Tour",
		Status:     model.TourGenerating,
		RoomIDs:    datatypes.JSONSlice[string]{room.ID.String()},
		Narrated:   true,
		Voice:      "professional_female",
	}
	tours.On("Get", mock.Anything, tourID).Return(tour, nil)
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID, Title: "Maple Street"}, nil)
	rooms.On("ListByIDs", mock.Anything, mock.Anything).
		Return([]model.Room{room}, nil)
	tours.On("MarkCompleted", mock.Anything, tourID,
		mock.AnythingOfType("string"), mock.AnythingOfType("datatypes.JSONMap")).Return(nil)
	props.On("SetHasTour", mock.Anything, propertyID).Return(nil)

	require.NoError(t, p.GenerateTour(context.Background(), tourID))

	prefix := "tours/" + propertyID.String() + "/" + tourID.String() + "/"
	assert.Contains(t, store.saved, prefix+"audio/intro.mp3")
	assert.Contains(t, store.saved, prefix+"audio/kitchen.mp3")
	assert.Contains(t, store.saved, prefix+"audio/outro.mp3")
	assert.Contains(t, string(store.saved[prefix+"tour.html"]), "audio/kitchen.mp3")
}

func TestGenerateTourTerminalStatusIsDropped(t *testing.T) {
	tours := new(MockTourRepo)
	p := newPipeline(t, new(MockRoomRepo), tours, new(MockPropertyRepo), newFakeStore())

	tourID := uuid.New()
	tours.On("Get", mock.Anything, tourID).
		Return(&model.Tour{ID: tourID, Status: model.TourCompleted}, nil)

	require.NoError(t, p.GenerateTour(context.Background(), tourID))
	tours.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	tours.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateTourNoScenesFails(t *testing.T) {
	rooms := new(MockRoomRepo)
	tours := new(MockTourRepo)
	props := new(MockPropertyRepo)
	p := newPipeline(t, rooms, tours, props, newFakeStore())

	propertyID := uuid.New()
	tourID := uuid.New()
	deleted := uuid.New()

	tours.On("Get", mock.Anything, tourID).Return(&model.Tour{
		ID:         tourID,
		PropertyID: propertyID,
		Status:     model.TourGenerating,
		RoomIDs:    datatypes.JSONSlice[string]{deleted.String()},
	}, nil)
	props.On("Get", mock.Anything, propertyID).
		Return(&model.Property{ID: propertyID}, nil)
	rooms.On("ListByIDs", mock.Anything, mock.Anything).Return([]model.Room{}, nil)
	tours.On("MarkFailed", mock.Anything, tourID, "no renderable scenes in snapshot").Return(nil)

	require.NoError(t, p.GenerateTour(context.Background(), tourID))
	tours.AssertExpectations(t)
}
