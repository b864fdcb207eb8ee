package service

import (
	"context"

	"github.com/google/uuid"
)

// JobPublisher is what the services need from the queue layer.
// *queue.Publisher satisfies it.
type JobPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// Queue message payloads. Jobs carry only the row ID; all state lives in
// the database so a redelivered or stale message is harmless.
type RoomJob struct {
	RoomID uuid.UUID `json:"room_id"`
}

type TourJob struct {
	TourID uuid.UUID `json:"tour_id"`
}
