package model

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the per-upload processing state machine:
// pending -> processing -> completed | failed, exactly once per upload.
// A re-upload resets the room to pending and supersedes prior artifacts.
type RoomStatus string

const (
	RoomPending    RoomStatus = "pending"
	RoomProcessing RoomStatus = "processing"
	RoomCompleted  RoomStatus = "completed"
	RoomFailed     RoomStatus = "failed"
)

type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PropertyID  uuid.UUID `gorm:"type:uuid;not null;index:ix_rooms_property_id" json:"property_id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Category    string    `gorm:"type:text" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	FloorArea   *float64  `gorm:"type:numeric" json:"floor_area"`

	SourceImagePath   string     `gorm:"type:text" json:"-"`
	ProcessedImageURL *string    `gorm:"type:text" json:"processed_image_url"`
	ThumbnailURL      *string    `gorm:"type:text" json:"thumbnail_url"`
	ProcessingStatus  RoomStatus `gorm:"type:text;not null;default:'pending';check:processing_status IN ('pending','processing','completed','failed')" json:"processing_status"`
	FailureReason     string     `gorm:"type:text" json:"failure_reason,omitempty"`

	// SortOrder drives scene ordering within a property; ties break on
	// creation time.
	SortOrder int `gorm:"not null;default:0;index:ix_rooms_property_sort,priority:2" json:"sort_order"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Room <-> Property
	Property *Property `gorm:"foreignKey:PropertyID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"property,omitempty"`
}

func (Room) TableName() string { return "rooms" }
