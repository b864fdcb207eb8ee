package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TourStatus: generating -> completed | failed, exactly once per generation
// request. A completed tour is immutable; regeneration inserts a new row.
type TourStatus string

const (
	TourGenerating TourStatus = "generating"
	TourCompleted  TourStatus = "completed"
	TourFailed     TourStatus = "failed"
)

type Tour struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PropertyID uuid.UUID  `gorm:"type:uuid;not null;index:ix_tours_property_id" json:"property_id"`
	Name       string     `gorm:"type:text;not null" json:"name"`
	Status     TourStatus `gorm:"type:text;not null;default:'generating';check:status IN ('generating','completed','failed')" json:"status"`
	Reason     string     `gorm:"type:text" json:"reason,omitempty"`

	// RoomIDs is the ordered snapshot of Completed rooms taken when the
	// generation request was accepted; rooms uploaded afterwards are not
	// part of this tour.
	RoomIDs    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"room_ids"`
	SceneCount int                         `gorm:"not null;default:0" json:"scene_count"`

	Narrated bool   `gorm:"not null;default:false" json:"narrated"`
	Voice    string `gorm:"type:text" json:"voice,omitempty"`

	TourURL *string `gorm:"type:text" json:"tour_url"`
	// Narration maps scene name (plus "intro"/"outro") to an audio URL.
	// A scene may be absent when its synthesis failed.
	Narration datatypes.JSONMap `gorm:"type:jsonb" json:"narration,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Tour <-> Property
	Property *Property `gorm:"foreignKey:PropertyID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"property,omitempty"`
}

func (Tour) TableName() string { return "tours" }
