package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Property struct {
	ID           uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title        string                      `gorm:"type:text;not null" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	Address      string                      `gorm:"type:text" json:"address"`
	Price        int64                       `json:"price"`
	PropertyType string                      `gorm:"type:text" json:"property_type"`
	Bedrooms     int                         `json:"bedrooms"`
	Bathrooms    float64                     `json:"bathrooms"`
	SquareFeet   int                         `json:"square_feet"`
	Features     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"features"`
	HasTour      bool                        `gorm:"not null;default:false" json:"has_tour"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Property <-> Room
	Rooms []Room `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"rooms,omitempty"`

	// Property <-> Tour
	Tours []Tour `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"tours,omitempty"`
}

func (Property) TableName() string { return "properties" }
