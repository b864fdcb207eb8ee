package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/repo"
	"gorm.io/gorm"
)

type PropertyService struct {
	props repo.PropertyRepo
}

func NewPropertyService(props repo.PropertyRepo) *PropertyService {
	return &PropertyService{props: props}
}

func (s *PropertyService) Create(ctx context.Context, p *model.Property) error {
	return s.props.Create(ctx, p)
}

func (s *PropertyService) Get(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	p, err := s.props.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPropertyNotFound
	}
	return p, err
}
