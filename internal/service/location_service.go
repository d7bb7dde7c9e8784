package service

import (
	"context"

	"blogicum/internal/models"
	"blogicum/internal/repository"
)

type LocationService struct {
	locationRepo repository.LocationRepository
}

type CreateLocationInput struct {
	Name        string
	IsPublished *bool
}

type UpdateLocationInput struct {
	ID          uint
	Name        string
	IsPublished *bool
}

func NewLocationService(locationRepo repository.LocationRepository) *LocationService {
	return &LocationService{locationRepo: locationRepo}
}

func (s *LocationService) ListPublished(ctx context.Context) ([]*models.Location, error) {
	return s.locationRepo.List(ctx, true)
}

func (s *LocationService) ListAll(ctx context.Context) ([]*models.Location, error) {
	return s.locationRepo.List(ctx, false)
}

func (s *LocationService) Create(ctx context.Context, in CreateLocationInput) (*models.Location, error) {
	const maxNameLen = 256

	if in.Name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if len(in.Name) > maxNameLen {
		return nil, models.NewValidationError("Name too long (max 256 characters)")
	}

	location := &models.Location{Name: in.Name, IsPublished: true}
	if in.IsPublished != nil {
		location.IsPublished = *in.IsPublished
	}

	if err := s.locationRepo.Create(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *LocationService) Update(ctx context.Context, in UpdateLocationInput) (*models.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		if len(in.Name) > 256 {
			return nil, models.NewValidationError("Name too long (max 256 characters)")
		}
		location.Name = in.Name
	}
	if in.IsPublished != nil {
		location.IsPublished = *in.IsPublished
	}

	if err := s.locationRepo.Update(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *LocationService) Delete(ctx context.Context, id uint) error {
	return s.locationRepo.Delete(ctx, id)
}
