package repository

import (
	"context"
	"errors"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// LocationRepository defines persistence operations for locations.
type LocationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Location, error)
	List(ctx context.Context, publishedOnly bool) ([]*models.Location, error)
	Create(ctx context.Context, location *models.Location) error
	Update(ctx context.Context, location *models.Location) error
	Delete(ctx context.Context, id uint) error
}

type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository returns a new LocationRepository implementation.
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := readDB(r.db).WithContext(ctx).First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Location", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &location, nil
}

func (r *locationRepository) List(ctx context.Context, publishedOnly bool) ([]*models.Location, error) {
	var locations []*models.Location
	query := readDB(r.db).WithContext(ctx).Order("name ASC, id ASC")
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Find(&locations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return locations, nil
}

func (r *locationRepository) Create(ctx context.Context, location *models.Location) error {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *locationRepository) Update(ctx context.Context, location *models.Location) error {
	if err := r.db.WithContext(ctx).Save(location).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete hard-deletes a location and detaches the posts that used it,
// matching the ON DELETE SET NULL constraint on posts.location_id.
func (r *locationRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Location{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Location", id)
		}
		return tx.Model(&models.Post{}).
			Where("location_id = ?", id).
			Update("location_id", nil).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}
