package repository

import (
	"context"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines storage operations for uploaded image metadata.
// Errors come back raw; callers check gorm.ErrRecordNotFound themselves.
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uint) (*models.Image, error)
	GetByHash(ctx context.Context, hash string) (*models.Image, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository builds the GORM-backed image metadata store.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := readDB(r.db).WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// GetByHash looks up an image by its content hash. Re-uploads of the same
// bytes reuse the stored file instead of writing a duplicate.
func (r *imageRepository) GetByHash(ctx context.Context, hash string) (*models.Image, error) {
	var image models.Image
	if err := readDB(r.db).WithContext(ctx).Where("hash = ?", hash).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}
