package repository

import (
	"context"
	"errors"
	"strings"

	"blogicum/internal/cache"
	"blogicum/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserRepository covers account persistence. The by-email and by-username
// lookups return (nil, nil) when no row matches so registration checks can
// tell "free" apart from "failed".
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds the GORM-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID serves profile reads through the cache-aside path; a miss loads
// from the replica and fills the cache.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		err := readDB(r.db).WithContext(ctx).First(&user, id).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return models.NewNotFoundError("User", id)
		case err != nil:
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.lookupUser(ctx, "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.lookupUser(ctx, "username = ?", username)
}

func (r *userRepository) lookupUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := readDB(r.db).WithContext(ctx).Where(query, arg).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	return mapWriteError(err, "username or email already taken")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err = mapWriteError(err, "username or email already taken"); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// mapWriteError turns a duplicate-key violation into a conflict the handler
// can report as 409; anything else becomes an internal error.
func mapWriteError(err error, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case isDuplicateKey(err):
		return models.NewConflictError(conflictMsg)
	default:
		return models.NewInternalError(err)
	}
}

// isDuplicateKey matches Postgres unique violations (SQLSTATE 23505).
// Errors that are not typed pgconn errors, such as the ones other drivers or
// test doubles produce, fall back to wording checks.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"duplicate key", "unique constraint", "23505"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Delete removes the user together with their posts, their comments, and the
// comments left under their posts. Everything goes in one transaction so no
// orphaned content survives.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.
			Where("post_id IN (?)", tx.Model(&models.Post{}).Select("id").Where("author_id = ?", id)).
			Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	cache.InvalidateHomeFeed(ctx)
	return nil
}
