package service

import (
	"context"
	"fmt"

	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

type UpdateProfileInput struct {
	UserID    uint
	FirstName string
	LastName  string
	Email     string
	Bio       string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetUserByUsername resolves a public profile; unknown usernames are a not-found.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundMessageError("user not found")
	}
	return user, nil
}

// patchProfileField writes val through dst when non-empty, enforcing the
// column cap first.
func patchProfileField(dst *string, val, field string, maxLen int) error {
	if val == "" {
		return nil
	}
	if len(val) > maxLen {
		return models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", field, maxLen))
	}
	*dst = val
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxNameLen = 80
	const maxBioLen = 500

	if err := patchProfileField(&user.FirstName, in.FirstName, "First name", maxNameLen); err != nil {
		return nil, err
	}
	if err := patchProfileField(&user.LastName, in.LastName, "Last name", maxNameLen); err != nil {
		return nil, err
	}
	if err := patchProfileField(&user.Bio, in.Bio, "Bio", maxBioLen); err != nil {
		return nil, err
	}
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = in.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user and, through the repository, every post and
// comment that hangs off them.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}

// IsAdmin reports whether a user holds the administrator bit. Services that
// need an admin check receive this method as a plain function value.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}
