package server

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"blogicum/internal/featureflags"
	"blogicum/internal/models"
	"blogicum/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is how long issued tokens stay valid. Logout blacklists the JTI
// for the remaining lifetime instead of shortening this.
const tokenTTL = time.Hour * 24 * 7

// Register handles POST /api/v1/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledOr(featureflags.FlagRegistration, 0, true) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Registration is currently closed"))
	}

	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	for _, vErr := range []error{
		validation.ValidateUsername(req.Username),
		validation.ValidateEmail(req.Email),
		validation.ValidatePassword(req.Password),
	} {
		if vErr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(vErr.Error()))
		}
	}

	// Check for an existing account before hashing; the unique indexes
	// still back this up under concurrent signups.
	existing, err := s.userRepo.GetByUsername(c.Context(), req.Username)
	if err != nil {
		return respondServiceError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Username already taken"))
	}
	existing, err = s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Email already registered"))
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
	}
	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return respondServiceError(c, createErr)
	}

	return s.respondWithToken(c, fiber.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userRepo.GetByUsername(c.Context(), req.Username)
	if err != nil {
		return respondServiceError(c, err)
	}
	// One message for both failure shapes; don't leak which usernames exist.
	if user == nil || !passwordMatches(user.PasswordHash, req.Password) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	// Best effort; a login must not fail over the bookkeeping write.
	now := time.Now()
	user.LastLoginAt = &now
	_ = s.userRepo.Update(c.Context(), user)

	return s.respondWithToken(c, fiber.StatusOK, user)
}

// Logout handles POST /api/v1/auth/logout. The token's JTI goes on the
// Redis blacklist until the token would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	if jti == "" || s.redis == nil {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	ttl := tokenTTL
	if exp, ok := c.Locals("tokenExp").(time.Time); ok {
		ttl = time.Until(exp)
	}
	if ttl > 0 {
		if err := s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl).Err(); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// ChangePassword handles POST /api/v1/auth/password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userSvc().GetUserByID(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	if !passwordMatches(user.PasswordHash, req.OldPassword) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Current password is incorrect"))
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	user.PasswordHash = hashed
	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// Me handles GET /api/v1/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userSvc().GetUserByID(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(ownerProfile(user))
}

// respondWithToken signs a fresh access token for user and answers with it
// alongside the owner profile.
func (s *Server) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"token": token,
		"user":  ownerProfile(user),
	})
}

// generateToken mints a signed HS256 access token for the user. The subject
// carries the user ID; the username rides along so clients can display it
// without another request.
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", errors.New("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
		"jti":      s.generateJTI(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID so individual tokens can be revoked
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%.8s", time.Now().Unix(), uuid.NewString())
}

func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func passwordMatches(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
