// Package server contains the HTTP handlers for the blog API.
package server

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "blogicum-api"
	tokenAudience = "blogicum-client"
)

// Server wires config, storage, services and HTTP handlers together.
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	userRepo        repository.UserRepository
	postRepo        repository.PostRepository
	commentRepo     repository.CommentRepository
	categoryRepo    repository.CategoryRepository
	locationRepo    repository.LocationRepository
	imageRepo       repository.ImageRepository
	featureFlags    *featureflags.Manager
	postService     *service.PostService
	commentService  *service.CommentService
	userService     *service.UserService
	categoryService *service.CategoryService
	locationService *service.LocationService
	imageService    *service.ImageService
	statsService    *service.StatsService
}

// NewServer connects to the database and Redis, then assembles the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis first.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		promMiddleware: middleware.InitMetrics("blogicum-api"),
		db:             db,
		redis:          redisClient,
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		locationRepo:   repository.NewLocationRepository(db),
		imageRepo:      repository.NewImageRepository(db),
	}

	server.userService = service.NewUserService(server.userRepo)
	server.postService = service.NewPostService(
		server.postRepo, server.categoryRepo, server.locationRepo, server.userRepo, server.featureFlags)
	server.commentService = service.NewCommentService(
		server.commentRepo, server.postRepo, server.featureFlags, server.userService.IsAdmin)
	server.categoryService = service.NewCategoryService(server.categoryRepo)
	server.locationService = service.NewLocationService(server.locationRepo)
	server.imageService = service.NewImageService(server.imageRepo, server.featureFlags, cfg)
	server.statsService = service.NewStatsService(db)

	return server, nil
}

// SetupMiddleware installs the shared middleware chain. Order is deliberate:
// request IDs and context propagation run first so logging and tracing can
// pick them up, and CORS runs before the limiter so throttled browser
// clients still receive CORS headers on the 429.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config != nil && s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())
	app.Use(cors.New(s.corsConfig()))
	app.Use(limiter.New(globalLimiterConfig()))
}

const defaultAllowedOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

func (s *Server) corsConfig() cors.Config {
	return cors.Config{
		AllowOrigins:     cmp.Or(s.config.AllowedOrigins, defaultAllowedOrigins),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // seconds; one day
	}
}

// globalLimiterConfig throttles each client IP to 100 requests per minute.
// Preflight requests bypass it; browsers must always get a CORS answer.
func globalLimiterConfig() limiter.Config {
	return limiter.Config{
		Max:          100,
		Expiration:   time.Minute,
		Next:         isPreflight,
		KeyGenerator: clientIP,
		LimitReached: tooManyRequests,
	}
}

func isPreflight(c *fiber.Ctx) bool { return c.Method() == fiber.MethodOptions }

func clientIP(c *fiber.Ctx) string { return c.IP() }

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": "Too many requests, please try again later.",
	})
}

// SetupRoutes registers every endpoint on the app.
func (s *Server) SetupRoutes(app *fiber.App) {
	// Probes first; they bypass auth and should never 404.
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded post images are served straight off disk.
	app.Static("/uploads", s.imageSvc().UploadDir())

	api := app.Group("/api/v1")
	api.Get("/", s.HealthCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Blogicum Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/password", s.AuthRequired(), s.ChangePassword)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Public read surface. Specific /:id/:resource routes come BEFORE
	// the generic /:id route.
	api.Get("/posts", s.GetPosts)
	api.Get("/posts/:id/comments", s.GetComments)
	api.Get("/posts/:id", s.GetPost)

	api.Get("/categories", s.GetCategories)
	api.Get("/categories/:slug/posts", s.GetCategoryPosts)
	api.Get("/locations", s.GetLocations)

	api.Get("/users/:username/posts", s.GetUserPosts)
	api.Get("/users/:username", s.GetUserProfile)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/image", s.UploadPostImage)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id/comments/:commentId", s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	users := protected.Group("/users")
	users.Put("/me", s.UpdateMyProfile)
	users.Delete("/me", s.DeleteMyAccount)

	protected.Get("/flags", s.GetFeatureFlags)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	adminCategories := admin.Group("/categories")
	adminCategories.Get("/", s.AdminListCategories)
	adminCategories.Post("/", s.AdminCreateCategory)
	adminCategories.Put("/:id", s.AdminUpdateCategory)
	adminCategories.Delete("/:id", s.AdminDeleteCategory)

	adminLocations := admin.Group("/locations")
	adminLocations.Get("/", s.AdminListLocations)
	adminLocations.Post("/", s.AdminCreateLocation)
	adminLocations.Put("/:id", s.AdminUpdateLocation)
	adminLocations.Delete("/:id", s.AdminDeleteLocation)

	admin.Get("/stats", s.AdminStats)
}

// HealthCheck keeps the original /api/v1/ health alias answering.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck reports that the process is up without touching dependencies.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck pings the database and Redis. Only a failing database turns
// the response into a 503.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := s.databaseStatus(ctx)
	redisStatus := s.redisStatus(ctx)

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

func (s *Server) databaseStatus(ctx context.Context) string {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return "unhealthy"
	}
	return "healthy"
}

// redisStatus reports "unavailable" rather than "unhealthy" when no client
// is configured: the API keeps serving without Redis, caching and logout
// revocation simply switch off.
func (s *Server) redisStatus(ctx context.Context) string {
	if s.redis == nil {
		return "unavailable"
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// AdminRequired rejects non-admin callers with 403. Install it after
// AuthRequired so the user ID local is populated.
func (s *Server) AdminRequired() fiber.Handler {
	return s.requireAdmin
}

func (s *Server) requireAdmin(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	admin, err := s.isAdmin(c, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if !admin {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Admin access required"))
	}
	return c.Next()
}

// AuthRequired gates a route group on a valid, unrevoked access token.
func (s *Server) AuthRequired() fiber.Handler {
	return s.requireAuth
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	claims, userID, err := s.parseAccessToken(tokenString)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	if jti, ok := claims["jti"].(string); ok && jti != "" {
		if s.isTokenRevoked(c.Context(), jti) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}
		// Logout needs the JTI and expiry to blacklist the token.
		c.Locals("jti", jti)
	}
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		c.Locals("tokenExp", exp.Time)
	}

	c.Locals("userID", userID)
	// Sync to UserContext for logging and downstream services.
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))

	return c.Next()
}

// bearerToken pulls the JWT out of the Authorization header, falling back to
// the ?token query parameter for clients that cannot set headers.
func bearerToken(c *fiber.Ctx) string {
	scheme, token, found := strings.Cut(c.Get("Authorization"), " ")
	if found && scheme == "Bearer" && token != "" && !strings.Contains(token, " ") {
		return token
	}
	return c.Query("token")
}

// parseAccessToken verifies the signature, issuer and audience of an access
// token, returning its claims and the user ID carried in the subject.
func (s *Server) parseAccessToken(tokenString string) (jwt.MapClaims, uint, error) {
	token, err := jwt.Parse(tokenString, s.jwtKeyfunc)
	if err != nil || !token.Valid {
		return nil, 0, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, 0, models.NewUnauthorizedError("Invalid token claims")
	}
	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
		return nil, 0, models.NewUnauthorizedError("Invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
		return nil, 0, models.NewUnauthorizedError("Invalid token audience")
	}

	userID, err := subjectUserID(claims)
	if err != nil {
		return nil, 0, err
	}
	return claims, userID, nil
}

// jwtKeyfunc accepts only HMAC-signed tokens.
func (s *Server) jwtKeyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(s.config.JWTSecret), nil
}

// subjectUserID reads the numeric user ID out of the sub claim.
func subjectUserID(claims jwt.MapClaims) (uint, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid subject claim")
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	return uint(id), nil
}

func (s *Server) isTokenRevoked(ctx context.Context, jti string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
	return err == nil && n > 0
}

// optionalUserID extracts the caller's ID when a valid bearer token is
// present, without requiring one. Feed and detail reads use it so authors
// see their own hidden posts.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	scheme, tokenString, found := strings.Cut(c.Get("Authorization"), " ")
	if !found || scheme != "Bearer" || tokenString == "" {
		return 0, false
	}
	_, userID, err := s.parseAccessToken(tokenString)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// Start builds the Fiber app, wires middleware and routes, and listens.
func (s *Server) Start() error {
	app := fiber.New(s.fiberConfig())
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	slog.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

func (s *Server) fiberConfig() fiber.Config {
	bodyLimit := fiber.DefaultBodyLimit
	if s.config.ImageMaxUploadSizeMB > 0 {
		// One extra MB of headroom for the multipart framing.
		bodyLimit = (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024
	}

	return fiber.Config{
		AppName:   "Blogicum API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.ErrorContext(c.UserContext(), "unhandled handler error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	}
}

// Shutdown stops the HTTP listener and closes the database and Redis handles.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "error", rerr)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
