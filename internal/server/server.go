// Package server contains the HTTP handlers and routing for chirper.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chirper/internal/bootstrap"
	"chirper/internal/config"
	"chirper/internal/middleware"
	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/service"
	"chirper/internal/sessions"
	"chirper/internal/storage"
	"chirper/internal/validation"
	"chirper/internal/wizard"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          storage.ImageStore
	sessions       *session.Store
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	authLimiter    *middleware.Limiter

	userRepo repository.UserRepository

	signup  *service.SignupService
	auth    *service.AuthService
	profile *service.ProfileService
	tweets  *service.TweetService
	social  *service.SocialService
}

// NewServer connects to the database, Redis and the media store and
// creates a server instance with all dependencies.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// rdb may be nil, in which case sessions are kept in memory.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client, store storage.ImageStore) (*Server, error) {
	if db == nil {
		return nil, errors.New("server: database is required")
	}
	if store == nil {
		return nil, errors.New("server: image store is required")
	}

	userRepo := repository.NewUserRepository(db)
	tweetRepo := repository.NewTweetRepository(db)
	followRepo := repository.NewFollowRepository(db)

	policy := validation.PasswordPolicy{MinLength: cfg.PasswordMinLength}
	tokens := service.NewResetTokens(cfg.ResetTokenSecret, cfg.ResetTokenTTL)
	mailer := service.LogMailer{Logger: middleware.Logger}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		store:          store,
		sessions:       sessions.NewStore(cfg, rdb),
		promMiddleware: middleware.InitMetrics("chirper"),
		authLimiter:    middleware.NewLimiter(rdb, cfg.Env, 10, time.Minute, middleware.FailOpen).OnlyMethods(fiber.MethodPost),
		userRepo:       userRepo,
	}
	s.signup = service.NewSignupService(userRepo, policy)
	s.auth = service.NewAuthService(userRepo, policy, tokens, mailer, service.AuthConfig{
		BaseURL:  cfg.BaseURL,
		MailFrom: cfg.MailFrom,
	})
	s.profile = service.NewProfileService(userRepo, tweetRepo, followRepo, store)
	s.tweets = service.NewTweetService(tweetRepo, userRepo, store)
	s.social = service.NewSocialService(userRepo, followRepo, store)
	return s, nil
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	maxUpload := s.config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 10
	}
	app := fiber.New(fiber.Config{
		AppName: "chirper",
		// Room for the multipart envelope around the largest upload.
		BodyLimit:    (maxUpload + 1) * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Copies request and trace ids into the request context for slog.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		// Credentials cannot be combined with a wildcard origin.
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			if s.config.Env == "test" || c.Method() == fiber.MethodOptions {
				return true
			}
			p := c.Path()
			return strings.HasPrefix(p, "/health/") || p == "/metrics"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application. Single-segment
// literal paths are registered before the /:id/ profile routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok && strings.HasPrefix(s.config.MediaURL, "/") {
		app.Static(strings.TrimSuffix(s.config.MediaURL, "/"), local.Root())
	}

	app.Get("/", s.scoped(s.Index))

	// Signup wizard
	app.Get(wizard.InfoPath, s.scoped(s.SignupInfo))
	app.Post(wizard.InfoPath, s.scoped(s.SubmitSignupInfo))
	app.Get(wizard.PasswordPath, s.scoped(s.SignupPassword))
	app.Post(wizard.PasswordPath, s.scoped(s.SubmitSignupPassword))
	app.Get(wizard.ConfirmPath, s.scoped(s.SignupConfirm))
	app.Post(wizard.ConfirmPath, s.scoped(s.SubmitSignupConfirm))
	app.Get(wizard.ThanksPath, s.scoped(s.Thanks))

	// Sign in / out
	app.Get("/signin/", s.scoped(s.Signin))
	app.Post("/signin/", s.authLimiter.Handler("signin"), s.scoped(s.SubmitSignin))
	app.Get("/signout/", s.scoped(s.Signout))

	// Password reset
	app.Get("/password_reset/", s.scoped(s.PasswordReset))
	app.Post("/password_reset/", s.authLimiter.Handler("password_reset"), s.scoped(s.SubmitPasswordReset))
	app.Get("/password_reset/sent/", s.scoped(s.PasswordResetSent))
	app.Get("/password_reset/complete/", s.scoped(s.PasswordResetComplete))
	app.Get("/reset/:uidb64/:token/", s.scoped(s.PasswordResetConfirm))
	app.Post("/reset/:uidb64/:token/", s.scoped(s.SubmitPasswordResetConfirm))

	// Tweets
	tweets := app.Group("/tweets")
	tweets.Get("/post/", s.authenticated(s.NewTweet))
	tweets.Post("/post/", s.authenticated(s.CreateTweet))
	tweets.Post("/like/", s.authenticated(s.LikeTweet))
	tweets.Get("/:id/edit/", s.authenticated(s.EditTweet))
	tweets.Post("/:id/edit/", s.authenticated(s.UpdateTweet))
	tweets.Get("/:id/delete/", s.authenticated(s.ConfirmDeleteTweet))
	tweets.Post("/:id/delete/", s.authenticated(s.DeleteTweet))
	tweets.Get("/:username/:id/", s.authenticated(s.TweetDetail))

	app.Get("/home/", s.authenticated(s.Home))

	// Profiles and the social graph
	app.Get("/:id/edit/", s.authenticated(s.EditProfile))
	app.Post("/:id/edit/", s.authenticated(s.UpdateProfile))
	app.Post("/:id/follow", s.authenticated(s.Follow))
	app.Post("/:id/unfollow", s.authenticated(s.Unfollow))
	app.Get("/:username/followers", s.authenticated(s.Followers))
	app.Get("/:username/following", s.authenticated(s.Following))
	app.Get("/:id/", s.authenticated(s.Profile))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Without Redis the app still serves from memory sessions.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

func profilePath(id uint) string {
	return fmt.Sprintf("/%d/", id)
}

func tweetPath(username string, id uint) string {
	return fmt.Sprintf("/tweets/%s/%d/", username, id)
}
