// Package server contains the HTTP handlers and middleware wiring for Warbler.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// sessionPurgeInterval is how often expired database sessions are removed.
const sessionPurgeInterval = time.Hour

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	sessions *session.Manager
	dbStore  *session.DBStore

	authService    *service.AuthService
	userService    *service.UserService
	followService  *service.FollowService
	likeService    *service.LikeService
	messageService *service.MessageService
	feedService    *service.FeedService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Sessions live in Redis when rdb is non-nil and in the database otherwise.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("server: database is required")
	}

	userRepo := repository.NewUserRepository(db, rdb)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("warbler"),
	}

	var store session.Store
	if rdb != nil {
		store = session.NewRedisStore(rdb)
	} else {
		s.dbStore = session.NewDBStore(repository.NewSessionRepository(db))
		store = s.dbStore
	}
	s.sessions = session.NewManager(store, cfg.SecretKey, time.Duration(cfg.SessionTTLHours)*time.Hour)

	s.authService = service.NewAuthService(userRepo, cfg.BcryptCost)
	s.followService = service.NewFollowService(userRepo, followRepo)
	s.likeService = service.NewLikeService(messageRepo, likeRepo)
	s.messageService = service.NewMessageService(messageRepo)
	s.feedService = service.NewFeedService(messageRepo, s.messageService, cfg.FeedLimit)
	s.userService = service.NewUserService(userRepo, followRepo, messageRepo, s.followService, s.feedService, cfg.FeedLimit)

	return s, nil
}

// NewApp builds a Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Warbler",
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.NoStore())
	app.Use(middleware.StructuredLogger())

	// Global backstop; the Redis limiter below guards the credential forms.
	app.Use(limiter.New(limiter.Config{
		Max:        200,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(s.SessionGate())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Get("/", s.Homepage)

	app.Get("/signup", s.SignupForm)
	app.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	app.Get("/login", s.LoginForm)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)

	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	// Fixed paths before /:id
	users.Get("/profile", s.AuthRequired(), s.EditProfileForm)
	users.Post("/profile", s.AuthRequired(), s.UpdateProfile)
	users.Post("/delete", s.AuthRequired(), s.DeleteAccount)
	users.Post("/follow/:id", s.AuthRequired(), s.Follow)
	users.Post("/stop-following/:id", s.AuthRequired(), s.StopFollowing)
	users.Get("/:id/following", s.AuthRequired(), s.ShowFollowing)
	users.Get("/:id/followers", s.AuthRequired(), s.ShowFollowers)
	users.Get("/:id/likes", s.AuthRequired(), s.ShowLikes)
	users.Get("/:id", s.ShowUser)

	messages := app.Group("/messages")
	messages.Get("/new", s.AuthRequired(), s.NewMessageForm)
	messages.Post("/new", s.AuthRequired(), s.CreateMessage)
	messages.Post("/:id/delete", s.AuthRequired(), s.DeleteMessage)
	messages.Post("/:id/like", s.AuthRequired(), s.ToggleLike)
	messages.Get("/:id", s.ShowMessage)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.dbStore != nil {
		go s.purgeSessions(ctx)
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.dbStore.Purge(ctx)
			if err != nil {
				middleware.Logger.Warn("session purge failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				middleware.Logger.Info("expired sessions purged", slog.Int64("count", n))
			}
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing sql DB", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
