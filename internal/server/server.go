// Package server contains the HTTP handlers that turn UI events into calls
// on the idea store and its services.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "ideon/docs" // swagger docs
	"ideon/internal/auth"
	"ideon/internal/config"
	"ideon/internal/featureflags"
	"ideon/internal/middleware"
	"ideon/internal/models"
	"ideon/internal/observability"
	"ideon/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Deps are the collaborators the HTTP surface dispatches to.
type Deps struct {
	Config   *config.Config
	Redis    *redis.Client
	Tokens   *auth.TokenIssuer
	Flags    *featureflags.Manager
	Ideas    *service.IdeaService
	Comments *service.CommentService
	Users    *service.UserService
	Auth     *service.AuthService
	// Backend names the persistence driver reported by the readiness probe.
	Backend string
}

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	redis          *redis.Client
	tokens         *auth.TokenIssuer
	featureFlags   *featureflags.Manager
	ideaService    *service.IdeaService
	commentService *service.CommentService
	userService    *service.UserService
	authService    *service.AuthService
	backend        string
	promMiddleware *fiberprometheus.FiberPrometheus
	app            *fiber.App
}

func NewServer(d Deps) *Server {
	s := &Server{
		config:         d.Config,
		redis:          d.Redis,
		tokens:         d.Tokens,
		featureFlags:   d.Flags,
		ideaService:    d.Ideas,
		commentService: d.Comments,
		userService:    d.Users,
		authService:    d.Auth,
		backend:        d.Backend,
		promMiddleware: middleware.InitMetrics("ideon-api"),
	}

	app := fiber.New(fiber.Config{
		AppName:      "Ideon API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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

// SetupRoutes configures all routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	authGroup := api.Group("/auth", middleware.OptionalAuth(s.tokens))
	authGroup.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/verify", middleware.RateLimit(s.redis, 10, 10*time.Minute, "verify"), s.Verify)
	authGroup.Post("/resend", middleware.RateLimit(s.redis, 3, 10*time.Minute, "resend"), s.ResendCode)
	authGroup.Post("/logout", s.Logout)
	authGroup.Get("/session", s.GetSession)

	protected := api.Group("", middleware.AuthRequired(s.tokens))

	protected.Get("/feed", s.GetFeed)
	protected.Put("/feed/query", s.TypeFeedQuery)
	protected.Get("/trending", s.GetTrending)
	protected.Get("/dashboard", s.GetDashboard)
	protected.Get("/feature-flags", s.GetFeatureFlags)

	ideas := protected.Group("/ideas")
	ideas.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "submit_idea"), s.CreateIdea)
	ideas.Post("/enhance", middleware.RateLimit(s.redis, 10, time.Minute, "enhance"), s.EnhanceIdea)
	ideas.Post("/close", s.CloseIdea)
	// specific /:id/:resource routes before the generic /:id route
	ideas.Post("/:id/open", s.OpenIdea)
	ideas.Post("/:id/like", s.LikeIdea)
	ideas.Post("/:id/share", s.ShareIdea)
	ideas.Get("/:id/comments", s.GetComments)
	ideas.Post("/:id/comments", middleware.RateLimit(s.redis, 20, time.Minute, "add_comment"), s.CreateComment)
	ideas.Put("/:id/comments/:commentId", s.UpdateComment)
	ideas.Delete("/:id/comments/:commentId", s.DeleteComment)
	ideas.Post("/:id/comments/:commentId/like", s.LikeComment)
	ideas.Get("/:id", s.GetIdea)

	users := protected.Group("/users")
	users.Get("/suggested", s.GetSuggestedUsers)
	users.Put("/me", s.UpdateMyProfile)
	users.Post("/profile/close", s.CloseProfile)
	users.Get("/:id/ideas", s.GetUserIdeas)
	users.Post("/:id/share", s.ShareProfile)
	users.Get("/:id", s.GetUserProfile)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the configured collaborators answer.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"storage": s.backend,
			"redis":   redisStatus,
		},
		"time": time.Now(),
	})
}

// Listen serves on the configured port until Shutdown.
func (s *Server) Listen() error {
	observability.GlobalLogger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
