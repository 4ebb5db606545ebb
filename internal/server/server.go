// Package server contains the HTTP handlers for the application's API
// endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"crewdesk/internal/cache"
	"crewdesk/internal/config"
	"crewdesk/internal/database"
	"crewdesk/internal/featureflags"
	"crewdesk/internal/middleware"
	"crewdesk/internal/notifications"
	"crewdesk/internal/repository"
	"crewdesk/internal/service"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier

	userRepo repository.UserRepository

	userService     *service.UserService
	categoryService *service.CategoryService
	tagService      *service.TagService
	postService     *service.PostService
	commentService  *service.CommentService
	projectService  *service.ProjectService
	taskService     *service.TaskService
}

// NewServer creates a server instance, establishing its own database and
// Redis connections.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests and the bootstrap layer use this after establishing DB/Redis
// themselves.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: fiberprometheus.New("crewdesk-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(redisClient),
		userRepo:       userRepo,
	}
	server.userService = service.NewUserService(userRepo)
	server.categoryService = service.NewCategoryService(categoryRepo)
	server.tagService = service.NewTagService(tagRepo)
	server.postService = service.NewPostService(postRepo, tagRepo, categoryRepo)
	server.commentService = service.NewCommentService(commentRepo, postRepo)
	server.projectService = service.NewProjectService(projectRepo, userRepo)
	server.taskService = service.NewTaskService(taskRepo, projectRepo, userRepo)

	middleware.InitMiddleware(cfg)
	middleware.SetBlacklistClient(redisClient)

	return server, nil
}

// SetupMiddleware configures the middleware stack for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP).
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", middleware.AuthRequired, s.Refresh)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// User routes
	users := api.Group("/users")
	users.Get("/me", middleware.AuthRequired, s.GetMe)
	users.Put("/me", middleware.AuthRequired, s.UpdateMe)
	users.Post("/me/password", middleware.AuthRequired, s.ChangePassword)
	users.Get("/me/profile", middleware.AuthRequired, s.GetMyProfile)
	users.Put("/me/profile", middleware.AuthRequired, s.UpdateMyProfile)
	users.Get("/", middleware.AuthRequired, s.ListUsers)
	// Specific /:id/:resource routes go before the generic /:id route.
	users.Get("/:id/posts", middleware.OptionalAuth, s.GetUserPosts)
	users.Post("/:id/promote", middleware.AuthRequired, s.PromoteUser)
	users.Post("/:id/demote", middleware.AuthRequired, s.DemoteUser)
	users.Delete("/:id", middleware.AuthRequired, s.DeactivateUser)
	users.Get("/:id", middleware.OptionalAuth, s.GetUser)

	// Category routes
	categories := api.Group("/categories")
	categories.Get("/", middleware.OptionalAuth, s.ListCategories)
	categories.Post("/", middleware.AuthRequired, s.CreateCategory)
	categories.Get("/tree", s.CategoryTree)
	categories.Get("/:slug/stats", middleware.AuthRequired, s.CategoryStats)
	categories.Get("/:slug", s.GetCategory)
	categories.Put("/:slug", middleware.AuthRequired, s.UpdateCategory)
	categories.Delete("/:slug", middleware.AuthRequired, s.DeleteCategory)

	// Tag routes
	tags := api.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Post("/", middleware.AuthRequired, s.CreateTag)
	tags.Get("/:slug", s.GetTag)

	// Post routes
	posts := api.Group("/posts")
	posts.Get("/", middleware.OptionalAuth, s.ListPosts)
	posts.Post("/", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/bookmarks", middleware.AuthRequired, s.ListBookmarkedPosts)
	posts.Post("/:slug/like", middleware.AuthRequired, s.ToggleLike)
	posts.Post("/:slug/bookmark", middleware.AuthRequired, s.ToggleBookmark)
	posts.Get("/:slug/comments", middleware.OptionalAuth, s.ListComments)
	posts.Post("/:slug/comments", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 15, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:slug/stats", middleware.OptionalAuth, s.PostStats)
	posts.Get("/:slug", middleware.OptionalAuth, s.GetPost)
	posts.Put("/:slug", middleware.AuthRequired, s.UpdatePost)
	posts.Delete("/:slug", middleware.AuthRequired, s.DeletePost)

	// Comment routes (item-level; creation and listing live under posts)
	comments := api.Group("/comments")
	comments.Get("/pending", middleware.AuthRequired, s.ListPendingComments)
	comments.Get("/:id/replies", middleware.OptionalAuth, s.ListReplies)
	comments.Post("/:id/approve", middleware.AuthRequired, s.ApproveComment)
	comments.Post("/:id/reject", middleware.AuthRequired, s.RejectComment)
	comments.Put("/:id", middleware.AuthRequired, s.UpdateComment)
	comments.Delete("/:id", middleware.AuthRequired, s.DeleteComment)

	// Project routes
	projects := api.Group("/projects", middleware.AuthRequired)
	projects.Get("/", s.ListProjects)
	projects.Post("/", s.CreateProject)
	projects.Post("/:id/members", s.AddProjectMember)
	projects.Delete("/:id/members/:userId", s.RemoveProjectMember)
	projects.Get("/:id", s.GetProject)
	projects.Put("/:id", s.UpdateProject)
	projects.Delete("/:id", s.DeleteProject)

	// Task routes
	tasks := api.Group("/tasks", middleware.AuthRequired)
	tasks.Get("/", s.ListTasks)
	tasks.Post("/", s.CreateTask)
	tasks.Get("/mine", s.MyTasks)
	tasks.Get("/overdue", s.OverdueTasks)
	tasks.Get("/stats", s.TaskStats)
	tasks.Post("/:id/status", s.ChangeTaskStatus)
	tasks.Get("/:id/comments", s.ListTaskComments)
	tasks.Post("/:id/comments", s.AddTaskComment)
	tasks.Get("/:id/attachments", s.ListTaskAttachments)
	tasks.Post("/:id/attachments", s.AddTaskAttachment)
	tasks.Delete("/:id/attachments/:attachmentId", s.DeleteTaskAttachment)
	tasks.Get("/:id", s.GetTask)
	tasks.Put("/:id", s.UpdateTask)
	tasks.Patch("/:id", s.UpdateTask)
	tasks.Delete("/:id", s.DeleteTask)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthRequired)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. The database is
// required; Redis degrades features but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
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
