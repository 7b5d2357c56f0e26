package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/gemcommunity/blog/backend/internal/handlers"
	"github.com/gemcommunity/blog/backend/internal/middleware"
	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
	"github.com/gemcommunity/blog/backend/internal/services"
	"github.com/gemcommunity/blog/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS()) // answers OPTIONS preflights permissively, webhook included
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// It returns the push dispatcher so main can drain it on shutdown.
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client) *services.Dispatcher {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
		&models.Notification{},
		&models.PushSubscription{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgClient.Database("communityblog"))
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	bookmarkRepo := repositories.NewPostgresBookmarkRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	pushSubscriptionRepo := repositories.NewPostgresPushSubscriptionRepository(pgdb)

	// --- Initialize Services ---
	hub := services.NewHub()
	notifier := services.NewNotifier(notificationRepo, hub)
	sender := services.NewVAPIDSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	pusher := services.NewPusher(postRepo, pushSubscriptionRepo, sender)
	dispatcher := services.NewDispatcher(pusher, cfg.PushWorkers, cfg.PushQueueSize, cfg.PushMaxRetries)
	log.Println("Notification services configured.")

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Webhook entry point (token-authenticated, outside the JWT group) ---
	pushHandler := handlers.NewPushHandler(pushSubscriptionRepo, pusher, cfg.VAPIDPublicKey, cfg.WebhookToken)
	pushHandler.RegisterWebhookRoutes(e)
	log.Println("Webhook routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	api.GET("/users/search", userHandler.SearchUsers)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, notifier, dispatcher)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Like routes
	likeHandler := handlers.NewLikeHandler(likeRepo, postRepo, notifier)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	// Bookmark routes
	bookmarkHandler := handlers.NewBookmarkHandler(bookmarkRepo, postRepo)
	bookmarkHandler.RegisterBookmarkRoutes(api)
	log.Println("Bookmark routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo, hub)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Live notification stream
	streamHandler := handlers.NewNotificationStreamHandler(hub)
	streamHandler.RegisterStreamRoutes(api)
	log.Println("Notification stream routes configured.")

	// Push subscription routes
	pushHandler.RegisterPushRoutes(api)
	log.Println("Push subscription routes configured.")

	log.Println("All routes configured.")
	return dispatcher
}
