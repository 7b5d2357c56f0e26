package main

import (
	"context"
	"log"

	"github.com/gemcommunity/blog/backend/internal/router"
	"github.com/gemcommunity/blog/backend/pkg/config"
	"github.com/gemcommunity/blog/backend/pkg/firebase"
	"github.com/gemcommunity/blog/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Validator
	e.Validator = validators.NewValidator()

	// Setup routes and dependencies
	dispatcher := router.SetupRoutes(e, cfg, db.Postgres, db.Mongo, firebaseApp.AuthClient)
	defer dispatcher.Close() // Drain in-flight push fan-outs on exit

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
