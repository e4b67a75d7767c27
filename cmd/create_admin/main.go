package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/database"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/internal/session"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// create_admin adds an administrator account without starting the server.
//
//	go run ./cmd/create_admin -email admin@example.com -password secret
func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "administrator email")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.Setup("development")

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	repos := repository.NewRepositories(db)
	authService := services.NewAuthService(repos.User, session.NewDBStore(repos.Session), nil, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := authService.EnsureAdmin(ctx, *email, *password)
	if err != nil {
		log.Fatalf("Failed to create administrator: %v", err)
	}
	if !created {
		log.Printf("A user with email %s already exists; nothing to do", *email)
		return
	}
	log.Printf("Administrator %s created", *email)
}
