package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"regnet/internal"
	"regnet/internal/config"
	"regnet/internal/container"
	"regnet/internal/errors"
)

// initDatabase connects to PostgreSQL when DATABASE_URL is set
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	db, err := initDatabase(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if db != nil {
		if err := appContainer.InitWithDatabase(ctx, db); err != nil {
			log.Fatalf("Failed to initialize container: %v", err)
		}
	} else {
		logger.Warn("DATABASE_URL not set; analysis reports will not be persisted")
	}

	if err := appContainer.Server.ListenAndServe(ctx, ":"+appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
