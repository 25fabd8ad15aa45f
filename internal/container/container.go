package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"regnet/adapters/postgres"
	"regnet/app"
	"regnet/internal"
	"regnet/internal/api"
	"regnet/internal/config"
	"regnet/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer); nil when no database is configured
	RunRepo ports.RunRepository

	// Services
	Analysis *app.AnalysisService
	Server   *api.Server
}

// New creates a new dependency injection container without persistence
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NopLogger()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initServices()
	return c, nil
}

// InitWithDatabase attaches a database, migrates the schema and rebuilds
// the services on top of the run repository
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	repo := postgres.NewRunRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate run repository: %w", err)
	}

	c.DB = db
	c.RunRepo = repo
	c.initServices()

	c.Logger.Info("container initialized with database connection")
	return nil
}

func (c *Container) initServices() {
	c.Analysis = app.NewAnalysisService(c.RunRepo, c.Logger)
	c.Server = api.NewServer(c.Analysis, c.Config.Analysis, c.Logger)
}

// Shutdown releases held resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		c.DB = nil
	}
	return nil
}
