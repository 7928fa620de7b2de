package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/adapters/datasource/mssql"
	"github.com/actoengine/actoengine/pkg/adapters/datasource/postgres"
	"github.com/actoengine/actoengine/pkg/config"
	"github.com/actoengine/actoengine/pkg/database"
	"github.com/actoengine/actoengine/pkg/handlers"
	"github.com/actoengine/actoengine/pkg/middleware"
	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/repositories"
	"github.com/actoengine/actoengine/pkg/services"
	"github.com/actoengine/actoengine/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Optional .env for local development; real environments set variables
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(ctx, &cfg.Database)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to metadata store", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Target database adapters.
	datasource.Register(models.EngineSQLServer, mssql.NewAdapter(cfg.Sync.AppName, cfg.IsProduction(), logger))
	datasource.Register(models.EnginePostgres, postgres.NewAdapter(cfg.Sync.AppName, logger))

	// Repositories.
	projectRepo := repositories.NewProjectRepository(db.DB)
	schemaRepo := repositories.NewSchemaRepository(db.DB)
	statusRepo := repositories.NewSyncStatusRepository(db.DB)
	clientRepo := repositories.NewClientRepository(db.DB)
	analysisRepo := repositories.NewAnalysisRepository(db.DB)

	// Services.
	analyzer := services.NewDependencyAnalyzer(schemaRepo, analysisRepo, logger)
	detector := services.NewLogicalFkDetector(schemaRepo, analysisRepo, logger)
	orchestrator := services.NewSyncOrchestrator(db, projectRepo, schemaRepo, statusRepo, clientRepo, analyzer, detector, logger)
	locks := services.NewKeyLock(time.Duration(cfg.Sync.LockTTLMinutes) * time.Minute)
	syncService := services.NewSyncService(projectRepo, statusRepo, orchestrator, locks,
		time.Duration(cfg.Sync.TimeoutMinutes)*time.Minute, logger)
	connectionService := services.NewConnectionService(logger)
	projectService := services.NewProjectService(projectRepo, schemaRepo, analysisRepo, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux)
	handlers.NewSyncHandler(syncService, connectionService, logger).RegisterRoutes(mux)

	// Serve static UI files (embedded in production, live from disk with
	// the debug build tag).
	dist, err := fs.Sub(ui.DistFS(), "dist")
	if err != nil {
		logger.Fatal("Failed to mount UI assets", zap.Error(err))
	}
	mux.Handle("/", http.FileServer(http.FS(dist)))

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting actoengine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
