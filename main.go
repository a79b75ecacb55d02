package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/adapters/datasource"
	"github.com/dbchat-ai/dbchat-engine/pkg/config"
	"github.com/dbchat-ai/dbchat-engine/pkg/crypto"
	"github.com/dbchat-ai/dbchat-engine/pkg/database"
	"github.com/dbchat-ai/dbchat-engine/pkg/handlers"
	"github.com/dbchat-ai/dbchat-engine/pkg/llm"
	"github.com/dbchat-ai/dbchat-engine/pkg/logging"
	"github.com/dbchat-ai/dbchat-engine/pkg/middleware"
	"github.com/dbchat-ai/dbchat-engine/pkg/repositories"
	"github.com/dbchat-ai/dbchat-engine/pkg/retry"
	"github.com/dbchat-ai/dbchat-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Optional .env for local development; real deployments use the
	// process environment.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("shared_tier", cfg.Ask.SharedTier))

	ctx := context.Background()

	// Engine store and migrations. The migration runner uses a plain
	// database/sql handle; the repositories use the pgx pool.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger)
	})
	if err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	// The store may still be coming up when the engine starts; retry
	// with backoff instead of crash-looping.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine store", zap.Error(err))
	}
	defer db.Close()

	client, err := llm.NewClient(cfg.LLM.Provider, &llm.Config{
		Endpoint:       cfg.LLM.Endpoint,
		Model:          cfg.LLM.Model,
		APIKey:         cfg.LLM.APIKey,
		MaxTokens:      cfg.LLM.MaxTokens,
		RequestTimeout: time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	var encryptor *crypto.CredentialEncryptor
	if cfg.CredentialsKey != "" {
		encryptor, err = crypto.NewCredentialEncryptor(cfg.CredentialsKey)
		if err != nil {
			logger.Fatal("Failed to create credential encryptor", zap.Error(err))
		}
	} else {
		logger.Warn("CREDENTIALS_KEY not set, target-database passwords stored in plaintext")
	}

	datasourceRepo := repositories.NewDatasourceRepository(db, encryptor)
	sessionRepo := repositories.NewSessionRepository(db)
	conversationRepo := repositories.NewConversationRepository(db)
	usageRepo := repositories.NewUsageRepository(db)

	sessions := services.NewSessionService(sessionRepo, conversationRepo, logger)
	usage := services.NewUsageService(usageRepo, cfg.Ask.SharedTier, cfg.Ask.SharedTierDailyLimit, logger)
	generator := services.NewSQLGenerator(client, cfg.Ask.MaxRetries, cfg.LLM.SQLTemperature, logger)
	answers := services.NewAnswerService(client, cfg.LLM.AnswerTemperature, logger)
	introspector := datasource.NewIntrospector(logger)
	executor := datasource.NewExecutor(logger)

	ask := services.NewAskService(datasourceRepo, sessions, usage, generator, answers,
		introspector, executor, cfg.Ask, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewDatasourceHandler(datasourceRepo, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(ask, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting dbchat-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
