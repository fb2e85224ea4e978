package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"direct-chat-relay/backend/internal/models"
	"direct-chat-relay/backend/pkg/config"
	"direct-chat-relay/backend/pkg/di"
	"direct-chat-relay/backend/pkg/logger"
	"direct-chat-relay/backend/pkg/router"
	"direct-chat-relay/backend/pkg/secrets"
	"direct-chat-relay/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logConfig.Level = level
	}
	logConfig.JSON = os.Getenv("LOG_FORMAT") != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting chat relay", "version", os.Getenv("APP_VERSION"))

	// Secrets: Vault when enabled, environment otherwise
	if err := secrets.Init(log); err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}
	jwtSecret := secrets.GetSecretWithDefault(context.Background(), "jwt_secret", os.Getenv("JWT_SECRET"))
	if dbPassword, err := secrets.GetSecret(context.Background(), "db_password"); err == nil {
		os.Setenv("DB_PASSWORD", dbPassword)
	}

	cfg := config.New()

	// Observability
	shutdownTracing := observability.SetupTracing("chat-relay")
	defer shutdownTracing()
	meterProvider := observability.SetupPrometheusMetrics()
	defer meterProvider.Shutdown(context.Background())

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Conversation history is always queried by conversation id + timestamp
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conv_ts ON messages(conversation_id, timestamp)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_conv_ts")
	}

	// Initialize dependency injection container
	diConfig := di.DefaultConfig()
	diConfig.LoggerConfig = logConfig
	diConfig.JWTSecret = jwtSecret
	diConfig.JWTExpiry = cfg.JWT.Expiry

	container, err := di.New(db, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Add OpenAPI validation if schema file is available
	schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH")
	if schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	// Close live websocket sessions first so presence state is persisted
	r.Hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
		os.Exit(1)
	}

	log.Info("Server exited")
}
