package di

import (
	"context"
	"time"

	"direct-chat-relay/backend/internal/service"
	"direct-chat-relay/backend/pkg/cache"
	"direct-chat-relay/backend/pkg/config"
	"direct-chat-relay/backend/pkg/jwt"
	"direct-chat-relay/backend/pkg/logger"
	"direct-chat-relay/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Logger         *logger.Logger
	JWTService     *jwt.Service
	UserService    *service.UserService
	MessageService *service.MessageService
	PageCache      *cache.Cache
	Redis          *redis.Client
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	JWTSecret    string
	JWTExpiry    time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig: logger.DefaultConfig(),
		JWTSecret:    "",
		JWTExpiry:    0, // Use default
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	log := logger.New(cfg.LoggerConfig)
	appCfg := config.Get()

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry)

	userService := service.NewUserService(db, jwtService, log)
	messageService := service.NewMessageService(db)

	// Optional redis cache for user lookups; absence is not an error
	var redisClient *redis.Client
	if appCfg.Redis.Enabled {
		client := redis.NewClient(appCfg.Redis.Addr)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			log.Warn("Redis unreachable, user cache disabled", "addr", appCfg.Redis.Addr, "error", err.Error())
		} else {
			redisClient = client
			userService.WithCache(redisClient, appCfg.Redis.TTL)
		}
	}

	var pageCache *cache.Cache
	if appCfg.Cache.Enabled {
		pageCache = cache.New(appCfg.Cache.TTL, appCfg.Cache.PurgeWindow, appCfg.Cache.MaxSize)
	}

	return &Container{
		DB:             db,
		Logger:         log,
		JWTService:     jwtService,
		UserService:    userService,
		MessageService: messageService,
		PageCache:      pageCache,
		Redis:          redisClient,
	}, nil
}
