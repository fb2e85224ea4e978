package router

import (
	"direct-chat-relay/backend/internal/api"
	"direct-chat-relay/backend/internal/ws"
	"direct-chat-relay/backend/pkg/config"
	"direct-chat-relay/backend/pkg/di"
	"direct-chat-relay/backend/pkg/errors"
	"direct-chat-relay/backend/pkg/logger"
	"direct-chat-relay/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first so every request carries a request-scoped logger
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	// The hub holds the authoritative connection registry for this process
	hub := ws.NewHub(
		ws.NewRegistry(),
		container.UserService,
		container.MessageService,
		container.Logger,
		ws.HubOptions{
			MaxMessageBody: cfg.Chat.MaxMessageBody,
			SendBufferSize: cfg.Chat.SendBufferSize,
		},
	)

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       hub,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Container.JWTService, r.Logger)
	userHandler := api.NewUserHandler(r.Container.UserService, r.Logger)
	messageHandler := api.NewMessageHandler(
		r.Container.MessageService,
		r.Container.PageCache,
		r.Config.Chat.HistoryPageSize,
		r.Logger,
	)

	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		protectedRoutes.GET("/users", userHandler.ListUsers)
		protectedRoutes.GET("/messages/:peerID", messageHandler.History)
	}

	// WebSocket endpoint; the token is checked inside ServeWs since browser
	// websocket clients cannot set an Authorization header
	r.Engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(r.Hub, r.Container.JWTService, c)
	})

	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.setupHealthRoutes()
}

// corsMiddleware handles CORS for the configured origins
func corsMiddleware() gin.HandlerFunc {
	cfg := config.Get()

	allowed := make(map[string]bool, len(cfg.Security.AllowedOrigins))
	allowAll := false
	for _, origin := range cfg.Security.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
