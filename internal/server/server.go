// Package server
//
// @title Consoled API Gateway
// @version 1.0
// @description Admin console gateway: session lifecycle plus authenticated proxying to the backend API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/consoled-dev/consoled/internal/authn"
	"github.com/consoled-dev/consoled/internal/backend"
	"github.com/consoled-dev/consoled/internal/config"
	"github.com/consoled-dev/consoled/internal/guard"
	"github.com/consoled-dev/consoled/internal/session"
)

// Server represents the HTTP gateway
type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	store     *session.Store
	codec     *session.CookieCodec
	backend   *backend.Client
	guard     *guard.Guard
	oidc      *authn.Provider
	exchanger authn.Exchanger
	version   string
}

// New creates a new gateway instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	store, err := session.NewStore(cfg.Session.DatabaseURL, zlog)
	if err != nil {
		return nil, err
	}

	codec := session.NewCookieCodec(cfg.Session.CookieKey, cfg.Session.SecureCookies)
	backendClient := backend.New(cfg.Backend.BaseURL, store, zlog)

	// Route policy: YAML file when configured, compiled-in defaults otherwise
	policy := guard.DefaultPolicy()
	if cfg.Session.GuardPolicyPath != "" {
		policy, err = guard.LoadPolicy(cfg.Session.GuardPolicyPath)
		if err != nil {
			return nil, err
		}
	}
	routeGuard := guard.New(policy, backendClient.CheckAdmin, zlog)

	// OIDC discovery needs the issuer reachable at startup
	var oidcProvider *authn.Provider
	if cfg.OIDC.IssuerURL != "" {
		oidcProvider, err = authn.NewProvider(context.Background(), cfg.OIDC)
		if err != nil {
			return nil, err
		}
	} else {
		zlog.Warn().Msg("OIDC_ISSUER_URL not set - federated login disabled")
	}

	exchanger := authn.NewServiceAccountExchanger(
		backendClient,
		cfg.Backend.ServiceAccountEmail,
		cfg.Backend.ServiceAccountPassword,
		zlog,
	)

	server := &Server{
		config:    cfg,
		logger:    zlog,
		validator: validator.New(),
		store:     store,
		codec:     codec,
		backend:   backendClient,
		guard:     routeGuard,
		oidc:      oidcProvider,
		exchanger: exchanger,
		version:   version,
	}

	server.setupRouter()

	return server, nil
}

// Store returns the session store for use by workers
func (s *Server) Store() *session.Store {
	return s.store
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Every request resolves its session once; downstream middleware and
	// handlers consult that single result.
	s.router.Use(s.sessionMiddleware())

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Federated sign-in flow
	s.router.GET("/auth/login", s.beginLogin)
	s.router.GET("/auth/callback", s.completeLogin)
	s.router.POST("/auth/logout", s.logout)
	s.router.GET("/auth/logout", s.logout)

	// Browser navigation (route guard applies)
	pages := s.router.Group("/", s.guardMiddleware())
	{
		pages.GET("", s.indexPage)
		pages.GET("/login", s.loginPage)
		pages.GET("/admin", s.indexPage)
		pages.GET("/tools/anythingllm", s.anythingLLMRedirect)
	}

	// Unmatched GET navigation (deep links like /admin/users) falls through
	// to the console shell; everything else gets the JSON envelope
	s.router.NoRoute(s.pageFallback)

	// Proxy API routes (session required, JSON errors)
	api := s.router.Group("/api")
	api.Use(s.requireSession())
	{
		api.GET("/me", s.getCurrentUser)

		// Users: reads for everyone, mutations admin only
		api.GET("/users", s.listUsers)
		api.GET("/users/:id", s.getUser)
		adminUsers := api.Group("/users", s.adminOnly())
		{
			adminUsers.POST("", s.createUser)
			adminUsers.PATCH("/:id", s.updateUser)
			adminUsers.DELETE("/:id", s.deleteUser)
		}

		// Projects
		api.GET("/projects", s.listProjects)
		api.POST("/projects", s.createProject)
		api.GET("/projects/:id", s.getProject)
		api.PATCH("/projects/:id", s.updateProject)
		api.DELETE("/projects/:id", s.deleteProject)
		api.GET("/projects/:id/users", s.listProjectUsers)
		api.POST("/projects/:id/users", s.addProjectUser)
		api.DELETE("/projects/:id/users/:userId", s.removeProjectUser)
		api.GET("/projects/:id/models", s.listProjectModels)
		api.PUT("/projects/:id/models", s.adminOnly(), s.updateProjectModels)
		api.GET("/projects/:id/files", s.listProjectFiles)
		api.POST("/projects/:id/files", s.uploadProjectFiles)
		api.DELETE("/projects/:id/files/:fileId", s.deleteProjectFile)

		// Workspaces
		api.GET("/workspaces", s.listWorkspaces)
		api.POST("/workspaces", s.createWorkspace)
		api.GET("/workspaces/:id", s.getWorkspace)
		api.PATCH("/workspaces/:id", s.updateWorkspace)
		api.DELETE("/workspaces/:id", s.deleteWorkspace)
		api.GET("/workspaces/:id/users", s.listWorkspaceUsers)
		api.POST("/workspaces/:id/users", s.addWorkspaceUser)
		api.DELETE("/workspaces/:id/users/:userId", s.removeWorkspaceUser)

		// Model and provider catalogs
		api.GET("/models", s.listModels)
		api.GET("/models/default", s.getDefaultModel)
		api.PUT("/models/default", s.adminOnly(), s.updateDefaultModel)
		api.GET("/providers", s.listProviders)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "consoled-gateway",
		"version":   s.version,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.config.ListenAddr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
