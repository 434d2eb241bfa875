// Package server exposes the consistency core over HTTP for operational
// use: health probes, scan triggers, reports, guarded queries and graph
// writes.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyweave/continuity"
	"github.com/storyweave/continuity/pkg/config"
	"github.com/storyweave/continuity/pkg/server/handlers"
	"github.com/storyweave/continuity/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	client continuity.Continuity
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, client continuity.Continuity) *Server {
	return &Server{
		config: cfg,
		client: client,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Set gin mode
	gin.SetMode(s.config.Server.Mode)

	// Create router
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Router returns the underlying router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.client)
	graphHandler := handlers.NewGraphHandler(s.client)
	consistencyHandler := handlers.NewConsistencyHandler(s.client)
	queryHandler := handlers.NewQueryHandler(s.client)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Graph writes
		graph := v1.Group("/graph")
		{
			graph.POST("/nodes", graphHandler.AddNode)
			graph.POST("/edges", graphHandler.AddEdge)
			graph.POST("/edges/validate", graphHandler.ValidateEdge)
		}

		// Consistency scans and reports
		consistency := v1.Group("/consistency")
		{
			consistency.POST("/scan", consistencyHandler.TriggerScan)
			consistency.GET("/report", consistencyHandler.Report)
			consistency.GET("/status", consistencyHandler.Status)
		}

		// Guarded ad-hoc queries
		v1.POST("/query", queryHandler.Execute)
		v1.POST("/query/validate", queryHandler.Validate)

		// Episodic retrieval
		v1.POST("/search", graphHandler.Search)
		v1.POST("/recent", graphHandler.Recent)
	}
}

// Start starts the server
func (s *Server) Start() error {
	fmt.Printf("Starting server on %s\n", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println("Stopping server...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware extracts context information from headers
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID := c.GetHeader("X-User-ID")
		if userID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyUserID, userID)
		}

		storyID := c.GetHeader("X-Story-ID")
		if storyID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyStoryID, storyID)
		}

		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
