// Package api serves the trained model over HTTP: a small Gin app with a
// health probe, a question endpoint, and read access to the model registry.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qapipe/internal/config"
	"qapipe/internal/registry"
	"qapipe/internal/storage"
	"qapipe/pkg/logx"
)

// Server hosts the inference API. Start binds the listener and returns;
// serving continues in a goroutine until Stop.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	handler    *handler
	log        logx.Logger
}

// New wires routes against the registry and the training-pair store. Either
// dependency may be nil; the affected endpoints degrade to 503.
func New(cfg config.APIConfig, reg *registry.Registry, store storage.Store, log logx.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{reg: reg, store: store, log: log}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	engine.GET("/", h.root)
	engine.GET("/health", h.health)

	authed := engine.Group("/", bearerAuth(cfg.Token))
	authed.POST("/ask", h.ask)
	authed.GET("/models", h.models)
	authed.POST("/models/:name/load", h.loadModel)

	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Port
	if port == 0 {
		port = 8000
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		engine:  engine,
		handler: h,
		log:     log,
	}
}

// Engine exposes the router for httptest.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("api: bind %s: %w", s.httpServer.Addr, err)
	}

	// Resolve the default model up front so the first /ask does not pay
	// for it; a missing model is not fatal, /ask reports 503 until one
	// is loaded.
	if err := s.handler.loadLatest(); err != nil {
		s.log.Warn("no model available at startup", logx.Err(err))
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server error", logx.Err(err))
		}
	}()

	s.log.Info("api server started", logx.String("addr", s.httpServer.Addr))
	return nil
}

// Stop gracefully shuts the server down with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	s.log.Info("api server stopped")
	return nil
}

func (s *Server) Addr() string { return s.httpServer.Addr }

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func requestLogger(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)

		c.Next()

		log.Debug("http request",
			logx.String("request_id", reqID),
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("elapsed", time.Since(start)))
	}
}
