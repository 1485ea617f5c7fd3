// Package http exposes the operational HTTP surface: health, pipeline stats,
// and a read-only customer context endpoint. The service's real input is the
// message bus; nothing here writes to the derived store.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/profilehub/backend/internal/application/contextview"
	"github.com/profilehub/backend/internal/application/ingest"
	"github.com/profilehub/backend/internal/domain/shared"
	"github.com/profilehub/backend/internal/infrastructure/config"
	"github.com/profilehub/backend/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store connection is alive
type Pinger interface {
	Ping() error
}

// BusStatus reports whether the bus connection is up
type BusStatus interface {
	Connected() bool
}

// Server is the operational HTTP server
type Server struct {
	srv     *http.Server
	logger  *zap.Logger
	cfg     config.HTTPConfig
	db      Pinger
	redis   *redis.Client
	bus     BusStatus
	metrics *ingest.Metrics
	builder *contextview.Builder
}

// NewServer wires the operational routes
func NewServer(cfg config.HTTPConfig, db Pinger, redisClient *redis.Client, bus BusStatus, metrics *ingest.Metrics, builder *contextview.Builder, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		logger:  log.Named("http"),
		cfg:     cfg,
		db:      db,
		redis:   redisClient,
		bus:     bus,
		metrics: metrics,
		builder: builder,
	}

	router := gin.New()
	router.Use(logger.Recovery(s.logger))
	router.Use(logger.GinMiddleware(s.logger))

	router.GET("/healthz", s.health)
	router.GET("/stats", s.stats)
	router.GET("/customers/:id/context", s.customerContext)
	router.GET("/customers/:id/notes/search", s.searchNotes)

	s.srv = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start runs the server until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("operational server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := s.db.Ping(); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if s.bus != nil {
		if s.bus.Connected() {
			checks["bus"] = "ok"
		} else {
			// Not fatal: the client reconnects on its own
			checks["bus"] = "disconnected"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "checks": checks})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) customerContext(c *gin.Context) {
	view, err := s.builder.Build(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
			return
		}
		s.logger.Error("context build failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) searchNotes(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	notes, err := s.builder.SearchNotes(c.Request.Context(), c.Param("id"), query, 10)
	if err != nil {
		s.logger.Error("note search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}
