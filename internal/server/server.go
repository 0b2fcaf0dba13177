// Package server assembles the HTTP surface: the JSON API under /api plus
// liveness and readiness checks.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/promise/internal/health"
	"github.com/jimdaga/promise/internal/invitations"
	"github.com/jimdaga/promise/internal/promises"
)

// Options are the collaborators the router is built from
type Options struct {
	Port        string
	Debug       bool
	Logger      *slog.Logger
	Promises    *promises.Service
	Invitations *invitations.Service
	// Checks back the /ready endpoint
	Checks []health.Check
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", gin.WrapF(health.Ready(opts.Checks...)))

	api := r.Group("/api")
	if opts.Promises != nil {
		promises.RegisterRoutes(api, opts.Promises)
	}
	if opts.Invitations != nil {
		invitations.RegisterRoutes(api, opts.Invitations)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Route not found"})
	})
	return r
}

// RequestLogger logs one line per request. Server errors log at error level.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/ready":
			level = slog.LevelDebug
		}

		logger.Log(c.Request.Context(), level, "Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// New wraps the router in an http.Server listening on opts.Port
func New(opts Options) *http.Server {
	return &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
