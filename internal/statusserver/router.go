// Package statusserver exposes a read-only HTTP view of a running tracker:
// health, Prometheus metrics, expvar counters, and the current summary.
package statusserver

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitcore/internal/core"
)

// Tracker is the read surface the router serves.
type Tracker interface {
	ListHabits() []core.Habit
	Summary(days int) core.Summary
	Version() int64
	LastPersistenceError() error
}

// Options configures NewRouter.
type Options struct {
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
	HistoryDays int
}

// NewRouter builds the gin engine serving tracker.
func NewRouter(tracker Tracker, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	days := opts.HistoryDays
	if days <= 0 || days > core.MaxHistoryDays {
		days = 7
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "version": tracker.Version()}
		if err := tracker.LastPersistenceError(); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
		}
		c.JSON(http.StatusOK, body)
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	r.GET("/habits", func(c *gin.Context) {
		c.JSON(http.StatusOK, tracker.ListHabits())
	})
	r.GET("/summary", func(c *gin.Context) {
		n := days
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 || parsed > core.MaxHistoryDays {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "days must be an integer between 0 and " + strconv.Itoa(core.MaxHistoryDays),
				})
				return
			}
			n = parsed
		}
		c.JSON(http.StatusOK, tracker.Summary(n))
	})
	return r
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
