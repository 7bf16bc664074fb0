// Package status serves the scanner's HTTP health and status surface.
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"perpscanner/config"
	"perpscanner/internal/engine"
	"perpscanner/internal/observability"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ServiceName    = "Bybit Scanner Telegram Bot"
	ServiceVersion = "1.0.0"

	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"

	probeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Engine is the read-only view of the scan loop the handlers need.
type Engine interface {
	State() engine.State
	AlertsSent() int64
	TrackedSymbols() int
	StartedAt() time.Time
}

// EngineRef holds the engine once it is constructed. Handlers check it once
// per request.
type EngineRef struct {
	p atomic.Pointer[engineBox]
}

type engineBox struct{ Engine }

func (r *EngineRef) Set(e Engine) {
	r.p.Store(&engineBox{e})
}

func (r *EngineRef) Get() (Engine, bool) {
	box := r.p.Load()
	if box == nil {
		return nil, false
	}
	return box.Engine, true
}

// Prober checks exchange connectivity.
type Prober interface {
	GetServerTime(ctx context.Context) (time.Time, error)
}

// Info is the static configuration reported by / and /status.
type Info struct {
	Testnet            bool
	TelegramConfigured bool
	Scanner            config.ScannerConfig
}

// Counter reports the size of a collection such as the subscriber registry.
type Counter interface {
	Len() int
}

// HealthChecker is implemented by the watchlist storage client.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Sources are optional views reported by /status. Nil fields are skipped.
type Sources struct {
	Subscribers Counter
	Instruments Counter
	Storage     HealthChecker
}

type Server struct {
	port    int
	ref     *EngineRef
	prober  Prober
	info    Info
	sources Sources
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewServer(port int, ref *EngineRef, prober Prober, info Info, sources Sources,
	metrics *observability.Metrics, logger *zap.Logger) *Server {
	return &Server{
		port:    port,
		ref:     ref,
		prober:  prober,
		info:    info,
		sources: sources,
		metrics: metrics,
		logger:  logger.Named("status"),
		now:     time.Now,
	}
}

func (s *Server) Name() string { return "status-server" }

// Routes configures all routes.
func (s *Server) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(zapLoggerMiddleware(s.logger))
	router.Use(gin.Recovery())

	router.GET("/", s.Home)
	router.GET("/health", s.Health)
	router.GET("/status", s.Status)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
