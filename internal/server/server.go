// Package server runs the local daemon that the browser extension reports
// to: engagement samples in, history snapshots in, the latest analysis and
// its sanitized summary out.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/engagement"
	"github.com/runnerr0/webpersona/internal/logger"
	"github.com/runnerr0/webpersona/internal/storage"
)

const (
	defaultMaxRequestSize        = 1 << 20
	defaultMaxHistoryRequestSize = 16 << 20
	shutdownTimeout       = 5 * time.Second
)

// Options configures the daemon.
type Options struct {
	Host           string
	Port           int
	AuthToken      string // empty disables bearer auth
	AllowedOrigins []string

	// MaxRequestSize caps POST /v1/engagement. MaxHistoryRequestSize caps
	// POST /v1/analysis, which carries a whole history batch.
	MaxRequestSize        int64
	MaxHistoryRequestSize int64

	// Analysis defaults for POST /v1/analysis.
	TimeframeDays int
	MaxResults    int

	Version string
	Log     *logger.Logger
}

// Server is the HTTP daemon.
type Server struct {
	opts       Options
	store      storage.Store
	engagement *engagement.Service
	analyzer   *analysis.Analyzer
	log        *logger.Logger
	engine     *gin.Engine
	now        func() time.Time
}

// New builds the daemon over store. Nothing listens until Run.
func New(store storage.Store, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = defaultMaxRequestSize
	}
	if opts.MaxHistoryRequestSize <= 0 {
		opts.MaxHistoryRequestSize = defaultMaxHistoryRequestSize
	}
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}

	log := opts.Log.Component("daemon")
	s := &Server{
		opts:       opts,
		store:      store,
		engagement: engagement.NewService(store, opts.Log),
		analyzer:   analysis.NewAnalyzer(nil),
		log:        log,
		now:        time.Now,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(s.log))
	r.Use(recovery(s.log))
	r.Use(corsMiddleware(s.opts.AllowedOrigins))

	r.GET("/status", s.handleStatus)

	v1 := r.Group("/v1")
	v1.Use(bearerAuth(s.opts.AuthToken))
	{
		v1.POST("/engagement", bodyLimit(s.opts.MaxRequestSize), s.handleEngagement)
		v1.GET("/engagement/summary", s.handleEngagementSummary)
		v1.POST("/analysis", bodyLimit(s.opts.MaxHistoryRequestSize), s.handleAnalyze)
		v1.GET("/analysis/last", s.handleLastAnalysis)
		v1.GET("/analysis/last/summary", s.handleLastSummary)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("daemon listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("daemon shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
