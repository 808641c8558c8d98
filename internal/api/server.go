package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/auth"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/config"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/logging"
	"github.com/PawornpratKongdaeng/shodaiev/internal/metrics"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
	"github.com/PawornpratKongdaeng/shodaiev/internal/upload"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Site     config.SiteConfig
	Upload   config.UploadConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Store    *siteconfig.Store
	Gate     *auth.Gate
	Uploader upload.Uploader // optional: upload endpoints return 503 without it
	Audit    audit.Repository
	Metrics  *metrics.Recorder
	Checks   map[string]HealthChecker // reported by /health
	PanelDir string                  // serve the admin console from disk instead of the embedded build
	Version  string
}

// Server is the HTTP server for the site and its admin console.
//
// It manages the HTTP listener, routes, middleware, and the audit writer.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	siteCfg   config.SiteConfig
	uploadCfg config.UploadConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	store     *siteconfig.Store
	gate      *auth.Gate
	uploader  upload.Uploader
	auditRepo audit.Repository
	auditCh   chan *audit.Entry
	metrics   *metrics.Recorder
	checks    map[string]HealthChecker
	panelDir  string
	version   string
	startTime time.Time
	server    *http.Server
	cancel    context.CancelFunc
	auditDone chan struct{}
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("site config store is required")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("access gate is required")
	}

	s := &Server{
		cfg:       deps.Config,
		siteCfg:   deps.Site,
		uploadCfg: deps.Upload,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		store:     deps.Store,
		gate:      deps.Gate,
		uploader:  deps.Uploader,
		auditRepo: deps.Audit,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
		panelDir:  deps.PanelDir,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}
	return s, nil
}

// Handler returns the fully wired router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the audit writer and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for background goroutines
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		s.auditDone = make(chan struct{})
		go func() {
			defer close(s.auditDone)
			s.drainAuditLog(srvCtx)
		}()
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then stops
// the audit writer once queued entries are flushed.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
	}
	if s.auditDone != nil {
		<-s.auditDone
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
