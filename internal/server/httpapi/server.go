// Package httpapi exposes the evidence service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/dmitrijs2005/evidencevault/internal/server/metrics"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const limiterCacheSize = 10_000

// EvidenceService is the facade the handlers call.
type EvidenceService interface {
	Upload(ctx context.Context, caller auth.Identity, cmd *models.UploadCommand) (*models.UploadResult, error)
	Download(ctx context.Context, caller auth.Identity, versionID int64, accessType models.AccessType) (*models.DownloadResult, error)
	ListByCase(ctx context.Context, caller auth.Identity, caseID int64) ([]*models.EvidenceItem, error)
	SearchByHash(ctx context.Context, caller auth.Identity, hash string) ([]*models.HashMatch, error)
	AccessHistory(ctx context.Context, caller auth.Identity, versionID int64) ([]*models.EvidenceAccessLog, error)
}

// HealthFunc reports whether the server's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

type Options struct {
	Address         string
	Secret          []byte
	MaxUploadBytes  int64
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
	Health          HealthFunc
}

type Server struct {
	opts     Options
	svc      EvidenceService
	metrics  *metrics.Metrics
	log      logging.Logger
	secret   []byte
	limiter  *ipLimiter
	validate *validator.Validate
}

func NewServer(svc EvidenceService, m *metrics.Metrics, l logging.Logger, opts Options) (*Server, error) {
	s := &Server{
		opts:     opts,
		svc:      svc,
		metrics:  m,
		log:      l.With("module", "http_server"),
		secret:   opts.Secret,
		validate: newValidator(),
	}
	if opts.RateLimitRPS > 0 {
		lim, err := newIPLimiter(limiterCacheSize, opts.RateLimitRPS, max(opts.RateLimitBurst, 1))
		if err != nil {
			return nil, err
		}
		s.limiter = lim
	}
	return s, nil
}

// Handler builds the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/evidence").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/case/{caseId:[0-9]+}", s.handleListByCase).Methods(http.MethodGet)
	api.HandleFunc("/versions/{versionId:[0-9]+}/download", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/versions/{versionId:[0-9]+}/access-log", s.handleAccessLog).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeProblem(w, req, http.StatusNotFound, "Not found", "Resource not found.", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeProblem(w, req, http.StatusMethodNotAllowed, "Method not allowed", "Method not allowed.", nil)
	})

	return s.requestID(s.securityHeaders(s.rateLimit(r)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info(context.Background(), "Stopping HTTP server...")
		timeout := s.opts.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
