// Package server exposes the facilitation pipeline over HTTP: POST
// /verify, POST /settle and GET /supported, plus health and metrics.
// Handlers are stateless translators between JSON bodies and pipeline
// calls.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openpay-labs/x402-facilitator/ledger"
	"github.com/openpay-labs/x402-facilitator/logger"
	"github.com/openpay-labs/x402-facilitator/types"
)

// Pipeline is the facilitation surface the handlers call into.
type Pipeline interface {
	Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error)
	Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error)
	Supported() *types.SupportedResponse
}

// Reconciler is the post-settlement bookkeeping hook. Record must never
// influence the HTTP response.
type Reconciler interface {
	Record(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements, res *types.SettleResponse)
}

type Server struct {
	addr       string
	pipeline   Pipeline
	reconciler Reconciler
	log        logger.Logger
	validate   *validator.Validate
}

// New builds the server. reconciler may be nil when no ledger is
// configured.
func New(addr string, pipeline Pipeline, reconciler Reconciler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{
		addr:       addr,
		pipeline:   pipeline,
		reconciler: reconciler,
		log:        log,
		validate:   validator.New(),
	}
}

// Router mounts the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/verify", s.handleVerify)
	r.Post("/settle", s.handleSettle)
	r.Get("/supported", s.handleSupported)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.log.Info("signal caught", map[string]any{"signal": sig.String()})
		shutdown <- srv.Shutdown(ctx)
	}()

	s.log.Info("facilitator listening", map[string]any{"addr": s.addr})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdown
}

var _ Reconciler = (*ledger.Reconciler)(nil)
