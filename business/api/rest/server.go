// Package rest exposes the price engine over HTTP.
package rest

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stxquote/price-engine/business/pricing/domain"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/token"
)

// PriceService is the pricing surface the API serves.
type PriceService interface {
	Price(ctx context.Context, id token.ID) (domain.TokenPrice, error)
	Prices(ctx context.Context, ids []token.ID) ([]domain.TokenPrice, map[token.ID]error, error)
	All(ctx context.Context) (*domain.PriceSet, error)
	RefreshAll(ctx context.Context) (*domain.PriceSet, error)
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the REST API server.
type Server struct {
	config  ServerConfig
	service PriceService
	tokens  *token.Registry
	logger  logger.LoggerInterface
	httpSrv *http.Server
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig, service PriceService, tokens *token.Registry, log logger.LoggerInterface) *Server {
	s := &Server{
		config:  cfg,
		service: service,
		tokens:  tokens,
		logger:  log,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      otelhttp.NewHandler(s.routes(), "api"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/prices", s.handleListPrices)
	mux.HandleFunc("GET /v1/prices/{id}", s.handleGetPrice)
	mux.HandleFunc("GET /v1/tokens", s.handleListTokens)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	return mux
}

// Start begins serving and blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "api server listening", "addr", s.config.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}
