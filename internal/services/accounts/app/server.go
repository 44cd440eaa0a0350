// Package app wires the accounts runtime: storage, the procedure router, its
// HTTP and gRPC transports and the form actions.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpx"
	"github.com/louisbranch/formrpc/internal/platform/identity"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
	"github.com/louisbranch/formrpc/internal/platform/rpc/rpcgrpc"
	"github.com/louisbranch/formrpc/internal/platform/rpc/rpchttp"
	"github.com/louisbranch/formrpc/internal/platform/telemetry/metrics"
	"github.com/louisbranch/formrpc/internal/platform/timeouts"
	"github.com/louisbranch/formrpc/internal/services/accounts"
	accountsqlite "github.com/louisbranch/formrpc/internal/services/accounts/storage/sqlite"
)

const sessionIssuer = "formrpc"

// Server hosts the accounts HTTP and gRPC listeners.
type Server struct {
	logger       zerolog.Logger
	store        *accountsqlite.Store
	router       *rpc.Router
	engine       *gin.Engine
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *rpcgrpc.Server
}

// New opens storage, builds the router and binds both listeners. An empty
// GRPCAddr disables the gRPC transport.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	origin, _ := cfg.Origin()

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	sessions, err := identity.NewJWTProvider([]byte(cfg.SessionSecret), sessionIssuer)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reporter := apperrors.NewReporter(logger)
	router, err := rpc.NewRouter(accounts.Procedures(sessions, cfg.SessionTTL), rpc.WithReporter(reporter))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build procedure router: %w", err)
	}
	repos := &accounts.Repositories{Accounts: store}

	metrics.RegisterMetrics()
	engine := newEngine(engineConfig{
		logger:    logger,
		router:    router,
		repos:     repos,
		provider:  sessions,
		reporter:  reporter,
		origin:    origin,
		prefix:    cfg.Prefix(),
		baseURL:   cfg.ProcedureURL(),
		rateLimit: cfg.RateLimit,
		rateBurst: cfg.RateBurst,
	})

	s := &Server{
		logger: logger,
		store:  store,
		router: router,
		engine: engine,
		httpServer: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}

	s.httpListener, err = net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	if cfg.GRPCAddr != "" {
		s.grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
		}
		s.grpcServer = rpcgrpc.NewServer(router, rpcgrpc.Options{
			Repositories: repos,
			Provider:     sessions,
			Logger:       logger,
		})
	}
	return s, nil
}

type engineConfig struct {
	logger    zerolog.Logger
	router    *rpc.Router
	repos     *accounts.Repositories
	provider  identity.Provider
	reporter  *apperrors.Reporter
	origin    string
	prefix    string
	baseURL   string
	rateLimit float64
	rateBurst int
}

func newEngine(cfg engineConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(
		httpx.RecoverPanic(cfg.logger),
		httpx.RequestID(),
		httpx.RequestLogger(cfg.logger),
		metrics.RequestMetricsMiddleware(),
		httpx.Language(),
		identity.Middleware(cfg.provider, cfg.logger),
		procedureClient(cfg.router, cfg.repos),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	engine.GET("/procedures", listProcedures(cfg.router, cfg.baseURL))

	rpchttp.Register(engine, cfg.router, rpchttp.Options{
		Prefix:       cfg.prefix,
		AllowOrigin:  cfg.origin,
		Repositories: cfg.repos,
		RateLimit:    cfg.rateLimit,
		RateBurst:    cfg.rateBurst,
		Logger:       cfg.logger,
	})

	actions := engine.Group("/", httpx.NoStore())
	accounts.NewActions(cfg.repos, cfg.reporter).Register(actions)
	return engine
}

// procedureClient binds a server-side procedure client to each request so
// actions call procedures with the caller's identity and language.
func procedureClient(router *rpc.Router, repos *accounts.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := router.Client(rpc.NewContext(rpc.LocalsFromRequest(c.Request, repos)))
		c.Request = c.Request.WithContext(rpc.WithClient(c.Request.Context(), client))
		c.Next()
	}
}

type procedureInfo struct {
	Name          string `json:"name"`
	Summary       string `json:"summary,omitempty"`
	Authenticated bool   `json:"authenticated"`
	OutputSchema  bool   `json:"output_schema"`
}

// procedureListing is the /procedures payload. BaseURL is the URL an
// rpchttp.Client calls the procedures on.
type procedureListing struct {
	BaseURL    string          `json:"base_url"`
	Procedures []procedureInfo `json:"procedures"`
}

func listProcedures(router *rpc.Router, baseURL string) gin.HandlerFunc {
	names := router.Names()
	listing := procedureListing{BaseURL: baseURL, Procedures: make([]procedureInfo, 0, len(names))}
	for _, name := range names {
		proc, _ := router.Lookup(name)
		desc := proc.Describe()
		listing.Procedures = append(listing.Procedures, procedureInfo{
			Name:          name,
			Summary:       desc.Summary,
			Authenticated: desc.Authenticated,
			OutputSchema:  desc.OutputSchema,
		})
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, listing)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPAddr returns the bound HTTP address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, empty when gRPC is disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a server until context cancellation.
func Run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	server, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both listeners until the context ends or one of them fails,
// then shuts both down.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	running := 1
	s.logger.Info().Str("addr", s.HTTPAddr()).Msg("http server listening")
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("serve http: %w", err)
		}
		errs <- err
	}()
	if s.grpcServer != nil {
		running++
		go func() {
			errs <- s.grpcServer.Serve(ctx, s.grpcListener)
		}()
	}

	var first error
	select {
	case <-ctx.Done():
	case first = <-errs:
		running--
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && first == nil {
		first = fmt.Errorf("shutdown http server: %w", err)
	}
	for ; running > 0; running-- {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close releases listeners and storage.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error().Err(err).Msg("close account store")
		}
	}
}

func openStore(ctx context.Context, path string) (*accountsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := accountsqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open account sqlite store: %w", err)
	}
	return store, nil
}
