// Package runtime provides the Service struct and lifecycle management
// for the DataMap function server. A Service can be embedded in a larger
// application or run standalone via cmd/datamapd.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/voxkit/datamap/internal/auth"
	"github.com/voxkit/datamap/internal/datamap"
	"github.com/voxkit/datamap/internal/frontdoor"
	"github.com/voxkit/datamap/internal/pkg/config"
	"github.com/voxkit/datamap/internal/pkg/safehttp"
	"github.com/voxkit/datamap/internal/recorder"
	"github.com/voxkit/datamap/internal/registry"
	"github.com/voxkit/datamap/internal/server"
	"github.com/voxkit/datamap/internal/storage"
	"github.com/voxkit/datamap/internal/storage/memory"
	"github.com/voxkit/datamap/internal/storage/sqlite"
)

// ConfigProvider supplies configuration and change notifications.
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// Service hosts a registry of compiled DataMaps behind an HTTP server.
type Service struct {
	config     ConfigProvider
	store      storage.ExecutionStore
	logger     *slog.Logger
	httpClient *http.Client
	useAuth    bool

	registry *registry.Registry
	engine   *datamap.Engine
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates a Service with the given options. A config provider is
// required; storage defaults to the configured backend (or none).
func New(opts ...Option) (*Service, error) {
	s := &Service{
		logger:   slog.Default(),
		registry: registry.New(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if s.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfigProvider)")
	}

	return s, nil
}

// Start loads configuration, compiles the DataMap registry, and starts
// the HTTP server. It returns once the listener is running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	cfg, err := s.config.Load(s.ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := s.registry.Load(definitions(cfg)); err != nil {
		return fmt.Errorf("compile datamaps: %w", err)
	}

	if s.store == nil {
		if s.store, err = openStore(cfg.Storage); err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
	}

	// Webhook destinations come from config and may carry caller-supplied
	// values, so the default client refuses private address ranges.
	client := s.httpClient
	if client == nil {
		client = safehttp.Client(cfg.Server.CallTimeout)
	}
	s.engine = datamap.NewEngine(
		datamap.WithLogger(s.logger),
		datamap.WithHTTPClient(client),
	)

	var rec *recorder.Recorder
	if s.store != nil {
		rec = recorder.New(s.store, s.logger)
	}

	var authenticator *auth.Authenticator
	if s.useAuth {
		authenticator = auth.NewAuthenticator(cfg.Auth.APIKeys)
	}

	srv := server.New(cfg.Server.Port, cfg.Server.CallTimeout, s.logger, authenticator)
	frontdoor.New(s.registry, s.engine, rec, s.logger).Mount(srv.Router)

	s.server = &http.Server{
		Addr:    srv.Addr(),
		Handler: srv.Router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", slog.String("error", err.Error()))
		}
	}()

	go s.watchConfig()

	s.logger.Info("service started",
		slog.Int("port", cfg.Server.Port),
		slog.Int("functions", s.registry.Len()))

	return nil
}

// Shutdown gracefully stops the service and closes its resources.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("shutting down")

	if s.cancel != nil {
		s.cancel()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}

	if err := s.config.Close(); err != nil {
		s.logger.Error("failed to close config", slog.String("error", err.Error()))
	}

	s.logger.Info("shutdown complete")
	return nil
}

// Registry exposes the function registry, mainly for embedding callers.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// watchConfig recompiles the registry when the config changes. A failed
// compile keeps the previous snapshot serving.
func (s *Service) watchConfig() {
	onChange := func(cfg *config.Config) {
		if err := s.registry.Load(definitions(cfg)); err != nil {
			s.logger.Error("config reload rejected", slog.String("error", err.Error()))
			return
		}
		s.logger.Info("registry reloaded", slog.Int("functions", s.registry.Len()))
	}

	if err := s.config.Watch(s.ctx, onChange); err != nil {
		s.logger.Error("config watch failed", slog.String("error", err.Error()))
	}
}

func definitions(cfg *config.Config) map[string]datamap.Definition {
	defs := make(map[string]datamap.Definition, len(cfg.Functions))
	for _, fn := range cfg.Functions {
		defs[fn.Function] = fn.DataMap
	}
	return defs
}

func openStore(cfg config.StorageConfig) (storage.ExecutionStore, error) {
	switch cfg.Type {
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "./data/datamap.db"
		}
		return sqlite.New(path)
	case "memory":
		return memory.New(), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// interface guard: the registry satisfies the frontdoor resolver.
var _ frontdoor.Resolver = (*registry.Registry)(nil)
