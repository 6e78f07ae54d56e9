package runtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/voxkit/datamap/internal/adapters/config/file"
	"github.com/voxkit/datamap/internal/storage"
	"github.com/voxkit/datamap/internal/storage/memory"
	"github.com/voxkit/datamap/internal/storage/sqlite"
)

// Option is a functional option for configuring a Service.
type Option func(*Service) error

// WithFileConfig uses file-based configuration with hot-reload. The path
// should point to a config.yaml that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(s *Service) error {
		provider, err := file.NewProvider(path)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		s.config = provider
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
func WithConfigProvider(provider ConfigProvider) Option {
	return func(s *Service) error {
		s.config = provider
		return nil
	}
}

// WithSQLite persists execution records to SQLite at path, overriding the
// configured storage backend.
func WithSQLite(path string) Option {
	return func(s *Service) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		s.store = store
		return nil
	}
}

// WithMemoryStorage keeps execution records in memory.
func WithMemoryStorage() Option {
	return func(s *Service) error {
		s.store = memory.New()
		return nil
	}
}

// WithStore sets a custom execution store.
func WithStore(store storage.ExecutionStore) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}

// WithAPIKeyAuth enables bearer API key authentication using the hashes
// from the auth.api_keys config section.
func WithAPIKeyAuth() Option {
	return func(s *Service) error {
		s.useAuth = true
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client used for webhook requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) error {
		s.httpClient = client
		return nil
	}
}
