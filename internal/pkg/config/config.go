// Package config loads the datamapd configuration: server settings, API
// keys, storage, and the list of named DataMap definitions.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/voxkit/datamap/internal/datamap"
)

type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Auth      AuthConfig       `koanf:"auth"`
	Storage   StorageConfig    `koanf:"storage"`
	Functions []FunctionConfig `koanf:"functions"`
}

type ServerConfig struct {
	Port int `koanf:"port"`

	// CallTimeout is the wall-clock budget for one function call,
	// including all webhook attempts.
	CallTimeout time.Duration `koanf:"call_timeout"`
}

type AuthConfig struct {
	APIKeys []APIKeyConfig `koanf:"api_keys"`
}

type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"`
	Description string `koanf:"description"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// FunctionConfig binds a function name to its DataMap definition.
// Parameters is the function's JSON-Schema parameter contract; it is
// carried opaquely for the caller's benefit, argument validation happens
// upstream of this service.
type FunctionConfig struct {
	Function    string             `koanf:"function"`
	Description string             `koanf:"description"`
	Parameters  map[string]any     `koanf:"parameters"`
	DataMap     datamap.Definition `koanf:"data_map"`
}

// envVarPattern matches ${ALL_CAPS} references. DataMap template roots are
// lowercase, so credential substitution never collides with pipeline
// placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([A-Z][A-Z0-9_]*)\}`)

// Load reads configuration from the given YAML file (a missing file is
// fine, env-only configs are supported) with DM_-prefixed environment
// overrides, applies defaults, and substitutes ${ENV_VAR} references in
// webhook URLs and header values so credentials can live outside the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("DM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DM_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.call_timeout") {
		k.Set("server.call_timeout", "30s")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Functions {
		substituteWebhookCredentials(cfg.Functions[i].DataMap.Webhooks)
	}

	return &cfg, nil
}

func substituteWebhookCredentials(webhooks []datamap.WebhookDef) {
	for i := range webhooks {
		webhooks[i].URL = substituteEnvVars(webhooks[i].URL)
		for name, val := range webhooks[i].Headers {
			webhooks[i].Headers[name] = substituteEnvVars(val)
		}
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
