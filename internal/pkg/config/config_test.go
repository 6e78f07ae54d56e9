package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.CallTimeout != 30*time.Second {
		t.Errorf("call_timeout = %v, want 30s", cfg.Server.CallTimeout)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage type = %q, want memory", cfg.Storage.Type)
	}
}

func TestLoadFunctions(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  call_timeout: 10s
storage:
  type: sqlite
  sqlite:
    path: ./data/test.db
functions:
  - function: get_weather
    description: Look up current weather
    parameters:
      type: object
      properties:
        city:
          type: string
    data_map:
      webhooks:
        - url: https://api.weather.example/v1/current?city=${args.city}
          output:
            response: "It is ${response.condition} in ${args.city}."
      output:
        response: Weather lookup failed.
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.CallTimeout != 10*time.Second {
		t.Errorf("call_timeout = %v, want 10s", cfg.Server.CallTimeout)
	}
	if cfg.Storage.SQLite.Path != "./data/test.db" {
		t.Errorf("sqlite path = %q", cfg.Storage.SQLite.Path)
	}
	if len(cfg.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(cfg.Functions))
	}

	fn := cfg.Functions[0]
	if fn.Function != "get_weather" {
		t.Errorf("function = %q", fn.Function)
	}
	if len(fn.DataMap.Webhooks) != 1 {
		t.Fatalf("webhooks = %d, want 1", len(fn.DataMap.Webhooks))
	}
	if fn.DataMap.Output == nil || fn.DataMap.Output.Response != "Weather lookup failed." {
		t.Errorf("fallback output = %+v", fn.DataMap.Output)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DM_SERVER__PORT", "3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
}

func TestCredentialSubstitution(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "secret-token")

	path := writeConfig(t, `
functions:
  - function: get_weather
    data_map:
      webhooks:
        - url: https://api.weather.example/v1/current?key=${WEATHER_API_KEY}&city=${args.city}
          headers:
            Authorization: Bearer ${WEATHER_API_KEY}
      output:
        response: unavailable
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wh := cfg.Functions[0].DataMap.Webhooks[0]
	wantURL := "https://api.weather.example/v1/current?key=secret-token&city=${args.city}"
	if wh.URL != wantURL {
		t.Errorf("url = %q, want %q", wh.URL, wantURL)
	}
	if got := wh.Headers["Authorization"]; got != "Bearer secret-token" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestUnsetCredentialBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
functions:
  - function: f
    data_map:
      webhooks:
        - url: https://api.example.com/?key=${DEFINITELY_NOT_SET_ANYWHERE}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Functions[0].DataMap.Webhooks[0].URL; got != "https://api.example.com/?key=" {
		t.Errorf("url = %q", got)
	}
}
