package runtime

import (
	"context"
	"testing"

	"github.com/voxkit/datamap/internal/datamap"
	"github.com/voxkit/datamap/internal/pkg/config"
)

type staticProvider struct {
	cfg *config.Config
}

func (p *staticProvider) Load(ctx context.Context) (*config.Config, error) { return p.cfg, nil }
func (p *staticProvider) Watch(ctx context.Context, onChange func(*config.Config)) error {
	return nil
}
func (p *staticProvider) Close() error { return nil }

func TestNewRequiresConfigProvider(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("New() succeeded without a config provider")
	}
}

func TestNewWithProvider(t *testing.T) {
	svc, err := New(WithConfigProvider(&staticProvider{cfg: &config.Config{}}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.Registry() == nil {
		t.Error("registry not initialized")
	}
}

func TestDefinitions(t *testing.T) {
	cfg := &config.Config{
		Functions: []config.FunctionConfig{
			{Function: "a", DataMap: datamap.Definition{Output: &datamap.OutputDef{Response: "x"}}},
			{Function: "b"},
		},
	}

	defs := definitions(cfg)
	if len(defs) != 2 {
		t.Fatalf("definitions = %d, want 2", len(defs))
	}
	if defs["a"].Output == nil || defs["a"].Output.Response != "x" {
		t.Errorf("definition a = %+v", defs["a"])
	}
}

func TestOpenStore(t *testing.T) {
	store, err := openStore(config.StorageConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if store == nil {
		t.Error("memory store is nil")
	}

	store, err = openStore(config.StorageConfig{Type: "none"})
	if err != nil || store != nil {
		t.Errorf("none: store = %v, err = %v", store, err)
	}

	if _, err := openStore(config.StorageConfig{Type: "cassandra"}); err == nil {
		t.Error("unknown storage type accepted")
	}
}
