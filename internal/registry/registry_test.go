package registry

import (
	"testing"

	"github.com/voxkit/datamap/internal/datamap"
)

func TestLoadAndLookup(t *testing.T) {
	r := New()

	err := r.Load(map[string]datamap.Definition{
		"get_weather": {Output: &datamap.OutputDef{Response: "no weather"}},
		"get_joke":    {Output: &datamap.OutputDef{Response: "no joke"}},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}

	dm, ok := r.Lookup("get_weather")
	if !ok {
		t.Fatal("get_weather not found")
	}
	if dm.Function() != "get_weather" {
		t.Errorf("Function() = %q", dm.Function())
	}

	if _, ok := r.Lookup("unknown"); ok {
		t.Error("Lookup(unknown) = true, want false")
	}
}

func TestLoadKeepsSnapshotOnError(t *testing.T) {
	r := New()

	if err := r.Load(map[string]datamap.Definition{
		"good": {Output: &datamap.OutputDef{Response: "ok"}},
	}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	err := r.Load(map[string]datamap.Definition{
		"good": {Output: &datamap.OutputDef{Response: "ok"}},
		"bad": {Expressions: []datamap.ExpressionDef{{
			String:  "${args.x}",
			Pattern: "[invalid",
		}}},
	})
	if err == nil {
		t.Fatal("Load with bad pattern succeeded, want error")
	}
	if !datamap.IsConfigError(err) {
		t.Errorf("error = %v, want ConfigError", err)
	}

	// The failed reload must not disturb the previous snapshot.
	if _, ok := r.Lookup("good"); !ok {
		t.Error("good lost after failed reload")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestLoadRejectsEmptyName(t *testing.T) {
	r := New()
	if err := r.Load(map[string]datamap.Definition{"": {}}); err == nil {
		t.Fatal("Load with empty name succeeded, want error")
	}
}

func TestNamesSorted(t *testing.T) {
	r := New()
	if err := r.Load(map[string]datamap.Definition{
		"zeta": {}, "alpha": {}, "mid": {},
	}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
