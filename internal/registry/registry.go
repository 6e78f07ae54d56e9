// Package registry maps function names to compiled DataMap definitions.
// A registry is replaced wholesale on config reload: compilation is
// all-or-nothing, so a bad definition never partially replaces a good
// snapshot.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/voxkit/datamap/internal/datamap"
)

// Registry holds the current compiled definitions. Safe for concurrent
// lookup while a reload swaps the snapshot.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*datamap.DataMap
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*datamap.DataMap)}
}

// Load compiles every definition and, only if all succeed, swaps them in
// as the new snapshot.
func (r *Registry) Load(definitions map[string]datamap.Definition) error {
	compiled := make(map[string]*datamap.DataMap, len(definitions))
	for name, def := range definitions {
		if name == "" {
			return fmt.Errorf("function name cannot be empty")
		}
		dm, err := datamap.Compile(name, def)
		if err != nil {
			return err
		}
		compiled[name] = dm
	}

	r.mu.Lock()
	r.byName = compiled
	r.mu.Unlock()
	return nil
}

// Lookup returns the compiled DataMap for a function name.
func (r *Registry) Lookup(name string) (*datamap.DataMap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dm, ok := r.byName[name]
	return dm, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
