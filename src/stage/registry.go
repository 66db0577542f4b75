// Package stage registers pipeline plugins and runs them for a build phase.
package stage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sofmeright/cpdstage/src/build"
)

// ErrUnknownPlugin is returned by Get for names nobody registered.
var ErrUnknownPlugin = errors.New("unknown plugin")

// Plugin is one configured, ready-to-run pipeline step.
type Plugin interface {
	Run(ctx context.Context) (bool, error)
}

// Definition describes a registrable plugin.
type Definition struct {
	Name string
	// New builds the plugin for a build from its raw options.
	New func(b *build.Builder, options map[string]any) (Plugin, error)
	// CanExecute reports whether the plugin may run in st.
	CanExecute func(st build.Stage) bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Definition{}
)

// Register adds a plugin definition to the global registry.
// Called from init() in each plugin package.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("stage: duplicate plugin registration: %s", def.Name))
	}
	registry[def.Name] = def
}

// Get returns the named plugin definition.
func Get(name string) (Definition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	return def, nil
}

// All returns sorted names of all registered plugins.
func All() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
