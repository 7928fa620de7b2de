package datasource

import (
	"fmt"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Adapter)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(engine string, adapter Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[engine] = adapter
}

// ForEngine returns the adapter registered for an engine tag.
func ForEngine(engine string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	adapter, ok := registry[engine]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for engine %q", engine)
	}
	return adapter, nil
}

// RegisteredEngines returns the engine tags with a registered adapter.
func RegisteredEngines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	engines := make([]string, 0, len(registry))
	for engine := range registry {
		engines = append(engines, engine)
	}
	return engines
}
