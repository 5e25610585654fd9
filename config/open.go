package config

import (
	"fmt"

	"github.com/notifykv/notifykv/kv/store"
)

// Open constructs and opens the backend map described by cfg. The caller
// owns the returned map and must Close it when done.
func Open(cfg *Config) (store.Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var backend store.Map

	switch cfg.Backend {
	case BackendMemory:
		backend = store.NewMemoryMap(cfg.Shards)
	case BackendBolt:
		backend = store.NewBoltMap(cfg.Path)
	case BackendBadger:
		backend = store.NewBadgerMap(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if err := backend.Open(); err != nil {
		return nil, err
	}

	return backend, nil
}
