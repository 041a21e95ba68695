package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/webrecap/webrecap/internal/config"
)

// Store persists cleaned-content artifacts. Keys are flat names derived from
// the content hash, never caller-supplied paths.
type Store interface {
	Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns the externally visible location recorded on summary rows.
	URL(key string) string
}

type ReadSeekCloser = io.ReadSeekCloser

// Factory builds a Store from the raw `file_store.data` config block.
type Factory func(args interface{}) (Store, error)

// registry is populated by init funcs in the store implementations; no
// locking, registration finishes before main runs.
var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	factory, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
