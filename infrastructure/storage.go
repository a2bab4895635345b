package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// AudioStore archives recordings and returns a URI that identifies them.
type AudioStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// NewAudioStore builds the store selected by cfg.AudioStore.
func NewAudioStore(ctx context.Context, cfg *Config) (AudioStore, error) {
	switch cfg.AudioStore {
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket)
	case "azure":
		return NewAzureStore(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
	case "local", "":
		return NewLocalStore(cfg.AudioDir)
	default:
		return nil, fmt.Errorf("unsupported audio store %q", cfg.AudioStore)
	}
}

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &LocalStore{dir: abs}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return "file://" + path, nil
}
