package client

import (
	"fmt"

	"github.com/makeasinger/samples/internal/config"
)

// NewStorage builds the artifact store selected by storage.backend
func NewStorage(cfg *config.Config) (StorageClient, error) {
	var (
		store StorageClient
		err   error
	)
	switch cfg.Storage.Backend {
	case "local":
		store, err = NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	case "r2", "":
		store, err = NewR2Client(&cfg.R2)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewRateLimited(store, cfg.Storage.UploadsPerSecond), nil
}
