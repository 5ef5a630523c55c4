// Package storage keeps PDF bytes, both uploads and stamped artifacts,
// behind a flat key space. Keys are plain file names such as
// "1715000000000.pdf" or "1715000000000-signed.pdf".
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/docusigner/internal/common"
	sc "github.com/dmitrijs2005/docusigner/internal/server/config"
)

// Storage is implemented by DiskStorage and S3Storage.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New returns the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *sc.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case sc.StorageDisk, "":
		return NewDiskStorage(cfg.UploadDir)
	case sc.StorageS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// validKey rejects anything that could escape the flat namespace.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return fmt.Errorf("%w: bad storage key %q", common.ErrInvalidInput, key)
	}
	return nil
}
