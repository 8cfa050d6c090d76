package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"staffsync/internal/config"
	"staffsync/internal/database"
	"staffsync/internal/staff"
)

// SQLiteFileName is the database file created inside the sqlite medium's dir.
const SQLiteFileName = "staffsync.db"

// NewStorageFromConfig creates a Storage implementation based on the storage config type.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig) (staff.Storage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem storage requires dir to be set")
		}
		s, err := NewFileSystemStorage(cfg.Dir)
		return nonNil(s, err)
	case "sqlite":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite storage requires dir to be set")
		}
		s, err := database.NewSQLiteStorage(filepath.Join(cfg.Dir, SQLiteFileName))
		return nonNil(s, err)
	case "s3":
		s, err := NewS3Storage(ctx, cfg)
		return nonNil(s, err)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// nonNil keeps a failed constructor's typed nil pointer out of the interface.
func nonNil[S staff.Storage](s S, err error) (staff.Storage, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
