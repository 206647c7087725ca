package storage

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/internal/storage/badgerstore"
	"github.com/goliatone/go-dynforms/internal/storage/sqlitestore"
)

// Driver names a backend.
type Driver string

const (
	DriverBadger Driver = "badger"
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
)

// Open builds the backend for driver. path is a directory for badger and
// the database directory for sqlite; memory ignores it.
func Open(driver Driver, path string, logger *zap.Logger) (Storage, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverBadger, "":
		cfg := badgerstore.DefaultConfig()
		cfg.Path = path
		cfg.Logger = logger
		store, err := badgerstore.Open(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSQLite:
		store, err := sqlitestore.Open(filepath.Join(path, "cache.db"))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
