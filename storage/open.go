package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported backend names.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendSQL     = "sql"
)

// Open returns the Database for backend. dataDir is used by the file backed
// stores; dsn only by the sql backend, which falls back to a sqlite file in
// dataDir when dsn is empty.
func Open(backend, dataDir, dsn string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemDB(), nil
	case "", BackendLevelDB:
		return NewLevelDB(dataDir)
	case BackendBolt:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, err
		}
		return NewBoltDB(filepath.Join(dataDir, "registry.db"), nil)
	case BackendSQL:
		if strings.TrimSpace(dsn) == "" {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, err
			}
			dsn = filepath.Join(dataDir, "registry.sqlite")
		}
		return NewSQLDB(dsn)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
