package store

import (
	"context"

	"github.com/justicebus/offlinesync/internal/logging"
)

// Open selects the best available storage tier: SQLite when the database can
// be opened and migrated, otherwise the flat-file fallback in dataDir. It
// only fails when neither tier is usable.
func Open(ctx context.Context, dbPath, dataDir string, log logging.Logger) (Store, error) {
	s, err := OpenSQLite(ctx, dbPath)
	if err == nil {
		return s, nil
	}
	log.Warn(ctx, "structured store unavailable, falling back to flat files", "error", err)
	return NewFileStore(dataDir)
}
