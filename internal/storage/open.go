package storage

import (
	"context"
	"errors"
	"strings"

	logx "qapipe/pkg/logx"
)

// Store is the persistence API the orchestrator and its collaborators use.
//
// No mutual exclusion is provided across pipeline runs: two concurrent runs
// may interleave reads and writes. That matches the orchestrator's documented
// (lock-free) concurrency model.
type Store interface {
	StoreDocuments(ctx context.Context, docs []Document) ([]int64, error)
	// Documents returns stored documents; limit <= 0 means all.
	Documents(ctx context.Context, limit int) ([]Document, error)

	StoreTrainingPairs(ctx context.Context, pairs []QAPair) ([]int64, error)
	TrainingPairs(ctx context.Context) ([]QAPair, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
