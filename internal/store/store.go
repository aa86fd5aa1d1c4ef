// Package store caches annotated documents keyed by document content and
// detector options, so repeated requests skip scoring.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

// ErrNotFound is returned by Get for a missing or expired entry.
var ErrNotFound = errors.New("result not found")

// ResultStore persists annotation results.
type ResultStore interface {
	Get(ctx context.Context, contentHash, optionsKey string) (hfepa.AnnotatedDocument, error)
	Put(ctx context.Context, contentHash, optionsKey string, result hfepa.AnnotatedDocument) error
	Close() error
}

// Cleaner is implemented by stores that can drop expired entries.
type Cleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

var (
	_ Cleaner = (*MemoryStore)(nil)
	_ Cleaner = (*SQLStore)(nil)
)

// Open returns the store for driver: "memory", "sqlite" or "pgx".
func Open(ctx context.Context, driver, dsn string, ttl time.Duration, log *slog.Logger) (ResultStore, error) {
	switch driver {
	case "", "memory":
		log.Info("result cache", "driver", "memory", "ttl", ttl.String())
		return NewMemoryStore(ttl), nil
	case "sqlite", "pgx":
		s, err := OpenSQL(ctx, driver, dsn, ttl)
		if err != nil {
			return nil, err
		}
		log.Info("result cache", "driver", driver, "ttl", ttl.String())
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// ContentHash computes SHA-256 of the document's JSON form and returns
// it as hex. Identical page and line content always hashes the same.
func ContentHash(doc hfepa.Document) string {
	if doc == nil {
		doc = hfepa.Document{}
	}
	data, _ := json.Marshal(doc) // a slice of string slices always marshals
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
