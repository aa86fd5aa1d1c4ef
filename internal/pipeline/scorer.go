package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/hfepa/internal/hfepa"
	"github.com/dgallion1/hfepa/internal/stats"
	"github.com/dgallion1/hfepa/internal/store"
)

// Scorer runs detectors through the result cache and records latency.
// A nil cache disables caching.
type Scorer struct {
	cache   store.ResultStore
	latency *stats.Latency
	log     *slog.Logger
}

func NewScorer(cache store.ResultStore, latency *stats.Latency, log *slog.Logger) *Scorer {
	if latency == nil {
		latency = stats.NewLatency(time.Hour)
	}
	return &Scorer{cache: cache, latency: latency, log: log}
}

// Scored is the outcome of one Annotate call.
type Scored struct {
	Result      hfepa.AnnotatedDocument
	ContentHash string
	Cached      bool
}

// Annotate returns det's annotation of doc, from the cache when an entry
// for the same content and options exists. Cache failures are logged and
// fall through to scoring.
func (s *Scorer) Annotate(ctx context.Context, det *hfepa.Detector, doc hfepa.Document) (Scored, error) {
	start := time.Now()
	if err := hfepa.ValidateDocument(doc); err != nil {
		return Scored{}, err
	}

	hash := store.ContentHash(doc)
	optionsKey := det.Options().Fingerprint()

	if s.cache != nil {
		result, err := s.cache.Get(ctx, hash, optionsKey)
		switch {
		case err == nil:
			s.latency.Record(time.Since(start), true)
			return Scored{Result: result, ContentHash: hash, Cached: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			s.log.Warn("result cache read failed", "content_hash", hash, "error", err)
		}
	}

	result, err := det.Annotate(doc)
	if err != nil {
		return Scored{}, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, hash, optionsKey, result); err != nil {
			s.log.Warn("result cache write failed", "content_hash", hash, "error", err)
		}
	}
	s.latency.Record(time.Since(start), false)
	return Scored{Result: result, ContentHash: hash}, nil
}

// Latency returns the rolling scoring latency tracker.
func (s *Scorer) Latency() *stats.Latency {
	return s.latency
}

// CleanupCache drops expired cache entries when the store supports it.
func (s *Scorer) CleanupCache(ctx context.Context) {
	c, ok := s.cache.(store.Cleaner)
	if !ok {
		return
	}
	n, err := c.Cleanup(ctx)
	if err != nil {
		s.log.Warn("result cache cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("result cache cleanup", "removed", n)
	}
}
