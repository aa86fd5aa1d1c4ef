package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/hfepa/internal/hfepa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() hfepa.AnnotatedDocument {
	return hfepa.AnnotatedDocument{
		{
			{Text: "ACME Corp", LineType: hfepa.LineHeader, HeaderScore: 9, HeaderCandidate: true, Normalized: "ACME Corp"},
			{Text: "body", LineType: hfepa.LineBody, Line: 1},
			{Text: "Page 1", LineType: hfepa.LineFooter, FooterScore: 8.5, FooterCandidate: true, Line: 2, Normalized: "Page @"},
		},
		{},
	}
}

func openSQLite(t *testing.T, ttl time.Duration) *SQLStore {
	t.Helper()
	s, err := OpenSQL(context.Background(), "sqlite", filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestContentHash(t *testing.T) {
	a := hfepa.Document{{"x", "y"}, {"z"}}
	b := hfepa.Document{{"x", "y"}, {"z"}}
	c := hfepa.Document{{"x"}, {"y", "z"}}

	assert.Equal(t, ContentHash(a), ContentHash(b))
	assert.NotEqual(t, ContentHash(a), ContentHash(c), "page boundaries are part of the content")
	assert.Len(t, ContentHash(a), 64)
	assert.Equal(t, ContentHash(nil), ContentHash(hfepa.Document{}))
}

func TestStores_RoundTrip(t *testing.T) {
	stores := map[string]ResultStore{
		"memory": NewMemoryStore(time.Hour),
		"sqlite": openSQLite(t, time.Hour),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "h1", "opts")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "h1", "opts", sampleResult()))
			got, err := s.Get(ctx, "h1", "opts")
			require.NoError(t, err)
			assert.Equal(t, sampleResult(), got)

			_, err = s.Get(ctx, "h1", "other-opts")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStores_PutReplaces(t *testing.T) {
	stores := map[string]ResultStore{
		"memory": NewMemoryStore(time.Hour),
		"sqlite": openSQLite(t, time.Hour),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "h", "k", sampleResult()))

			replacement := hfepa.AnnotatedDocument{{{Text: "only", LineType: hfepa.LineBody}}}
			require.NoError(t, s.Put(ctx, "h", "k", replacement))

			got, err := s.Get(ctx, "h", "k")
			require.NoError(t, err)
			assert.Equal(t, replacement, got)
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "h", "k", sampleResult()))
	clock = clock.Add(30 * time.Second)
	_, err := s.Get(ctx, "h", "k")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = s.Get(ctx, "h", "k")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	in := sampleResult()
	require.NoError(t, s.Put(ctx, "h", "k", in))
	in[0][0].Text = "mutated"

	got, err := s.Get(ctx, "h", "k")
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", got[0][0].Text)
	got[0][0].Text = "again"

	again, err := s.Get(ctx, "h", "k")
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", again[0][0].Text)
}

func TestSQLStore_Expiry(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := openSQLite(t, time.Hour)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "old", "k", sampleResult()))
	clock = clock.Add(2 * time.Hour)
	require.NoError(t, s.Put(ctx, "new", "k", sampleResult()))

	_, err := s.Get(ctx, "old", "k")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "new", "k")
	require.NoError(t, err)

	n, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLStore_CorruptRowIsMiss(t *testing.T) {
	s := openSQLite(t, 0)
	ctx := context.Background()
	_, err := s.DB.ExecContext(ctx,
		`insert into hfepa_results(content_hash, options_key, result_json, created_at) values (?,?,?,?)`,
		"h", "k", "{not json", time.Now().UnixMilli())
	require.NoError(t, err)

	_, err = s.Get(ctx, "h", "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Bind(t *testing.T) {
	pg := &SQLStore{driver: "pgx"}
	assert.Equal(t, "a=$1 and b=$2", pg.bind("a=? and b=?"))

	lite := &SQLStore{driver: "sqlite"}
	assert.Equal(t, "a=? and b=?", lite.bind("a=? and b=?"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory", "", time.Hour, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, "sqlite", filepath.Join(t.TempDir(), "c.db"), time.Hour, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "sqlite", "", time.Hour, testLogger())
	assert.Error(t, err)

	_, err = Open(ctx, "redis", "x", time.Hour, testLogger())
	assert.Error(t, err)
}
