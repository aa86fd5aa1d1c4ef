package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/hfepa/internal/hfepa"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

const schema = `
create table if not exists hfepa_results (
	content_hash text not null,
	options_key  text not null,
	result_json  text not null,
	created_at   bigint not null,
	primary key (content_hash, options_key)
)`

// SQLStore keeps results in a single table through database/sql. The same
// queries run on SQLite and Postgres; only the placeholder style differs.
type SQLStore struct {
	DB     *sql.DB
	driver string
	ttl    time.Duration
	now    func() time.Time
}

// OpenSQL connects with driver "sqlite" or "pgx", pings, and creates the
// results table when missing.
func OpenSQL(ctx context.Context, driver, dsn string, ttl time.Duration) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store dsn is required for driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer at a time avoids SQLITE_BUSY under concurrent workers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{DB: db, driver: driver, ttl: ttl, now: time.Now}, nil
}

// bind rewrites ? placeholders to $N for Postgres.
func (s *SQLStore) bind(q string) string {
	if s.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get returns the cached result. Expired or corrupt rows read as ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, contentHash, optionsKey string) (hfepa.AnnotatedDocument, error) {
	q := s.bind(`select result_json, created_at
	             from hfepa_results
	             where content_hash=? and options_key=?`)
	var (
		js        string
		createdMs int64
	)
	err := s.DB.QueryRowContext(ctx, q, contentHash, optionsKey).Scan(&js, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	if s.ttl > 0 && s.now().Sub(time.UnixMilli(createdMs)) > s.ttl {
		return nil, ErrNotFound
	}
	var doc hfepa.AnnotatedDocument
	if err := json.Unmarshal([]byte(js), &doc); err != nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Put inserts or replaces the result for (contentHash, optionsKey).
func (s *SQLStore) Put(ctx context.Context, contentHash, optionsKey string, result hfepa.AnnotatedDocument) error {
	js, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	q := s.bind(`
insert into hfepa_results(content_hash, options_key, result_json, created_at)
values (?,?,?,?)
on conflict (content_hash, options_key)
do update set result_json=excluded.result_json, created_at=excluded.created_at`)
	if _, err := s.DB.ExecContext(ctx, q, contentHash, optionsKey, string(js), s.now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// Cleanup deletes rows older than the TTL.
func (s *SQLStore) Cleanup(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixMilli()
	res, err := s.DB.ExecContext(ctx, s.bind(`delete from hfepa_results where created_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup results: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Close() error { return s.DB.Close() }
