package offline

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gestorebinder/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists generations so cached responses survive restarts of
// the CLI.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and migrates) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(dbPath, migrationsFS)
	if err != nil {
		return nil, fmt.Errorf("offline store: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// NewSQLiteStoreFromDB wraps an already migrated database.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Open(ctx context.Context, cache string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_generations (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		cache, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("open cache %s: %w", cache, err)
	}
	return nil
}

func (s *SQLiteStore) Caches(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cache_generations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, cache string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete %s: %w", cache, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_responses WHERE cache_name = ?`, cache); err != nil {
		return false, fmt.Errorf("delete responses of %s: %w", cache, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_generations WHERE name = ?`, cache)
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", cache, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", cache, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete %s: %w", cache, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Put(ctx context.Context, cache, key string, resp CachedResponse) error {
	header, err := json.Marshal(resp.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := s.Open(ctx, cache); err != nil {
		return err
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_responses (cache_name, request_key, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, request_key) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at`,
		cache, key, resp.Status, string(header), body, resp.StoredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put %s in %s: %w", key, cache, err)
	}
	return nil
}

func (s *SQLiteStore) Match(ctx context.Context, cache, key string) (CachedResponse, error) {
	var (
		resp     CachedResponse
		header   string
		storedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM cached_responses WHERE cache_name = ? AND request_key = ?`,
		cache, key).Scan(&resp.Status, &header, &resp.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedResponse{}, ErrNoMatch
	}
	if err != nil {
		return CachedResponse{}, fmt.Errorf("match %s in %s: %w", key, cache, err)
	}
	resp.Header = http.Header{}
	if err := json.Unmarshal([]byte(header), &resp.Header); err != nil {
		return CachedResponse{}, fmt.Errorf("decode header: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, storedAt); err == nil {
		resp.StoredAt = t
	}
	return resp, nil
}

func (s *SQLiteStore) Keys(ctx context.Context, cache string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_key FROM cached_responses WHERE cache_name = ? ORDER BY request_key`, cache)
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", cache, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
