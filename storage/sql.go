package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS board_kv (
	key_name TEXT PRIMARY KEY,
	value    TEXT NOT NULL
)`

// SQLStore keeps the board document in one row of a key/value table.
type SQLStore struct {
	db       *sql.DB
	key      string
	postgres bool
}

// NewSQLiteStore opens (and creates if needed) a sqlite database at path.
func NewSQLiteStore(path, key string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	return newSQLStore(db, key, false)
}

// NewPostgresStore connects to a postgres database.
func NewPostgresStore(url, key string) (*SQLStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLStore(db, key, true)
}

func newSQLStore(db *sql.DB, key string, postgres bool) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLStore{db: db, key: key, postgres: postgres}, nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT value FROM board_kv WHERE key_name = ?"), s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select board: %w", err)
	}
	return []byte(value), nil
}

func (s *SQLStore) Save(ctx context.Context, raw []byte) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO board_kv (key_name, value) VALUES (?, ?) ON CONFLICT (key_name) DO UPDATE SET value = excluded.value"),
		s.key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("upsert board: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM board_kv WHERE key_name = ?"), s.key); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
