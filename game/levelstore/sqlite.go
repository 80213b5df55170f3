package levelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/tout-va-bien/game/levelstore/migrations"
	"github.com/wricardo/tout-va-bien/game/service"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore keeps published levels in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies the embedded
// migrations
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put inserts a published level
func (s *SQLiteStore) Put(ctx context.Context, level *service.PublishedLevel) error {
	if level == nil {
		return fmt.Errorf("published level cannot be nil")
	}
	if err := validateID(level.ID); err != nil {
		return err
	}

	createdAt := level.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO published_levels (id, data, created_at) VALUES (?, ?, ?)`,
		level.ID, string(level.Data), createdAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, level.ID)
		}
		return fmt.Errorf("insert published level: %w", err)
	}
	return nil
}

// Get loads a published level by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*service.PublishedLevel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data, created_at FROM published_levels WHERE id = ?`, id)

	level, err := scanLevel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get published level: %w", err)
	}
	return level, nil
}

// List returns every published level, oldest first
func (s *SQLiteStore) List(ctx context.Context) ([]*service.PublishedLevel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, created_at FROM published_levels ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list published levels: %w", err)
	}
	defer rows.Close()

	var levels []*service.PublishedLevel
	for rows.Next() {
		level, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan published level: %w", err)
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published levels: %w", err)
	}
	return levels, nil
}

// Close closes the database handle
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLevel(row rowScanner) (*service.PublishedLevel, error) {
	var (
		level     service.PublishedLevel
		data      string
		createdAt int64
	)
	if err := row.Scan(&level.ID, &data, &createdAt); err != nil {
		return nil, err
	}
	level.Data = []byte(data)
	level.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &level, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
