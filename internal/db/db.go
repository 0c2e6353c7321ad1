package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/tgienger/yuflow/internal/models"
)

//go:embed schema.sql
var schema string

// Registered database/sql driver names
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// Timestamps are stored as fixed-width UTC text so lexical order is chronological
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the database connection
type DB struct {
	*sql.DB

	// Clock supplies the current time; timestamps and date windows use it
	Clock func() time.Time
}

// Open opens the SQLite database at path with the given driver, applies the
// schema and seeds the default category on first run.
func Open(ctx context.Context, driver, path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("db path is empty")
	}
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPure {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn(driver, path))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	// Initialize schema
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{DB: conn, Clock: time.Now}
	if err := db.seed(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// seed inserts the default category into an empty categories table
func (db *DB) seed(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO categories (id, name, color, created_at)
		SELECT 1, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM categories)
	`, models.DefaultCategoryName, models.DefaultCategoryColor, db.stamp())
	return err
}

func (db *DB) now() time.Time {
	return db.Clock()
}

func (db *DB) stamp() string {
	return formatTime(db.now())
}

func dsn(driver, path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	switch driver {
	case DriverPure:
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "busy_timeout(5000)")
	default:
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", "5000")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// GetSetting retrieves a setting value by key, nil when unset
func (db *DB) GetSetting(ctx context.Context, key string) (*string, error) {
	var value string
	err := db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// SetSetting sets a setting value
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, db.stamp())
	return err
}

// ListSettings returns every setting ordered by key
func (db *DB) ListSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value, updated_at FROM settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []models.Setting{}
	for rows.Next() {
		var s models.Setting
		var updated string
		if err := rows.Scan(&s.Key, &s.Value, &updated); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// ClearAll deletes every row of every table in one transaction
func (db *DB) ClearAll(ctx context.Context) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"task_tags", "tasks", "tags", "categories", "settings"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}
