package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	last_active INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS health_records (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	important INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	UNIQUE(user_id, category, content)
);

CREATE INDEX IF NOT EXISTS idx_health_records_user ON health_records(user_id, important DESC, created_at DESC);
`

// SQLiteStore implements memory.Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateUser registers a user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *memory.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user ID cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastActive = now

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, display_name, created_at, last_active) VALUES (?, ?, ?, ?)`,
		user.ID, user.DisplayName, user.CreatedAt.Unix(), user.LastActive.Unix())
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", user.ID, errorskg.ErrAlreadyExists)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*memory.User, error) {
	var (
		u                   memory.User
		created, lastActive int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at, last_active FROM users WHERE id = ?`,
		userID).Scan(&u.ID, &u.DisplayName, &created, &lastActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0)
	u.LastActive = time.Unix(lastActive, 0)
	return &u, nil
}

// TouchUser bumps the user's last-active timestamp.
func (s *SQLiteStore) TouchUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active = ? WHERE id = ?`, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user, their profile and their records.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM health_records WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// SaveProfile stores a user's structured profile as JSON.
func (s *SQLiteStore) SaveProfile(ctx context.Context, userID string, profile *memory.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	profile.UpdatedAt = time.Now()
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		userID, string(data), profile.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetProfile returns a user's structured profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*memory.Profile, error) {
	var (
		data    string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT profile, updated_at FROM profiles WHERE user_id = ?`, userID).Scan(&data, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile %s: %w", userID, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p memory.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

// AddRecord stores a record, reporting false for duplicates.
func (s *SQLiteStore) AddRecord(ctx context.Context, rec *memory.Record) (bool, error) {
	if rec == nil || rec.UserID == "" || rec.Content == "" {
		return false, fmt.Errorf("record needs user and content: %w", errorskg.ErrInvalidInput)
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO health_records (id, user_id, category, content, important, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.Category, rec.Content, boolToInt(rec.Important), created.Unix())
	if err != nil {
		return false, fmt.Errorf("add record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add record: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	rec.ID = id
	rec.CreatedAt = created
	return true, nil
}

// Records lists a user's records, important first then newest first.
func (s *SQLiteStore) Records(ctx context.Context, userID string) ([]*memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, content, important, created_at
		FROM health_records WHERE user_id = ?
		ORDER BY important DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecordsByCategory lists a user's records in one category.
func (s *SQLiteStore) RecordsByCategory(ctx context.Context, userID, category string) ([]*memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, content, important, created_at
		FROM health_records WHERE user_id = ? AND category = ?
		ORDER BY important DESC, created_at DESC`, userID, category)
	if err != nil {
		return nil, fmt.Errorf("list records by category: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteRecord removes one record by its dedup key.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, userID, category, content string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM health_records WHERE user_id = ? AND category = ? AND content = ?`,
		userID, category, content)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s/%s: %w", category, content, errorskg.ErrNotFound)
	}
	return nil
}

// ClearRecords removes all of a user's records.
func (s *SQLiteStore) ClearRecords(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM health_records WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanRecords(rows *sql.Rows) ([]*memory.Record, error) {
	var out []*memory.Record
	for rows.Next() {
		var (
			rec       memory.Record
			important int
			created   int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Category, &rec.Content, &important, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Important = important != 0
		rec.CreatedAt = time.Unix(created, 0)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ memory.Store = (*SQLiteStore)(nil)
