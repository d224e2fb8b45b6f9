package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/sweetpotato0/health-agent/config"
	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	last_active TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	profile JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS health_records (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	important BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE(user_id, category, content)
);

CREATE INDEX IF NOT EXISTS idx_health_records_user ON health_records(user_id, important DESC, created_at DESC);
`

// PostgresStore implements memory.Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and ensures the schema exists.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if err := config.ValidatePostgresConfig(cfg.Host, cfg.Port, cfg.User, cfg.Password,
		cfg.DBName, cfg.SSLMode); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// CreateUser registers a user.
func (s *PostgresStore) CreateUser(ctx context.Context, user *memory.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user ID cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastActive = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, created_at, last_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		user.ID, user.DisplayName, user.CreatedAt, user.LastActive)
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
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*memory.User, error) {
	var u memory.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at, last_active FROM users WHERE id = $1`,
		userID).Scan(&u.ID, &u.DisplayName, &u.CreatedAt, &u.LastActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// TouchUser bumps the user's last-active timestamp.
func (s *PostgresStore) TouchUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active = $1 WHERE id = $2`, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user, their profile and their records.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM health_records WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// SaveProfile stores a user's structured profile as JSONB.
func (s *PostgresStore) SaveProfile(ctx context.Context, userID string, profile *memory.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	profile.UpdatedAt = time.Now()
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`,
		userID, data, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetProfile returns a user's structured profile.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*memory.Profile, error) {
	var (
		data    []byte
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT profile, updated_at FROM profiles WHERE user_id = $1`, userID).Scan(&data, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile %s: %w", userID, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p memory.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	p.UpdatedAt = updated
	return &p, nil
}

// AddRecord stores a record, reporting false for duplicates.
func (s *PostgresStore) AddRecord(ctx context.Context, rec *memory.Record) (bool, error) {
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
		INSERT INTO health_records (id, user_id, category, content, important, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, category, content) DO NOTHING`,
		id, rec.UserID, rec.Category, rec.Content, rec.Important, created)
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
func (s *PostgresStore) Records(ctx context.Context, userID string) ([]*memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, content, important, created_at
		FROM health_records WHERE user_id = $1
		ORDER BY important DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return scanPGRecords(rows)
}

// RecordsByCategory lists a user's records in one category.
func (s *PostgresStore) RecordsByCategory(ctx context.Context, userID, category string) ([]*memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, content, important, created_at
		FROM health_records WHERE user_id = $1 AND category = $2
		ORDER BY important DESC, created_at DESC`, userID, category)
	if err != nil {
		return nil, fmt.Errorf("list records by category: %w", err)
	}
	defer rows.Close()
	return scanPGRecords(rows)
}

// DeleteRecord removes one record by its dedup key.
func (s *PostgresStore) DeleteRecord(ctx context.Context, userID, category, content string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM health_records WHERE user_id = $1 AND category = $2 AND content = $3`,
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
func (s *PostgresStore) ClearRecords(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM health_records WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error { return s.db.Close() }

func scanPGRecords(rows *sql.Rows) ([]*memory.Record, error) {
	var out []*memory.Record
	for rows.Next() {
		var rec memory.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Category, &rec.Content, &rec.Important, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

var _ memory.Store = (*PostgresStore)(nil)
