// Package pg implements the knowledge-base vector store on PostgreSQL with
// the pgvector extension.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sweetpotato0/health-agent/config"
	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/vector"
)

// Store implements vector.Store on a pgvector table.
type Store struct {
	db        *sql.DB
	dimension int
	tableName string
}

// Config holds the pgvector connection settings.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // embedding dimension (default 1536)
	TableName string // default health_documents
}

// DefaultConfig returns the local development defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		Password:  "123456",
		DBName:    "health_agent",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "health_documents",
	}
}

// New connects to PostgreSQL, enables pgvector and creates the table.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := config.ValidatePGVectorConfig(cfg.Host, cfg.Port, cfg.User, cfg.Password,
		cfg.DBName, cfg.SSLMode, cfg.Dimension, cfg.TableName); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := &Store{
		db:        db,
		dimension: cfg.Dimension,
		tableName: cfg.TableName,
	}
	if err := s.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup pgvector: %w", err)
	}
	return s, nil
}

func (s *Store) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		meta JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces an entry by ID.
func (s *Store) Upsert(ctx context.Context, entry *vector.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil: %w", errorskg.ErrInvalidInput)
	}
	if entry.ID == "" {
		return fmt.Errorf("entry ID cannot be empty: %w", errorskg.ErrInvalidInput)
	}
	if len(entry.Vector) != s.dimension {
		return fmt.Errorf("entry dimension mismatch: expected %d, got %d: %w",
			s.dimension, len(entry.Vector), errorskg.ErrInvalidInput)
	}

	meta, err := encodeMeta(entry.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, text, embedding, meta)
	VALUES ($1, $2, $3::vector, $4)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text,
		embedding = EXCLUDED.embedding,
		meta = EXCLUDED.meta,
		created_at = CURRENT_TIMESTAMP
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, entry.ID, entry.Text, vectorToString(entry.Vector), meta); err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// Search returns the topK most similar entries, ordered by the pgvector
// cosine operator.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]*vector.Entry, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty: %w", errorskg.ErrInvalidInput)
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d: %w",
			s.dimension, len(queryVector), errorskg.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 10
	}

	query := fmt.Sprintf(`
	SELECT id, text, embedding, meta
	FROM %s
	ORDER BY embedding %s $1::vector
	LIMIT $2
	`, s.tableName, vector.CosineSimilarityOperator())

	rows, err := s.db.QueryContext(ctx, query, vectorToString(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*vector.Entry, 0, topK)
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// Delete removes an entry by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("entry %s: %w", id, errorskg.ErrNotFound)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*vector.Entry, error) {
	query := fmt.Sprintf(`
	SELECT id, text, embedding, meta
	FROM %s
	WHERE id = $1
	`, s.tableName)

	row := s.db.QueryRowContext(ctx, query, id)
	entry, err := scanEntry(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("entry %s: %w", id, errorskg.ErrNotFound)
		}
		return nil, err
	}
	return entry, nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntry(scan func(dest ...any) error) (*vector.Entry, error) {
	var id, text, vecStr string
	var meta sql.NullString
	if err := scan(&id, &text, &vecStr, &meta); err != nil {
		return nil, err
	}

	vec, err := stringToVector(vecStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector for entry %s: %w", id, err)
	}
	entry := &vector.Entry{ID: id, Text: text, Vector: vec}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &entry.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta for entry %s: %w", id, err)
		}
	}
	return entry, nil
}

func encodeMeta(meta map[string]string) (any, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// vectorToString renders a vector in pgvector input form: [0.1,0.2,...].
func vectorToString(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func stringToVector(str string) ([]float32, error) {
	str = strings.TrimPrefix(str, "[")
	str = strings.TrimSuffix(str, "]")
	parts := strings.Split(str, ",")

	vec := make([]float32, 0, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vector component at index %d: %q", i, part)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}
