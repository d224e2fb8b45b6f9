package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns settings for a local PostgreSQL instance.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		DBName:  "health_agent",
		SSLMode: "disable",
	}
}

// PostgresConfigFromEnv reads POSTGRES_* environment variables, falling
// back to defaults for anything unset.
func PostgresConfigFromEnv() PostgresConfig {
	cfg := DefaultPostgresConfig()
	cfg.Host = getEnv("POSTGRES_HOST", cfg.Host)
	cfg.Port = getEnvInt("POSTGRES_PORT", cfg.Port)
	cfg.User = getEnv("POSTGRES_USER", cfg.User)
	cfg.Password = getEnv("POSTGRES_PASSWORD", cfg.Password)
	cfg.DBName = getEnv("POSTGRES_DB", cfg.DBName)
	cfg.SSLMode = getEnv("POSTGRES_SSLMODE", cfg.SSLMode)
	return cfg
}

// DSN renders the config as a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// DefaultMongoConfig returns settings for a local MongoDB instance.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:      "mongodb://localhost:27017",
		Database: "health_agent",
		Timeout:  10 * time.Second,
	}
}

// MongoConfigFromEnv reads MONGODB_* environment variables, falling back
// to defaults for anything unset.
func MongoConfigFromEnv() MongoConfig {
	cfg := DefaultMongoConfig()
	cfg.URI = getEnv("MONGODB_URI", cfg.URI)
	cfg.Database = getEnv("MONGODB_DATABASE", cfg.Database)
	cfg.Timeout = getEnvDuration("MONGODB_TIMEOUT", cfg.Timeout)
	return cfg
}

// SQLitePathFromEnv reads SQLITE_PATH, defaulting to a local data file.
func SQLitePathFromEnv() string {
	return getEnv("SQLITE_PATH", "data/health_agent.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
