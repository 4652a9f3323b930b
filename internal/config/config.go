package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort    string
	LogLevel    string
	CatalogFile string
	Database    DatabaseConfig
	Redis       RedisConfig
	Provider    ProviderConfig
	UsageLedger UsageLedgerConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// the Postgres catalog source.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderConfig holds provider-related settings
type ProviderConfig struct {
	RequestTimeout time.Duration // Timeout for one upstream generation request
}

// UsageLedgerConfig controls the Redis usage ledger
type UsageLedgerConfig struct {
	Enabled bool
	TTL     time.Duration // How long a monthly bucket is kept

	// Entries are written by a background worker fed through a queue
	QueueBackend  string // "memory" or "redis"
	QueueCapacity int    // Memory backend only
	BatchSize     int
	BatchTimeout  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// Load reads configuration from a .env file, if present, and the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return FromEnv(), nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() *Config {
	return &Config{
		HTTPPort:    getEnvString("HTTP_PORT", "8080"),
		LogLevel:    getEnvString("LOG_LEVEL", ""),
		CatalogFile: getEnvString("CATALOG_FILE", ""),
		Database: DatabaseConfig{
			URL:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
			QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Provider: ProviderConfig{
			RequestTimeout: getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
		},
		UsageLedger: UsageLedgerConfig{
			Enabled: getEnvBool("USAGE_LEDGER_ENABLED", false),
			TTL:     getEnvDuration("USAGE_LEDGER_TTL", 400*24*time.Hour),

			QueueBackend:  getEnvString("USAGE_QUEUE_BACKEND", "memory"),
			QueueCapacity: getEnvInt("USAGE_QUEUE_CAPACITY", 1000),
			BatchSize:     getEnvInt("USAGE_QUEUE_BATCH_SIZE", 100),
			BatchTimeout:  getEnvDuration("USAGE_QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:    getEnvInt("USAGE_QUEUE_MAX_RETRIES", 3),
			RetryBackoff:  getEnvDuration("USAGE_QUEUE_RETRY_BACKOFF", time.Second),
		},
	}
}
