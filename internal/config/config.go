package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	StoreBackend       string
	FirebaseProjectID  string
	FirebaseCredsJSON  string
	FirebaseCredsFile  string
	FirestoreEmulator  string
	FirestoreUsersColl string
	DatabaseURL        string

	LocalStore    string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Timezone           *time.Location
	FetchLimit         int
	PageSize           int
	MaxFetchRetries    uint64
	RetryBackoff       time.Duration
	SubmissionCooldown time.Duration

	ClerkSecretKey string
	MetricsUser    string
	MetricsPass    string
	RateLimitRPS   float64
	RateLimitBurst int
}

const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"

	LocalSQLite = "sqlite"
	LocalRedis  = "redis"
)

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Port:               getenv("PORT", "3333"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		StoreBackend:       getenv("STORE_BACKEND", BackendFirestore),
		FirebaseProjectID:  os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredsJSON:  os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"),
		FirebaseCredsFile:  getenv("FIREBASE_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		FirestoreEmulator:  os.Getenv("FIRESTORE_EMULATOR_HOST"),
		FirestoreUsersColl: getenv("FIRESTORE_USERS_COLLECTION", "users"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		LocalStore:         getenv("LOCAL_STORE", LocalSQLite),
		SQLitePath:         getenv("SQLITE_PATH", "fitladder.db"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		ClerkSecretKey:     os.Getenv("CLERK_SECRET_KEY"),
		MetricsUser:        os.Getenv("METRICS_USER"),
		MetricsPass:        os.Getenv("METRICS_PASS"),
	}

	var err error
	if cfg.RedisDB, err = getint("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.FetchLimit, err = getint("LADDER_FETCH_LIMIT", 200); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = getint("LADDER_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	retries, err := getint("LADDER_FETCH_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cfg.MaxFetchRetries = uint64(max(retries, 0))
	if cfg.RetryBackoff, err = getduration("LADDER_RETRY_BACKOFF", time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getint("RATE_LIMIT_BURST", 30); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getfloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.SubmissionCooldown, err = getduration("SUBMISSION_COOLDOWN", 24*time.Hour); err != nil {
		return nil, err
	}

	tz := getenv("LADDER_TIMEZONE", "Local")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid LADDER_TIMEZONE %q: %w", tz, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ClerkSecretKey == "" {
		return fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LocalStore {
	case LocalSQLite, LocalRedis:
	default:
		return fmt.Errorf("unknown LOCAL_STORE %q", c.LocalStore)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.FetchLimit <= 0 || c.PageSize <= 0 {
		return fmt.Errorf("LADDER_FETCH_LIMIT and LADDER_PAGE_SIZE must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getfloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
