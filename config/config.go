package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	R2Endpoint  string
	R2AccessKey string
	R2SecretKey string
	R2Bucket    string
	R2UseSSL    bool

	MaxPages       int
	MaxConcurrency int
	MaxRetries     int
	RequestTimeout int // seconds
	MinSleepMs     int
	MaxSleepMs     int

	// ResumeFull switches discovery from watermark mode to filtering
	// against the full set of known external IDs.
	ResumeFull bool

	UserAgent   string
	ProfilePath string
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 15_3_1) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) " +
	"Version/17.4 Safari/605.1.15"

// Load reads the .env file and returns a populated Config struct. Missing
// store credentials are a hard startup failure: the crawler must never
// begin work it cannot persist.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", ""),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "listing-images"),
		R2UseSSL:    getEnvBool("R2_USE_SSL", true),

		MaxPages:       getEnvInt("MAX_PAGES", 50),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RequestTimeout: getEnvInt("REQUEST_TIMEOUT_SEC", 15),
		MinSleepMs:     getEnvInt("MIN_SLEEP_MS", 1000),
		MaxSleepMs:     getEnvInt("MAX_SLEEP_MS", 3000),

		ResumeFull: getEnvBool("RESUME_FULL", false),

		UserAgent:   getEnv("USER_AGENT", defaultUserAgent),
		ProfilePath: getEnv("SITE_PROFILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" {
		return fmt.Errorf("config: POSTGRES_USER and POSTGRES_PASSWORD must be set")
	}
	if c.R2Endpoint == "" || c.R2AccessKey == "" || c.R2SecretKey == "" {
		return fmt.Errorf("config: R2_ENDPOINT, R2_ACCESS_KEY and R2_SECRET_KEY must be set")
	}
	if c.MinSleepMs > c.MaxSleepMs {
		return fmt.Errorf("config: MIN_SLEEP_MS (%d) exceeds MAX_SLEEP_MS (%d)", c.MinSleepMs, c.MaxSleepMs)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
