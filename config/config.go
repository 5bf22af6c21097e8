package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration loaded from environment
// variables. Trip-specific settings live in Trip.
type Config struct {
	BaseURL      string
	LogFile      string
	WorkRoot     string
	Headless     bool
	ChromeBin    string
	LogLevel     string
	QueryTimeout time.Duration
	LayoutSettle time.Duration

	MaxRetries        int
	RateLimitMs       int
	AbortOnFetchError bool

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	NotifyTo     []string

	MetricsTextfile string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		BaseURL:      getEnv("FARE_BASE_URL", "https://www.southwest.com"),
		LogFile:      getEnv("FARE_LOG_FILE", "log.csv"),
		WorkRoot:     getEnv("FARE_WORK_ROOT", "."),
		Headless:     getEnvBool("FARE_HEADLESS", true),
		ChromeBin:    getEnv("CHROME_BIN", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		QueryTimeout: time.Duration(getEnvInt("FARE_QUERY_TIMEOUT_SEC", 60)) * time.Second,
		LayoutSettle: time.Duration(getEnvInt("FARE_LAYOUT_SETTLE_MS", 3000)) * time.Millisecond,

		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		RateLimitMs:       getEnvInt("RATE_LIMIT_MS", 2000),
		AbortOnFetchError: getEnvBool("FARE_ABORT_ON_FETCH_ERROR", false),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "fares"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "fares"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		NotifyTo:     getEnvList("NOTIFY_TO"),

		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("base URL %q must include a scheme and host", c.BaseURL)
	}
	if strings.TrimSpace(c.LogFile) == "" {
		return fmt.Errorf("log file name cannot be empty")
	}
	if strings.ContainsRune(c.LogFile, os.PathSeparator) {
		return fmt.Errorf("log file name %q must not contain a path separator", c.LogFile)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	if c.LayoutSettle < 0 {
		return fmt.Errorf("layout settle delay cannot be negative")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.RateLimitMs < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.SMTPServer != "" && len(c.NotifyTo) == 0 {
		return fmt.Errorf("SMTP_SERVER is set but NOTIFY_TO is empty")
	}
	return nil
}

// PostgresEnabled reports whether the history mirror should be written.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
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
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("[config] Invalid int for %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("[config] Invalid bool for %s=%q, using default %t", key, val, fallback)
		return fallback
	}
	return b
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
