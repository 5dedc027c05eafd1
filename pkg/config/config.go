package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Database  DatabaseConfig
	Redis     RedisConfig
	Naver     NaverConfig
	Collector CollectorConfig
	Backtest  BacktestConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NaverConfig holds Naver Finance endpoints
type NaverConfig struct {
	BaseURL  string // HTML pages (company summary)
	ChartURL string // fchart JSON API (daily bars)
}

// CollectorConfig controls the crawl jobs
type CollectorConfig struct {
	Workers       int
	RatePerSecond float64
	RateBurst     int
	SkipPrefixes  []string // 수집 제외 종목코드 prefix
	StatusDBPath  string   // SQLite 체크포인트 DB
	StartDate     string   // 최초 수집 시작일 (YYYY-MM-DD)
	LookbackDays  int      // 스케줄 수집 시 재수집 기간
	IndexCodes    []string
}

// BacktestConfig holds default backtest collaborators
type BacktestConfig struct {
	BenchmarkCode string
	CalendarIndex string
	ReportDir     string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Naver: NaverConfig{
			BaseURL:  getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL: getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
		},

		Collector: CollectorConfig{
			Workers:       getEnvAsInt("COLLECTOR_WORKERS", 4),
			RatePerSecond: getEnvAsFloat("COLLECTOR_RATE_PER_SEC", 2),
			RateBurst:     getEnvAsInt("COLLECTOR_RATE_BURST", 2),
			SkipPrefixes:  getEnvAsList("COLLECTOR_SKIP_PREFIXES", nil),
			StatusDBPath:  getEnv("COLLECTOR_STATUS_DB", "fetch_status.db"),
			StartDate:     getEnv("COLLECTOR_START_DATE", "2013-01-01"),
			LookbackDays:  getEnvAsInt("COLLECTOR_LOOKBACK_DAYS", 7),
			IndexCodes:    getEnvAsList("COLLECTOR_INDEX_CODES", []string{"KOSPI", "KOSDAQ", "KPI200"}),
		},

		Backtest: BacktestConfig{
			BenchmarkCode: getEnv("BACKTEST_BENCHMARK", "KPI200"),
			CalendarIndex: getEnv("BACKTEST_CALENDAR_INDEX", "KOSPI"),
			ReportDir:     getEnv("BACKTEST_REPORT_DIR", "reports"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Collector.Workers < 1 {
		return fmt.Errorf("COLLECTOR_WORKERS must be >= 1")
	}
	if c.Collector.RatePerSecond <= 0 {
		return fmt.Errorf("COLLECTOR_RATE_PER_SEC must be > 0")
	}
	if _, err := time.Parse("2006-01-02", c.Collector.StartDate); err != nil {
		return fmt.Errorf("COLLECTOR_START_DATE must be YYYY-MM-DD: %w", err)
	}
	return nil
}

// RequireDatabase reports a missing DATABASE_URL. Offline commands (CSV backtest) skip it.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
