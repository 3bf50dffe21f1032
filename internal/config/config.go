package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// EnvLocal is the only environment in which trigger auth is bypassed.
const EnvLocal = "local"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Storage
	DatabaseURL string `json:"database_url"`

	// Redis configuration
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	CacheTTL    time.Duration `json:"cache_ttl"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`

	// AI Configuration
	AIApiKey  string        `json:"ai_api_key"`
	AIBaseURL string        `json:"ai_base_url"`
	AIModel   string        `json:"ai_model"`
	AITimeout time.Duration `json:"ai_timeout"`

	// Sources and outbound collaborators
	SourcesFile         string        `json:"sources_file"`
	ArticleFetchTimeout time.Duration `json:"article_fetch_timeout"`
	SocialWebhookURL    string        `json:"social_webhook_url"`

	// Pipeline budgets
	SummarizeQuota     int           `json:"summarize_quota"`
	ManualQuota        int           `json:"manual_quota"`
	SummarizeDelay     time.Duration `json:"summarize_delay"`
	ManualCooldown     time.Duration `json:"manual_cooldown"`
	ContentMaxChars    int           `json:"content_max_chars"`
	ConsistencyDays    int           `json:"consistency_days"`
	ConsistencyLimit   int           `json:"consistency_limit"`
	ConsistencyDelay   time.Duration `json:"consistency_delay"`
	BackfillLimit      int           `json:"backfill_limit"`
	TranslateBatchSize int           `json:"translate_batch_size"`
	TrendsWeekday      time.Weekday  `json:"trends_weekday"`
	Timezone           string        `json:"timezone"`

	// In-process schedule
	SchedulerEnabled    bool          `json:"scheduler_enabled"`
	IngestInterval      time.Duration `json:"ingest_interval"`
	SummarizeInterval   time.Duration `json:"summarize_interval"`
	ConsistencyInterval time.Duration `json:"consistency_interval"`
	BackfillInterval    time.Duration `json:"backfill_interval"`
	DailyInterval       time.Duration `json:"daily_interval"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	CronSecret string `json:"cron_secret"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv reads the configuration without loading .env or validating.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "production"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 120*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "newsbridge:"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", 720*time.Hour), // 30 days

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),

		AIApiKey:  getEnv("AI_API_KEY", ""),
		AIBaseURL: getEnv("AI_BASE_URL", ""),
		AIModel:   getEnv("AI_MODEL", "gpt-4o-mini"),
		AITimeout: getEnvAsDuration("AI_TIMEOUT", 60*time.Second),

		SourcesFile:         getEnv("SOURCES_FILE", ""),
		ArticleFetchTimeout: getEnvAsDuration("ARTICLE_FETCH_TIMEOUT", 10*time.Second),
		SocialWebhookURL:    getEnv("SOCIAL_WEBHOOK_URL", ""),

		SummarizeQuota:     getEnvAsInt("SUMMARIZE_QUOTA", 3),
		ManualQuota:        getEnvAsInt("MANUAL_QUOTA", 2),
		SummarizeDelay:     getEnvAsDuration("SUMMARIZE_DELAY", time.Second),
		ManualCooldown:     getEnvAsDuration("MANUAL_COOLDOWN", 5*time.Minute),
		ContentMaxChars:    getEnvAsInt("CONTENT_MAX_CHARS", 4000),
		ConsistencyDays:    getEnvAsInt("CONSISTENCY_DAYS", 7),
		ConsistencyLimit:   getEnvAsInt("CONSISTENCY_LIMIT", 20),
		ConsistencyDelay:   getEnvAsDuration("CONSISTENCY_DELAY", 500*time.Millisecond),
		BackfillLimit:      getEnvAsInt("BACKFILL_LIMIT", 20),
		TranslateBatchSize: getEnvAsInt("TRANSLATE_BATCH_SIZE", 10),
		TrendsWeekday:      getEnvAsWeekday("TRENDS_WEEKDAY", time.Monday),
		Timezone:           getEnv("TIMEZONE", "Asia/Shanghai"),

		SchedulerEnabled:    getEnvAsBool("SCHEDULER_ENABLED", false),
		IngestInterval:      getEnvAsDuration("INGEST_INTERVAL", 30*time.Minute),
		SummarizeInterval:   getEnvAsDuration("SUMMARIZE_INTERVAL", 10*time.Minute),
		ConsistencyInterval: getEnvAsDuration("CONSISTENCY_INTERVAL", 6*time.Hour),
		BackfillInterval:    getEnvAsDuration("BACKFILL_INTERVAL", time.Hour),
		DailyInterval:       getEnvAsDuration("DAILY_INTERVAL", 24*time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		CronSecret: getEnv("CRON_SECRET", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	if c.AIApiKey == "" {
		errs = append(errs, errors.New("AI_API_KEY is required"))
	}
	if c.CronSecret == "" && !c.IsLocal() {
		errs = append(errs, errors.New("CRON_SECRET is required outside local mode"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	for name, v := range map[string]int{
		"SUMMARIZE_QUOTA":      c.SummarizeQuota,
		"MANUAL_QUOTA":         c.ManualQuota,
		"CONTENT_MAX_CHARS":    c.ContentMaxChars,
		"CONSISTENCY_DAYS":     c.ConsistencyDays,
		"CONSISTENCY_LIMIT":    c.ConsistencyLimit,
		"BACKFILL_LIMIT":       c.BackfillLimit,
		"TRANSLATE_BATCH_SIZE": c.TranslateBatchSize,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	return errors.Join(errs...)
}

// IsLocal reports whether the process runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal
}

// Location returns the configured timezone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ArchiveEnabled reports whether R2 credentials are present.
func (c *Config) ArchiveEnabled() bool {
	return c.R2Bucket != "" && c.R2AccessKey != "" && c.R2SecretKey != "" &&
		(c.R2Endpoint != "" || c.R2AccountID != "")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsWeekday(name string, defaultVal time.Weekday) time.Weekday {
	valueStr := strings.ToLower(strings.TrimSpace(getEnv(name, "")))
	if valueStr == "" {
		return defaultVal
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == valueStr || strings.ToLower(d.String()[:3]) == valueStr {
			return d
		}
	}
	log.Printf("Invalid %s value: %q, using default: %v", name, valueStr, defaultVal)
	return defaultVal
}
