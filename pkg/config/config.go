package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	LogLevel  string          `yaml:"logLevel"`
	SeedDemo  bool            `yaml:"seedDemo"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Inventory InventoryConfig `yaml:"inventory"`
	Voice     VoiceConfig     `yaml:"voice"`
	Callback  CallbackConfig  `yaml:"callback"`
	Followup  FollowupConfig  `yaml:"followup"`
	Email     EmailConfig     `yaml:"email"`
	Storage   StorageConfig   `yaml:"storage"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	CORSOrigins string `yaml:"corsOrigins"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type InventoryConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	DefaultMake string        `yaml:"defaultMake"`
	Rows        int           `yaml:"rows"`
	Timeout     time.Duration `yaml:"timeout"`
}

type VoiceConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout"`
	StatusFeed bool          `yaml:"statusFeed"`
}

type CallbackConfig struct {
	Secret string `yaml:"secret"`
}

type FollowupConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Schedule   string        `yaml:"schedule"`
	MinCallAge time.Duration `yaml:"minCallAge"`
	AutoDial   bool          `yaml:"autoDial"`
	LockTTL    time.Duration `yaml:"lockTTL"`
}

// StorageConfig points at the R2 bucket that archives quote reports.
type StorageConfig struct {
	AccountID string `yaml:"accountID"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	PublicURL string `yaml:"publicURL"`
}

type EmailConfig struct {
	ResendAPIKey string `yaml:"resendAPIKey"`
	From         string `yaml:"from"`
	NotifyTo     string `yaml:"notifyTo"`
}

func defaults() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:        "3000",
			CORSOrigins: "*",
		},
		Database: DatabaseConfig{MaxOpenConns: 100},
		Inventory: InventoryConfig{
			BaseURL:     "https://helix.carfax.com",
			DefaultMake: "Toyota",
			Rows:        24,
			Timeout:     30 * time.Second,
		},
		Voice: VoiceConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Followup: FollowupConfig{
			Enabled:    true,
			Schedule:   "@every 10m",
			MinCallAge: time.Hour,
			LockTTL:    5 * time.Minute,
		},
		Email: EmailConfig{
			From: "CarQuote <noreply@carquote.app>",
		},
	}
}

// Load reads .env, then the YAML file at path (optional when it does not
// exist), then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	godotenv.Load() // .env is optional

	cfg := defaults()
	explicit := path != ""
	if path == "" {
		path = getEnv("CONFIG_PATH", DefaultPath)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SeedDemo = getEnvBool("SEED_DEMO", cfg.SeedDemo)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.CORSOrigins = getEnv("CORS_ORIGINS", cfg.Server.CORSOrigins)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Inventory.BaseURL = getEnv("INVENTORY_BASE_URL", cfg.Inventory.BaseURL)
	cfg.Inventory.DefaultMake = getEnv("INVENTORY_DEFAULT_MAKE", cfg.Inventory.DefaultMake)
	cfg.Inventory.Rows = getEnvInt("INVENTORY_ROWS", cfg.Inventory.Rows)
	cfg.Inventory.Timeout = getEnvDuration("INVENTORY_TIMEOUT", cfg.Inventory.Timeout)
	cfg.Voice.BaseURL = getEnv("VOICE_BASE_URL", cfg.Voice.BaseURL)
	cfg.Voice.Timeout = getEnvDuration("VOICE_TIMEOUT", cfg.Voice.Timeout)
	cfg.Voice.StatusFeed = getEnvBool("VOICE_STATUS_FEED", cfg.Voice.StatusFeed)
	cfg.Callback.Secret = getEnv("CALLBACK_SECRET", cfg.Callback.Secret)
	cfg.Followup.Enabled = getEnvBool("FOLLOWUP_ENABLED", cfg.Followup.Enabled)
	cfg.Followup.Schedule = getEnv("FOLLOWUP_SCHEDULE", cfg.Followup.Schedule)
	cfg.Followup.MinCallAge = getEnvDuration("FOLLOWUP_MIN_CALL_AGE", cfg.Followup.MinCallAge)
	cfg.Followup.AutoDial = getEnvBool("FOLLOWUP_AUTO_DIAL", cfg.Followup.AutoDial)
	cfg.Followup.LockTTL = getEnvDuration("FOLLOWUP_LOCK_TTL", cfg.Followup.LockTTL)
	cfg.Email.ResendAPIKey = getEnv("RESEND_API_KEY", cfg.Email.ResendAPIKey)
	cfg.Email.From = getEnv("EMAIL_FROM", cfg.Email.From)
	cfg.Email.NotifyTo = getEnv("NOTIFY_EMAIL", cfg.Email.NotifyTo)
	cfg.Storage.AccountID = getEnv("R2_ACCOUNT_ID", cfg.Storage.AccountID)
	cfg.Storage.Endpoint = getEnv("R2_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnv("R2_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("R2_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = getEnv("R2_BUCKET_NAME", cfg.Storage.Bucket)
	cfg.Storage.PublicURL = getEnv("R2_PUBLIC_URL", cfg.Storage.PublicURL)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("config: server port is required")
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("config: database url is required (DATABASE_URL)")
	}
	if strings.TrimSpace(c.Inventory.BaseURL) == "" {
		return errors.New("config: inventory baseURL is required")
	}
	if strings.TrimSpace(c.Voice.BaseURL) == "" {
		return errors.New("config: voice baseURL is required")
	}
	if strings.TrimSpace(c.Callback.Secret) == "" {
		return errors.New("config: callback secret is required (CALLBACK_SECRET)")
	}
	if c.Inventory.Rows <= 0 {
		return errors.New("config: inventory rows must be positive")
	}
	if c.Inventory.Timeout <= 0 || c.Voice.Timeout <= 0 {
		return errors.New("config: client timeouts must be positive")
	}
	if c.Followup.Enabled {
		if strings.TrimSpace(c.Followup.Schedule) == "" {
			return errors.New("config: followup schedule is required when followups are enabled")
		}
		if _, err := cron.ParseStandard(c.Followup.Schedule); err != nil {
			return fmt.Errorf("config: invalid followup schedule %q: %w", c.Followup.Schedule, err)
		}
		if c.Followup.MinCallAge < 0 {
			return errors.New("config: followup minCallAge must not be negative")
		}
		if c.Followup.LockTTL <= 0 {
			return errors.New("config: followup lockTTL must be positive")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
