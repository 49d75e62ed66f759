package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CatalogSourceLocal    = "local"
	CatalogSourceExternal = "external"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Email    EmailConfig    `yaml:"email"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, mysql or sqlite
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

type CatalogConfig struct {
	Source            string `yaml:"source"`
	ExternalURL       string `yaml:"external_url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	CacheTTLSeconds   int    `yaml:"cache_ttl_seconds"`
	OptionsTTLSeconds int    `yaml:"options_ttl_seconds"`
	SweepSchedule     string `yaml:"sweep_schedule"`
}

func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c CatalogConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c CatalogConfig) OptionsTTL() time.Duration {
	return time.Duration(c.OptionsTTLSeconds) * time.Second
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type StorageConfig struct {
	AccountID string `yaml:"account_id"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	PublicURL string `yaml:"public_url"`
}

// Enabled reports whether object storage credentials are present.
func (s StorageConfig) Enabled() bool {
	return s.AccountID != "" && s.AccessKey != "" && s.Bucket != ""
}

type EmailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
	LeadsInbox   string `yaml:"leads_inbox"`
}

// Load reads .env (if present), then the optional YAML file named by
// CONFIG_FILE, then environment variables. Environment wins over the file.
func Load() (*Config, error) {
	godotenv.Load() // .env is optional

	file := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, file); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", or(file.Server.Port, "3000")),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", or(file.Database.Driver, "postgres")),
			URL:      getEnv("DATABASE_URL", file.Database.URL),
			Host:     getEnv("DB_HOST", or(file.Database.Host, "localhost")),
			Port:     getEnv("DB_PORT", or(file.Database.Port, "5432")),
			User:     getEnv("DB_USER", or(file.Database.User, "postgres")),
			Password: getEnv("DB_PASSWORD", file.Database.Password),
			DBName:   getEnv("DB_NAME", or(file.Database.DBName, "inmuebles")),
			SSLMode:  getEnv("DB_SSLMODE", or(file.Database.SSLMode, "disable")),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", file.JWT.Secret),
			TTLHours: getEnvAsInt("JWT_TTL_HOURS", orInt(file.JWT.TTLHours, 24)),
		},
		Catalog: CatalogConfig{
			Source:            getEnv("CATALOG_SOURCE", or(file.Catalog.Source, CatalogSourceLocal)),
			ExternalURL:       getEnv("EXTERNAL_API_URL", file.Catalog.ExternalURL),
			TimeoutSeconds:    getEnvAsInt("EXTERNAL_API_TIMEOUT", orInt(file.Catalog.TimeoutSeconds, 30)),
			CacheTTLSeconds:   getEnvAsInt("CACHE_TTL", orInt(file.Catalog.CacheTTLSeconds, 300)),
			OptionsTTLSeconds: getEnvAsInt("OPTIONS_CACHE_TTL", orInt(file.Catalog.OptionsTTLSeconds, 3600)),
			SweepSchedule:     getEnv("CACHE_SWEEP_SCHEDULE", or(file.Catalog.SweepSchedule, "@every 10m")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", file.Redis.Addr),
			Password: getEnv("REDIS_PASSWORD", file.Redis.Password),
			DB:       getEnvAsInt("REDIS_DB", file.Redis.DB),
			Prefix:   getEnv("REDIS_PREFIX", or(file.Redis.Prefix, "inmuebles:")),
		},
		Storage: StorageConfig{
			AccountID: getEnv("R2_ACCOUNT_ID", file.Storage.AccountID),
			AccessKey: getEnv("R2_ACCESS_KEY", file.Storage.AccessKey),
			SecretKey: getEnv("R2_SECRET_KEY", file.Storage.SecretKey),
			Bucket:    getEnv("R2_BUCKET_NAME", file.Storage.Bucket),
			PublicURL: getEnv("R2_PUBLIC_URL", file.Storage.PublicURL),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", file.Email.ResendAPIKey),
			From:         getEnv("MAIL_FROM", or(file.Email.From, "Inmuebles <noreply@inmuebles.bo>")),
			LeadsInbox:   getEnv("LEADS_INBOX", file.Email.LeadsInbox),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.Source {
	case CatalogSourceLocal:
	case CatalogSourceExternal:
		if c.Catalog.ExternalURL == "" {
			return fmt.Errorf("EXTERNAL_API_URL is required when CATALOG_SOURCE=external")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Catalog.Source)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	return nil
}

// DSN returns DATABASE_URL when given, else a DSN built for the driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	case "sqlite":
		return d.DBName + ".db"
	default:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}
