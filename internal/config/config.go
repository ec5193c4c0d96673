// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppPort string `mapstructure:"APP_PORT"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	JWTAccessSecret  string        `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string        `mapstructure:"JWT_REFRESH_SECRET"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL   time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL  time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	CookieSecure     bool          `mapstructure:"COOKIE_SECURE"`
	CookieDomain     string        `mapstructure:"COOKIE_DOMAIN"`

	CacheBackend  string `mapstructure:"CACHE_BACKEND"`
	CacheCapacity int    `mapstructure:"CACHE_CAPACITY"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`

	LogLevel             string `mapstructure:"LOG_LEVEL"`
	ExposeInternalErrors bool   `mapstructure:"EXPOSE_INTERNAL_ERRORS"`
}

var defaults = map[string]any{
	"APP_ENV":                "development",
	"APP_PORT":               "8080",
	"DB_DRIVER":              "sqlite",
	"DB_DSN":                 "file:mentacare.db?cache=shared",
	"JWT_ISSUER":             "mentacare",
	"ACCESS_TOKEN_TTL":       "15m",
	"REFRESH_TOKEN_TTL":      "168h",
	"COOKIE_SECURE":          false,
	"CACHE_BACKEND":          "lru",
	"CACHE_CAPACITY":         10000,
	"REDIS_DB":               0,
	"S3_REGION":              "us-east-1",
	"S3_BUCKET":              "mentacare",
	"S3_USE_SSL":             true,
	"LOG_LEVEL":              "info",
	"EXPOSE_INTERNAL_ERRORS": true,
}

var keys = []string{
	"APP_ENV", "APP_PORT",
	"DB_DRIVER", "DB_DSN",
	"JWT_ACCESS_SECRET", "JWT_REFRESH_SECRET", "JWT_ISSUER",
	"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "COOKIE_SECURE", "COOKIE_DOMAIN",
	"CACHE_BACKEND", "CACHE_CAPACITY",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_USE_SSL",
	"LOG_LEVEL", "EXPOSE_INTERNAL_ERRORS",
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppPort, validation.Required),
		validation.Field(&c.DBDriver, validation.Required, validation.In("postgres", "sqlite")),
		validation.Field(&c.DBDSN, validation.Required),
		validation.Field(&c.JWTAccessSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.JWTRefreshSecret, validation.Required, validation.Length(16, 0),
			validation.NotIn(c.JWTAccessSecret).Error("must differ from the access secret")),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RefreshTokenTTL, validation.Required, validation.Min(c.AccessTokenTTL)),
		validation.Field(&c.CacheBackend, validation.In("lru", "sturdyc")),
		validation.Field(&c.CacheCapacity, validation.Min(0)),
	)
}

// BlobEnabled reports whether object storage is configured.
func (c *Config) BlobEnabled() bool {
	return c.S3Endpoint != ""
}

// Production reports whether the service runs in a production environment.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func mask(v string) string {
	if v == "" {
		return "(empty)"
	}
	return "********"
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  AppEnv: %s\n", c.AppEnv)
	fmt.Fprintf(&sb, "  AppPort: %s\n", c.AppPort)
	fmt.Fprintf(&sb, "  DBDriver: %s\n", c.DBDriver)
	fmt.Fprintf(&sb, "  DBDSN: %s\n", mask(c.DBDSN))
	fmt.Fprintf(&sb, "  JWTAccessSecret: %s\n", mask(c.JWTAccessSecret))
	fmt.Fprintf(&sb, "  JWTRefreshSecret: %s\n", mask(c.JWTRefreshSecret))
	fmt.Fprintf(&sb, "  JWTIssuer: %s\n", c.JWTIssuer)
	fmt.Fprintf(&sb, "  AccessTokenTTL: %s\n", c.AccessTokenTTL)
	fmt.Fprintf(&sb, "  RefreshTokenTTL: %s\n", c.RefreshTokenTTL)
	fmt.Fprintf(&sb, "  CookieSecure: %v\n", c.CookieSecure)
	fmt.Fprintf(&sb, "  CookieDomain: %s\n", c.CookieDomain)
	fmt.Fprintf(&sb, "  CacheBackend: %s\n", c.CacheBackend)
	fmt.Fprintf(&sb, "  CacheCapacity: %d\n", c.CacheCapacity)
	fmt.Fprintf(&sb, "  RedisAddr: %s\n", c.RedisAddr)
	fmt.Fprintf(&sb, "  RedisPassword: %s\n", mask(c.RedisPassword))
	fmt.Fprintf(&sb, "  RedisDB: %d\n", c.RedisDB)
	fmt.Fprintf(&sb, "  S3Endpoint: %s\n", c.S3Endpoint)
	fmt.Fprintf(&sb, "  S3Region: %s\n", c.S3Region)
	fmt.Fprintf(&sb, "  S3Bucket: %s\n", c.S3Bucket)
	fmt.Fprintf(&sb, "  S3AccessKey: %s\n", mask(c.S3AccessKey))
	fmt.Fprintf(&sb, "  S3SecretKey: %s\n", mask(c.S3SecretKey))
	fmt.Fprintf(&sb, "  S3UseSSL: %v\n", c.S3UseSSL)
	fmt.Fprintf(&sb, "  LogLevel: %s\n", c.LogLevel)
	fmt.Fprintf(&sb, "  ExposeInternalErrors: %v\n", c.ExposeInternalErrors)
	return sb.String()
}
