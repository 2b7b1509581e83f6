package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Org       OrgConfig
	Snowflake SnowflakeConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	SessionDays      int
	PasscodeCost     int
	MagicLinkSecret  string
	MagicLinkMinutes int
}

type OrgConfig struct {
	EmailDomain string
	AppURL      string
}

type SnowflakeConfig struct {
	Account       string
	User          string
	Database      string
	Schema        string
	Warehouse     string
	Role          string
	Authenticator string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (a *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionDays) * 24 * time.Hour
}

func (a *AuthConfig) MagicLinkTTL() time.Duration {
	return time.Duration(a.MagicLinkMinutes) * time.Minute
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "metricdeck")
	v.SetDefault("DATABASE_PASSWORD", "metricdeck_secret")
	v.SetDefault("DATABASE_NAME", "metricdeck")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("AUTH_SESSION_DAYS", 30)
	v.SetDefault("AUTH_PASSCODE_COST", 10)
	v.SetDefault("AUTH_MAGIC_LINK_SECRET", "change-me-in-production")
	v.SetDefault("AUTH_MAGIC_LINK_MINUTES", 15)
	v.SetDefault("ORG_EMAIL_DOMAIN", "example.com")
	v.SetDefault("ORG_APP_URL", "http://localhost:8080")
	v.SetDefault("SNOWFLAKE_ACCOUNT", "")
	v.SetDefault("SNOWFLAKE_USER", "")
	v.SetDefault("SNOWFLAKE_DATABASE", "")
	v.SetDefault("SNOWFLAKE_SCHEMA", "")
	v.SetDefault("SNOWFLAKE_WAREHOUSE", "")
	v.SetDefault("SNOWFLAKE_ROLE", "")
	v.SetDefault("SNOWFLAKE_AUTHENTICATOR", "externalbrowser")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{
			SessionDays:      v.GetInt("AUTH_SESSION_DAYS"),
			PasscodeCost:     v.GetInt("AUTH_PASSCODE_COST"),
			MagicLinkSecret:  v.GetString("AUTH_MAGIC_LINK_SECRET"),
			MagicLinkMinutes: v.GetInt("AUTH_MAGIC_LINK_MINUTES"),
		},
		Org: OrgConfig{
			EmailDomain: v.GetString("ORG_EMAIL_DOMAIN"),
			AppURL:      v.GetString("ORG_APP_URL"),
		},
		Snowflake: SnowflakeConfig{
			Account:       v.GetString("SNOWFLAKE_ACCOUNT"),
			User:          v.GetString("SNOWFLAKE_USER"),
			Database:      v.GetString("SNOWFLAKE_DATABASE"),
			Schema:        v.GetString("SNOWFLAKE_SCHEMA"),
			Warehouse:     v.GetString("SNOWFLAKE_WAREHOUSE"),
			Role:          v.GetString("SNOWFLAKE_ROLE"),
			Authenticator: v.GetString("SNOWFLAKE_AUTHENTICATOR"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	return cfg, nil
}
