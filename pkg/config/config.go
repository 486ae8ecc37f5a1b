package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/go-accounts/pkg/util"
	"github.com/spf13/viper"
)

const minProductionSecretLength = 32

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Verification VerificationConfig
	Cleanup      CleanupConfig
	Admin        AdminConfig
	Notify       NotifyConfig
	Encryption   EncryptionConfig
	CORS         CORSConfig
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

type JWTConfig struct {
	Secret             string
	AccessExpireMinute int
	RefreshExpireDays  int
}

type VerificationConfig struct {
	ExpireMinutes int
	// ExposeCode returns codes in API responses. Demo mode only.
	ExposeCode bool
}

type CleanupConfig struct {
	UnverifiedDays int
	Cron           string
}

type AdminConfig struct {
	Email    string
	Password string
}

// Notify sink kinds.
const (
	SinkLog   = "log"
	SinkQueue = "queue"
	SinkSES   = "ses"
)

type NotifyConfig struct {
	// Sink selects how the API delivers codes: log, queue or ses.
	Sink string
	// WorkerSink selects how the worker delivers queued codes: log or ses.
	WorkerSink         string
	From               string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

type EncryptionConfig struct {
	Key string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the connection string in URL form for database/sql drivers.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessExpireMinute) * time.Minute
}

func (j *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshExpireDays) * 24 * time.Hour
}

func (v *VerificationConfig) CodeExpiry() time.Duration {
	return time.Duration(v.ExpireMinutes) * time.Minute
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
	v.SetDefault("DATABASE_USER", "accounts")
	v.SetDefault("DATABASE_PASSWORD", "accounts_secret")
	v.SetDefault("DATABASE_NAME", "accounts")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_ACCESS_EXPIRE_MINUTES", 30)
	v.SetDefault("JWT_REFRESH_EXPIRE_DAYS", 7)
	v.SetDefault("VERIFICATION_CODE_EXPIRE_MINUTES", 3)
	v.SetDefault("AUTH_EXPOSE_VERIFICATION_CODE", false)
	v.SetDefault("CLEANUP_UNVERIFIED_DAYS", 2)
	v.SetDefault("CLEANUP_CRON", "0 2 * * *")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("NOTIFY_SINK", SinkLog)
	v.SetDefault("NOTIFY_WORKER_SINK", SinkLog)
	v.SetDefault("NOTIFY_FROM", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

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
		JWT: JWTConfig{
			Secret:             v.GetString("JWT_SECRET"),
			AccessExpireMinute: v.GetInt("JWT_ACCESS_EXPIRE_MINUTES"),
			RefreshExpireDays:  v.GetInt("JWT_REFRESH_EXPIRE_DAYS"),
		},
		Verification: VerificationConfig{
			ExpireMinutes: v.GetInt("VERIFICATION_CODE_EXPIRE_MINUTES"),
			ExposeCode:    v.GetBool("AUTH_EXPOSE_VERIFICATION_CODE"),
		},
		Cleanup: CleanupConfig{
			UnverifiedDays: v.GetInt("CLEANUP_UNVERIFIED_DAYS"),
			Cron:           v.GetString("CLEANUP_CRON"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
		Notify: NotifyConfig{
			Sink:               v.GetString("NOTIFY_SINK"),
			WorkerSink:         v.GetString("NOTIFY_WORKER_SINK"),
			From:               v.GetString("NOTIFY_FROM"),
			AWSRegion:          v.GetString("AWS_REGION"),
			AWSAccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			AWSSecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessExpireMinute <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_EXPIRE_MINUTES must be positive"))
	}
	if c.JWT.RefreshExpireDays <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRE_DAYS must be positive"))
	}
	if c.Verification.ExpireMinutes <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_EXPIRE_MINUTES must be positive"))
	}
	if c.Cleanup.UnverifiedDays <= 0 {
		errs = append(errs, errors.New("CLEANUP_UNVERIFIED_DAYS must be positive"))
	}
	if err := util.ValidateCronExpr(c.Cleanup.Cron); err != nil {
		errs = append(errs, fmt.Errorf("CLEANUP_CRON: %w", err))
	}

	switch c.Notify.Sink {
	case SinkLog, SinkQueue, SinkSES:
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_SINK: unknown sink %q", c.Notify.Sink))
	}
	switch c.Notify.WorkerSink {
	case SinkLog, SinkSES:
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_WORKER_SINK: unknown sink %q", c.Notify.WorkerSink))
	}
	if (c.Notify.Sink == SinkSES || c.Notify.WorkerSink == SinkSES) && c.Notify.From == "" {
		errs = append(errs, errors.New("NOTIFY_FROM is required for the ses sink"))
	}
	if c.Notify.Sink == SinkQueue && c.Encryption.Key == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required for the queue sink"))
	}

	if !c.Server.IsDevelopment() {
		if len(c.JWT.Secret) < minProductionSecretLength {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters outside development", minProductionSecretLength))
		}
		if c.Verification.ExposeCode {
			errs = append(errs, errors.New("AUTH_EXPOSE_VERIFICATION_CODE must be disabled outside development"))
		}
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
