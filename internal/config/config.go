package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail transports.
const (
	MailTransportLog   = "log"
	MailTransportSMTP  = "smtp"
	MailTransportKafka = "kafka"
)

// Rate limit backends.
const (
	RateLimitRedis  = "redis"
	RateLimitMemory = "memory"
)

// Config aggregates runtime configuration for the portal.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	OTP       OTPConfig
	Mail      MailConfig
	SMTP      SMTPConfig
	Kafka     KafkaConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN                string
	MaxConns           int32
	MinConns           int32
	RunMigrations      bool
	ConnMaxIdleSec     int32
	ConnMaxLifeSec     int32
	ConnectTimeoutSec  int
	StatementTimeoutMs int
	ApplicationName    string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	TimeoutSeconds int
}

// Timeout bounds dialing, commands and the startup ping.
func (r RedisConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

type RateLimitConfig struct {
	Backend string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                    string
	AccessTokenTTLMinutes        int
	VerificationTicketTTLMinutes int
	BcryptCost                   int
}

// OTPConfig tunes the email verification code window.
type OTPConfig struct {
	TTLMinutes       int
	MaxAttempts      int
	ResendGapSeconds int
}

func (o OTPConfig) TTL() time.Duration { return time.Duration(o.TTLMinutes) * time.Minute }
func (o OTPConfig) ResendGap() time.Duration { return time.Duration(o.ResendGapSeconds) * time.Second }

// MailConfig selects how outbound mail leaves the process.
type MailConfig struct {
	Transport     string
	From          string
	FromName      string
	SubjectPrefix string
}

// SMTPConfig is used by the smtp transport and by the mail worker.
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	StartTLS       bool
	TimeoutSeconds int
}

func (s SMTPConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

func (s SMTPConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// KafkaConfig describes the mail queue.
type KafkaConfig struct {
	Brokers     []string
	MailTopic   string
	MailGroupID string
	Username    string
	Password    string
	TLS         bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "Gram Panchayat Portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),

			ConnectTimeoutSec:  getEnvAsInt("POSTGRES_CONNECT_TIMEOUT_SECONDS", 5),
			StatementTimeoutMs: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
			ApplicationName:    getEnv("POSTGRES_APPLICATION_NAME", "panchayat-portal"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			TimeoutSeconds: getEnvAsInt("REDIS_TIMEOUT_SECONDS", 3),
		},
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitRedis)),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:                    getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:        getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			VerificationTicketTTLMinutes: getEnvAsInt("AUTH_VERIFICATION_TICKET_TTL_MINUTES", 30),
			BcryptCost:                   getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		OTP: OTPConfig{
			TTLMinutes:       getEnvAsInt("OTP_TTL_MINUTES", 10),
			MaxAttempts:      getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
			ResendGapSeconds: getEnvAsInt("OTP_RESEND_GAP_SECONDS", 60),
		},
		Mail: MailConfig{
			Transport:     strings.ToLower(getEnv("MAIL_TRANSPORT", MailTransportLog)),
			From:          getEnv("MAIL_FROM", "noreply@grampanchayat.local"),
			FromName:      getEnv("MAIL_FROM_NAME", "Gram Panchayat"),
			SubjectPrefix: os.Getenv("MAIL_SUBJECT_PREFIX"),
		},
		SMTP: SMTPConfig{
			Host:           getEnv("SMTP_HOST", "localhost"),
			Port:           getEnvAsInt("SMTP_PORT", 587),
			Username:       os.Getenv("SMTP_USERNAME"),
			Password:       os.Getenv("SMTP_PASSWORD"),
			StartTLS:       getEnvAsBool("SMTP_STARTTLS", true),
			TimeoutSeconds: getEnvAsInt("SMTP_TIMEOUT_SECONDS", 10),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			MailTopic:   getEnv("KAFKA_MAIL_TOPIC", "portal.mail"),
			MailGroupID: getEnv("KAFKA_MAIL_GROUP_ID", "portal-mailworker"),
			Username:    os.Getenv("KAFKA_USERNAME"),
			Password:    os.Getenv("KAFKA_PASSWORD"),
			TLS:         getEnvAsBool("KAFKA_TLS", false),
		},
	}

	switch cfg.Mail.Transport {
	case MailTransportLog, MailTransportSMTP:
	case MailTransportKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("MAIL_TRANSPORT=kafka requires KAFKA_BROKERS")
		}
	default:
		return nil, fmt.Errorf("invalid MAIL_TRANSPORT %q", cfg.Mail.Transport)
	}
	switch cfg.RateLimit.Backend {
	case RateLimitRedis, RateLimitMemory:
	default:
		return nil, fmt.Errorf("invalid RATE_LIMIT_BACKEND %q", cfg.RateLimit.Backend)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
