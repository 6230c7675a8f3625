package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/sla"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Rabbit       RabbitConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Workflow     WorkflowConfig
	SLA          SLAConfig
	Monitor      MonitorConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitConfig holds the optional notification exchange. An empty URL
// disables publishing.
type RabbitConfig struct {
	URL      string
	Exchange string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// WorkflowConfig holds lifecycle policy knobs.
type WorkflowConfig struct {
	// LandlordOverride lets a landlord approval force-resolve a completion
	// without the tenant slot. Disabled unless explicitly opted in.
	LandlordOverride bool
}

// SLAConfig holds stage allowances in hours. Completion varies by priority.
type SLAConfig struct {
	ResponseHours            int
	AssignmentHours          int
	AcceptanceHours          int
	CompletionEmergencyHours int
	CompletionUrgentHours    int
	CompletionNormalHours    int
	CompletionLowHours       int
}

// MonitorConfig controls the SLA breach scanner.
type MonitorConfig struct {
	Enabled         bool
	IntervalSeconds int
	ScanLimit       int
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
			Name:                  getEnv("APP_NAME", "maintenance-service"),
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
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Rabbit: RabbitConfig{
			URL:      os.Getenv("RABBIT_URL"),
			Exchange: getEnv("RABBIT_EXCHANGE", "maintenance.events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Workflow: WorkflowConfig{
			LandlordOverride: getEnvAsBool("WORKFLOW_LANDLORD_OVERRIDE", false),
		},
		SLA: SLAConfig{
			ResponseHours:            getEnvAsInt("SLA_RESPONSE_HOURS", 24),
			AssignmentHours:          getEnvAsInt("SLA_ASSIGNMENT_HOURS", 48),
			AcceptanceHours:          getEnvAsInt("SLA_ACCEPTANCE_HOURS", 24),
			CompletionEmergencyHours: getEnvAsInt("SLA_COMPLETION_EMERGENCY_HOURS", 24),
			CompletionUrgentHours:    getEnvAsInt("SLA_COMPLETION_URGENT_HOURS", 72),
			CompletionNormalHours:    getEnvAsInt("SLA_COMPLETION_NORMAL_HOURS", 168),
			CompletionLowHours:       getEnvAsInt("SLA_COMPLETION_LOW_HOURS", 336),
		},
		Monitor: MonitorConfig{
			Enabled:         getEnvAsBool("SLA_MONITOR_ENABLED", true),
			IntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 300),
			ScanLimit:       getEnvAsInt("SLA_MONITOR_SCAN_LIMIT", 500),
		},
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

// CalculatorConfig projects the env values onto the SLA calculator's config
// shape, falling back to the stock allowance for any non-positive value.
func (s SLAConfig) CalculatorConfig() sla.Config {
	cfg := sla.DefaultConfig()
	if s.ResponseHours > 0 {
		cfg.Response = time.Duration(s.ResponseHours) * time.Hour
	}
	if s.AssignmentHours > 0 {
		cfg.Assignment = time.Duration(s.AssignmentHours) * time.Hour
	}
	if s.AcceptanceHours > 0 {
		cfg.Acceptance = time.Duration(s.AcceptanceHours) * time.Hour
	}
	completion := map[domain.Priority]int{
		domain.PriorityEmergency: s.CompletionEmergencyHours,
		domain.PriorityUrgent:    s.CompletionUrgentHours,
		domain.PriorityNormal:    s.CompletionNormalHours,
		domain.PriorityLow:       s.CompletionLowHours,
	}
	for priority, hours := range completion {
		if hours > 0 {
			cfg.Completion[priority] = time.Duration(hours) * time.Hour
		}
	}
	return cfg
}

// Interval returns the monitor scan period.
func (m MonitorConfig) Interval() time.Duration {
	if m.IntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(m.IntervalSeconds) * time.Second
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
