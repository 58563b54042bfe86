package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Session     SessionConfig     `yaml:"session"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	SendGrid    SendGridConfig    `yaml:"sendgrid"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Notify      NotifyConfig      `yaml:"notify"`
	JWT         JWTConfig         `yaml:"jwt"`
	Operators   []OperatorConfig  `yaml:"operators"`
	Log         LogConfig         `yaml:"log"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`      // HTTP API
	GRPCPort        int    `yaml:"grpc_port"` // health + reflection
	LoginRatePerMin int    `yaml:"login_rate_per_minute"`
	LoginBurst      int    `yaml:"login_burst"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// Driver "memory" runs on the in-process store and ignores the rest.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SessionConfig selects where checkout sessions live between requests
type SessionConfig struct {
	Store      string `yaml:"store"` // "memory" or "redis"
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// NotifyConfig selects the notification sinks and tunes the dispatcher
type NotifyConfig struct {
	Sinks          []string `yaml:"sinks"` // any of "log", "smtp", "sendgrid", "kafka"
	DeskEmail      string   `yaml:"desk_email"`
	Workers        int      `yaml:"workers"`
	QueueSize      int      `yaml:"queue_size"`
	MaxRetries     int      `yaml:"max_retries"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// OperatorConfig is one desk operator. Passwords are stored as bcrypt hashes.
type OperatorConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"` // "operator" or "admin"
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

type ResolverConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MinSimilarityLength int     `yaml:"min_similarity_length"`
}

type LedgerConfig struct {
	RecoveryPolicy string `yaml:"recovery_policy"` // "restore" or "inspect"
}

type PersistenceConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	MarkOverdueCheckouts  string `yaml:"mark_overdue_checkouts"`
	ReconcileAvailability string `yaml:"reconcile_availability"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // OTLP/HTTP collector, host:port
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
	if val := os.Getenv("SESSION_STORE"); val != "" {
		c.Session.Store = val
	}

	// SMTP
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.SMTP.Password = val
	}
	if val := os.Getenv("SMTP_FROM"); val != "" {
		c.SMTP.From = val
	}

	// Notifications
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("NOTIFY_SINKS"); val != "" {
		c.Notify.Sinks = strings.Split(val, ",")
	}
	if val := os.Getenv("NOTIFY_DESK_EMAIL"); val != "" {
		c.Notify.DeskEmail = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Ledger
	if val := os.Getenv("LEDGER_RECOVERY_POLICY"); val != "" {
		c.Ledger.RecoveryPolicy = val
	}

	// Telemetry
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Telemetry.Endpoint = val
		c.Telemetry.Enabled = true
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.LoginRatePerMin == 0 {
		c.Server.LoginRatePerMin = 10
	}
	if c.Server.LoginBurst == 0 {
		c.Server.LoginBurst = 5
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	// Session validation
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis session store")
		}
	default:
		return fmt.Errorf("unknown session store: %s", c.Session.Store)
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 120
	}

	// Notification validation
	if len(c.Notify.Sinks) == 0 {
		c.Notify.Sinks = []string{"log"}
	}
	for _, sink := range c.Notify.Sinks {
		switch strings.TrimSpace(sink) {
		case "log":
		case "smtp":
			if c.SMTP.Host == "" {
				return fmt.Errorf("SMTP host is required")
			}
			if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
				return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
			}
		case "sendgrid":
			if c.SendGrid.APIKey == "" {
				return fmt.Errorf("SendGrid API key is required")
			}
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka brokers are required")
			}
			if c.Kafka.Topic == "" {
				c.Kafka.Topic = "equiptrack.notifications"
			}
		default:
			return fmt.Errorf("unknown notification sink: %s", sink)
		}
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 100
	}
	if c.Notify.MaxRetries == 0 {
		c.Notify.MaxRetries = 3
	}
	if c.Notify.TimeoutSeconds == 0 {
		c.Notify.TimeoutSeconds = 10
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 480 // one desk shift
	}

	// Operators validation
	for i, op := range c.Operators {
		if op.Username == "" || op.PasswordHash == "" {
			return fmt.Errorf("operator %d needs a username and a password hash", i)
		}
		if op.Role == "" {
			c.Operators[i].Role = "operator"
		} else if op.Role != "operator" && op.Role != "admin" {
			return fmt.Errorf("invalid role for operator %s: %s", op.Username, op.Role)
		}
	}

	// Resolver defaults
	if c.Resolver.SimilarityThreshold == 0 {
		c.Resolver.SimilarityThreshold = 0.70
	}
	if c.Resolver.SimilarityThreshold < 0 || c.Resolver.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be within 0..1: %v", c.Resolver.SimilarityThreshold)
	}
	if c.Resolver.MinSimilarityLength == 0 {
		c.Resolver.MinSimilarityLength = 3
	}

	// Ledger defaults
	if c.Ledger.RecoveryPolicy == "" {
		c.Ledger.RecoveryPolicy = "inspect"
	}
	if !slices.Contains([]string{"restore", "inspect"}, c.Ledger.RecoveryPolicy) {
		return fmt.Errorf("invalid recovery policy: %s", c.Ledger.RecoveryPolicy)
	}

	if c.Persistence.TimeoutSeconds == 0 {
		c.Persistence.TimeoutSeconds = 5
	}

	// Scheduler defaults
	if c.Scheduler.MarkOverdueCheckouts == "" {
		c.Scheduler.MarkOverdueCheckouts = "0 5 0 * * *" // 00:05 UTC
	}
	if c.Scheduler.ReconcileAvailability == "" {
		c.Scheduler.ReconcileAvailability = "0 0 2 * * *" // 2 AM UTC
	}

	// Telemetry defaults
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "equiptrack-backend"
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the health server address, empty when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) PersistenceTimeout() time.Duration {
	return time.Duration(c.Persistence.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}
