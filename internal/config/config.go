package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	FX           FXConfig           `yaml:"fx"`
	Payment      PaymentConfig      `yaml:"payment"`
	Rental       RentalConfig       `yaml:"rental"`
	Sale         SaleConfig         `yaml:"sale"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains listener settings
type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	GRPCPort    int    `yaml:"grpc_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Database      string `yaml:"database"`
	SSLMode       string `yaml:"ssl_mode"`
	LockTimeoutMs int    `yaml:"lock_timeout_ms"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Type     string `yaml:"type"` // "postgres" or "memory"
	SeedFile string `yaml:"seed_file"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

type FXConfig struct {
	Provider        string `yaml:"provider"` // "static" or "exchangerate_api"
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	CacheSize       int    `yaml:"cache_size"`
}

type PaymentConfig struct {
	Gateway         string `yaml:"gateway"` // "simulated" or "stripe"
	StripeSecretKey string `yaml:"stripe_secret_key"`
}

type RentalConfig struct {
	HandoffDays int `yaml:"handoff_days"`
}

type SaleConfig struct {
	EligibilityPolicy string `yaml:"eligibility_policy"`
}

type NotificationConfig struct {
	BatchSize int         `yaml:"batch_size"`
	Email     EmailConfig `yaml:"email"`
	Push      PushConfig  `yaml:"push"`
	Kafka     KafkaConfig `yaml:"kafka"`
}

type EmailConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
}

type PushConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SchedulerConfig contains cron schedule settings (with seconds)
type SchedulerConfig struct {
	DispatchNotifications string `yaml:"dispatch_notifications"`
	RefreshFXRates        string `yaml:"refresh_fx_rates"`
}

// Load reads configuration from a YAML file. A .env file next to the working
// directory is loaded first when present so its values reach the env
// overrides.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
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
	if val := os.Getenv("DB_LOCK_TIMEOUT_MS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.LockTimeoutMs)
	}

	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("SEED_FILE"); val != "" {
		c.Storage.SeedFile = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}
	if val := os.Getenv("METRICS_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.MetricsPort)
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// FX
	if val := os.Getenv("FX_PROVIDER"); val != "" {
		c.FX.Provider = val
	}
	if val := os.Getenv("FX_BASE_URL"); val != "" {
		c.FX.BaseURL = val
	}
	if val := os.Getenv("FX_API_KEY"); val != "" {
		c.FX.APIKey = val
	}

	// Payment
	if val := os.Getenv("PAYMENT_GATEWAY"); val != "" {
		c.Payment.Gateway = val
	}
	if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
		c.Payment.StripeSecretKey = val
	}

	// Notification
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notification.Email.SendGridAPIKey = val
	}
	if val := os.Getenv("SENDGRID_FROM"); val != "" {
		c.Notification.Email.FromAddress = val
	}
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Notification.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS"); val != "" {
		c.Notification.Push.CredentialsFile = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 9090
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9100
	}
	for name, port := range map[string]int{
		"http": c.Server.HTTPPort, "grpc": c.Server.GRPCPort, "metrics": c.Server.MetricsPort,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s port: %d", name, port)
		}
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "postgres"
	}
	switch c.Storage.Type {
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
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}
	if c.Database.LockTimeoutMs == 0 {
		c.Database.LockTimeoutMs = 5000
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.FX.Provider == "" {
		c.FX.Provider = "static"
	}
	switch c.FX.Provider {
	case "static":
	case "exchangerate_api":
		if c.FX.APIKey == "" {
			return fmt.Errorf("fx api key is required for exchangerate_api")
		}
		if c.FX.BaseURL == "" {
			c.FX.BaseURL = "https://v6.exchangerate-api.com/v6"
		}
	default:
		return fmt.Errorf("unknown fx provider: %q", c.FX.Provider)
	}
	if c.FX.CacheTTLMinutes == 0 {
		c.FX.CacheTTLMinutes = 30
	}
	if c.FX.CacheSize == 0 {
		c.FX.CacheSize = 256
	}

	if c.Payment.Gateway == "" {
		c.Payment.Gateway = "simulated"
	}
	switch c.Payment.Gateway {
	case "simulated":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("stripe secret key is required for the stripe gateway")
		}
	default:
		return fmt.Errorf("unknown payment gateway: %q", c.Payment.Gateway)
	}

	if c.Rental.HandoffDays == 0 {
		c.Rental.HandoffDays = 1
	}
	if c.Rental.HandoffDays < 0 {
		return fmt.Errorf("rental handoff_days must be positive: %d", c.Rental.HandoffDays)
	}
	if c.Sale.EligibilityPolicy == "" {
		c.Sale.EligibilityPolicy = "corp_with_history"
	}

	n := &c.Notification
	if n.BatchSize == 0 {
		n.BatchSize = 100
	}
	if n.Email.Enabled {
		if n.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required when email notifications are enabled")
		}
		if n.Email.FromAddress == "" {
			return fmt.Errorf("email from_address is required when email notifications are enabled")
		}
		if n.Email.FromName == "" {
			n.Email.FromName = "Bikeshare"
		}
	}
	if n.Push.Enabled && n.Push.CredentialsFile == "" {
		return fmt.Errorf("firebase credentials file is required when push notifications are enabled")
	}
	if n.Kafka.Enabled {
		if len(n.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka notifications are enabled")
		}
		if n.Kafka.Topic == "" {
			n.Kafka.Topic = "bike-handoffs"
		}
	}

	// Scheduler defaults
	if c.Scheduler.DispatchNotifications == "" {
		c.Scheduler.DispatchNotifications = "*/30 * * * * *" // every 30 seconds
	}
	if c.Scheduler.RefreshFXRates == "" {
		c.Scheduler.RefreshFXRates = "0 */15 * * * *" // every 15 minutes
	}

	return nil
}

func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Database.LockTimeoutMs) * time.Millisecond
}

func (c *Config) FXCacheTTL() time.Duration {
	return time.Duration(c.FX.CacheTTLMinutes) * time.Minute
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

func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.MetricsPort)
}
