package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPaymentDriver = "mollie"
	DefaultCurrency      = "EUR"

	LedgerDriverSQL      = "sql"
	LedgerDriverDynamoDB = "dynamodb"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	WebhookRateLimit  float64       `mapstructure:"webhook_rate_limit" validate:"min=0"`
	WebhookBurst      int           `mapstructure:"webhook_burst" validate:"min=0"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	Source          string        `mapstructure:"source" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LedgerConfig selects where payment transactions are recorded.
type LedgerConfig struct {
	Driver   string         `mapstructure:"driver" validate:"required,oneof=sql dynamodb"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
}

type DynamoDBConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	Table           string `mapstructure:"table"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// PaymentConfig carries the gateway driver name and credentials handed to the client at construction.
type PaymentConfig struct {
	Driver      string        `mapstructure:"driver" validate:"required"`
	SecretKey   string        `mapstructure:"secret_key" validate:"required"`
	TestMode    bool          `mapstructure:"test_mode"`
	Currency    string        `mapstructure:"currency" validate:"required,len=3"`
	RedirectURL string        `mapstructure:"redirect_url" validate:"omitempty,url"`
	WebhookURL  string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name" validate:"required_if=Enabled true"`
	SamplingRate float64 `mapstructure:"sampling_rate" validate:"min=0,max=1"`
	PrettyPrint  bool    `mapstructure:"pretty_print"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.WebhookRateLimit == 0 {
		c.Server.WebhookRateLimit = 20
	}
	if c.Server.WebhookBurst == 0 {
		c.Server.WebhookBurst = 40
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = LedgerDriverSQL
	}
	if c.Ledger.DynamoDB.Region == "" {
		c.Ledger.DynamoDB.Region = "us-east-1"
	}
	if c.Ledger.DynamoDB.Table == "" {
		c.Ledger.DynamoDB.Table = "payment_transactions"
	}
	if c.Payment.Driver == "" {
		c.Payment.Driver = DefaultPaymentDriver
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = DefaultCurrency
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 15 * time.Second
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			WebhookRateLimit:  getEnvAsFloat("WEBHOOK_RATE_LIMIT", 20),
			WebhookBurst:      getEnvAsInt("WEBHOOK_BURST", 40),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Ledger: LedgerConfig{
			Driver: getEnv("LEDGER_DRIVER", LedgerDriverSQL),
			DynamoDB: DynamoDBConfig{
				Region:          getEnv("AWS_REGION", "us-east-1"),
				Endpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
				Table:           getEnv("DYNAMODB_TRANSACTIONS_TABLE", "payment_transactions"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			},
		},
		Security: SecurityConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", ""),
		},
		Payment: PaymentConfig{
			Driver:      getEnv("PAYMENT_DRIVER", DefaultPaymentDriver),
			SecretKey:   getEnv("MOLLIE_SECRET_KEY", ""),
			TestMode:    getEnvAsBool("MOLLIE_TEST_MODE", true),
			Currency:    getEnv("PAYMENT_CURRENCY", DefaultCurrency),
			RedirectURL: getEnv("PAYMENT_REDIRECT_URL", ""),
			WebhookURL:  getEnv("PAYMENT_WEBHOOK_URL", ""),
			Timeout:     getEnvAsDuration("PAYMENT_TIMEOUT", 15*time.Second),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Tracing: TracingConfig{
				Enabled:      getEnvAsBool("TRACING_ENABLED", false),
				ServiceName:  getEnv("TRACING_SERVICE_NAME", "mollie-checkout"),
				SamplingRate: getEnvAsFloat("TRACING_SAMPLING_RATE", 1),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New()

func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Ledger.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("ledger config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return []string{"*"}
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns && c.MaxOpenConns > 0 {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *LedgerConfig) Validate() error {
	if c.Driver == LedgerDriverDynamoDB && c.DynamoDB.Table == "" {
		return errors.New("dynamodb.table is required when ledger driver is dynamodb")
	}
	return nil
}

func (c *PaymentConfig) Validate() error {
	if c.Driver == DefaultPaymentDriver && !strings.HasPrefix(c.SecretKey, "test_") && !strings.HasPrefix(c.SecretKey, "live_") {
		return errors.New("secret_key must be a mollie test_ or live_ key")
	}
	if c.TestMode && strings.HasPrefix(c.SecretKey, "live_") {
		return errors.New("test_mode cannot be used with a live_ key")
	}
	return nil
}
