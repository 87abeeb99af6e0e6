package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the debit card service.
type Config struct {
	// gRPC server port
	GRPCPort int
	// HTTP metrics/health port
	HTTPPort int
	// Service name for observability
	ServiceName string
	// Version reported in logs
	Version string

	Database DatabaseConfig
	Kafka    KafkaConfig
	Remote   RemoteConfig
	Auth     AuthConfig
	TLS      TLSConfig
	Log      LogConfig
	Tracing  TracingConfig
	Payment  PaymentConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	MaxConns      int
	MigrationsURL string
}

// KafkaConfig holds Kafka connection settings and topic names.
type KafkaConfig struct {
	Brokers             []string
	ClientID            string
	CardEventsTopic     string
	PrimaryAccountTopic string
	PublishTimeout      time.Duration
}

// RemoteConfig holds the addresses of the account and transaction services.
type RemoteConfig struct {
	AccountServiceAddr     string
	TransactionServiceAddr string
	CAFile                 string
	CallTimeout            time.Duration
	BreakerFailures        int
	BreakerOpenTimeout     time.Duration
}

// AuthConfig holds JWT validation settings.
type AuthConfig struct {
	Issuer        string
	Secret        string
	PublicKeyPEM  string
	PublicKeyFile string
}

// TLSConfig holds the gRPC server certificate. Both empty serves plaintext.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig configures the OTLP exporter. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint string
	Insecure bool
}

// PaymentConfig tunes card payments.
type PaymentConfig struct {
	// Concurrency caps the remote calls one payment runs in parallel. Zero
	// means one goroutine per participating account.
	Concurrency int
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		GRPCPort:    getEnvInt("GRPC_PORT", 8089),
		HTTPPort:    getEnvInt("HTTP_PORT", 9089),
		ServiceName: getEnv("SERVICE_NAME", "debitcard-service"),
		Version:     getEnv("SERVICE_VERSION", "dev"),
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "bib"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "bib_debitcard"),
			SSLMode:       getEnv("DB_SSLMODE", "require"),
			MaxConns:      getEnvInt("DB_MAX_CONNS", 10),
			MigrationsURL: getEnv("DB_MIGRATIONS_URL", "file://internal/infrastructure/postgres/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:             getEnvList("KAFKA_BROKERS", "localhost:9092"),
			ClientID:            getEnv("KAFKA_CLIENT_ID", "debitcard-service"),
			CardEventsTopic:     getEnv("KAFKA_CARD_EVENTS_TOPIC", "debit-card-events"),
			PrimaryAccountTopic: getEnv("KAFKA_PRIMARY_ACCOUNT_TOPIC", "primary-account-associated"),
			PublishTimeout:      getEnvDuration("KAFKA_PUBLISH_TIMEOUT", 10*time.Second),
		},
		Remote: RemoteConfig{
			AccountServiceAddr:     getEnv("ACCOUNT_SERVICE_ADDR", "localhost:8082"),
			TransactionServiceAddr: getEnv("TRANSACTION_SERVICE_ADDR", "localhost:8084"),
			CAFile:                 getEnv("REMOTE_CA_FILE", ""),
			CallTimeout:            getEnvDuration("REMOTE_CALL_TIMEOUT", 5*time.Second),
			BreakerFailures:        getEnvInt("REMOTE_BREAKER_FAILURES", 5),
			BreakerOpenTimeout:     getEnvDuration("REMOTE_BREAKER_OPEN_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			Issuer:        getEnv("JWT_ISSUER", "bib-gateway"),
			Secret:        getEnv("JWT_SECRET", ""),
			PublicKeyPEM:  getEnv("JWT_PUBLIC_KEY", ""),
			PublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		Payment: PaymentConfig{
			Concurrency: getEnvInt("PAYMENT_CONCURRENCY", 0),
		},
	}
}

// Validate checks required configuration values.
func (c Config) Validate() error {
	var errs []error
	if c.Database.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must list at least one broker"))
	}
	if c.Remote.AccountServiceAddr == "" {
		errs = append(errs, errors.New("ACCOUNT_SERVICE_ADDR is required"))
	}
	if c.Remote.TransactionServiceAddr == "" {
		errs = append(errs, errors.New("TRANSACTION_SERVICE_ADDR is required"))
	}
	if c.Auth.Secret == "" && c.Auth.PublicKeyPEM == "" && c.Auth.PublicKeyFile == "" {
		errs = append(errs, errors.New("one of JWT_SECRET, JWT_PUBLIC_KEY or JWT_PUBLIC_KEY_FILE is required"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.Payment.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_CONCURRENCY must not be negative, got %d", c.Payment.Concurrency))
	}
	return errors.Join(errs...)
}

// GRPCAddr returns the full gRPC listen address.
func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// HTTPAddr returns the full HTTP listen address.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
