package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatabaseQueryTimeout is the per-statement timeout in seconds.
const DefaultDatabaseQueryTimeout = 10

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	RateLimit     RateLimitConfig
	AI            AIConfig
	Storage       StorageConfig
	Stripe        StripeConfig
	NATS          NATSConfig
	Mongo         MongoConfig
	Notifications NotificationsConfig
	Sentry        SentryConfig
	Tracing       TracingConfig
	Fraud         FraudConfig
	Secrets       SecretsConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	CORSOrigins    string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	MinConns       int
	QueryTimeout   int
	MigrationsPath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret    string
	SecretRef string
}

// RateLimitConfig configures the Redis fixed-window limiter.
type RateLimitConfig struct {
	Enabled           bool
	WindowSeconds     int
	DefaultLimit      int
	ReportSubmissions int
	RedisPrefix       string
}

// AIConfig configures the chat-completions risk assessor.
type AIConfig struct {
	BaseURL        string
	APIKey         string
	APIKeyRef      string
	Model          string
	TimeoutSeconds int
	Enabled        bool
}

// StorageConfig configures the S3-compatible evidence bucket.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	BaseURL   string
	Enabled   bool
}

// StripeConfig holds the Stripe API key
type StripeConfig struct {
	SecretKey    string
	SecretKeyRef string
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL     string
	Stream  string
	Enabled bool
}

// MongoConfig configures the AI assessment archive.
type MongoConfig struct {
	URI      string
	Database string
	Enabled  bool
}

// NotificationsConfig holds email and SMS provider credentials
type NotificationsConfig struct {
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN string
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

// FraudConfig tunes the fraud engine.
type FraudConfig struct {
	AutoSuspend           bool
	StatusCacheTTLSeconds int
}

// SecretsConfig selects the backend (aws, vault or file) used to resolve
// *_SECRET_REF values.
type SecretsConfig struct {
	Provider     string
	AWSRegion    string
	VaultAddress string
	VaultToken   string
	VaultMount   string
	FilePath     string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 30),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 25),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "gigmarket"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:       getEnvAsInt("DB_MIN_CONNS", 5),
			QueryTimeout:   getEnvAsInt("DB_QUERY_TIMEOUT", DefaultDatabaseQueryTimeout),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			SecretRef: getEnv("JWT_SECRET_REF", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:     getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 3600),
			DefaultLimit:      getEnvAsInt("RATE_LIMIT_DEFAULT", 600),
			ReportSubmissions: getEnvAsInt("RATE_LIMIT_REPORTS", 5),
			RedisPrefix:       getEnv("RATE_LIMIT_PREFIX", "rl"),
		},
		AI: AIConfig{
			BaseURL:        getEnv("AI_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:         getEnv("AI_API_KEY", ""),
			APIKeyRef:      getEnv("AI_API_KEY_SECRET_REF", ""),
			Model:          getEnv("AI_MODEL", "meta-llama/llama-4-maverick-17b-128e-instruct"),
			TimeoutSeconds: getEnvAsInt("AI_TIMEOUT_SECONDS", 15),
			Enabled:        getEnvAsBool("AI_ENABLED", true),
		},
		Storage: StorageConfig{
			Bucket:    getEnv("S3_BUCKET", "gigmarket-evidence"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			BaseURL:   getEnv("S3_BASE_URL", ""),
			Enabled:   getEnvAsBool("S3_ENABLED", false),
		},
		Stripe: StripeConfig{
			SecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
			SecretKeyRef: getEnv("STRIPE_SECRET_KEY_REF", ""),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "MARKETPLACE"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "gigmarket"),
			Enabled:  getEnvAsBool("MONGO_ENABLED", false),
		},
		Notifications: NotificationsConfig{
			SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
			EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "trust@gigmarket.local"),
			EmailFromName:    getEnv("EMAIL_FROM_NAME", "Gigmarket Trust & Safety"),
			TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio: getEnvAsFloat("TRACING_SAMPLE_RATIO", 0.1),
		},
		Fraud: FraudConfig{
			AutoSuspend:           getEnvAsBool("FRAUD_AUTO_SUSPEND", true),
			StatusCacheTTLSeconds: getEnvAsInt("FRAUD_STATUS_CACHE_TTL", 300),
		},
		Secrets: SecretsConfig{
			Provider:     getEnv("SECRETS_PROVIDER", ""),
			AWSRegion:    getEnv("SECRETS_AWS_REGION", "us-east-1"),
			VaultAddress: getEnv("VAULT_ADDR", "http://localhost:8200"),
			VaultToken:   getEnv("VAULT_TOKEN", ""),
			VaultMount:   getEnv("VAULT_MOUNT", "secret"),
			FilePath:     getEnv("SECRETS_FILE_PATH", "/var/run/secrets/gigmarket"),
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if cfg.Server.Environment == "production" && cfg.JWT.SecretRef == "" &&
		cfg.JWT.Secret == "your-secret-key-change-in-production" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in postgres:// form, as migrate expects.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Window returns the limiter window, falling back to one minute.
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Timeout returns the AI call timeout
func (c AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StatusCacheTTL returns how long a fraud status lookup stays cached.
func (c FraudConfig) StatusCacheTTL() time.Duration {
	if c.StatusCacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.StatusCacheTTLSeconds) * time.Second
}

// AllowedOrigins splits CORSOrigins into a list.
func (c ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
