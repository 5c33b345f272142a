package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read when no explicit path is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for the clinic BI engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local" validate:"oneof=local development staging production test"`
	Version string `yaml:"-"`

	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Schema     SchemaConfig     `yaml:"schema"`
	LLM        LLMConfig        `yaml:"llm"`
	Validation ValidationConfig `yaml:"validation"`
	Query      QueryConfig      `yaml:"query"`
	Churn      ChurnConfig      `yaml:"churn"`
	LTV        LTVConfig        `yaml:"ltv"`
	ROI        ROIConfig        `yaml:"roi"`
	Integrity  IntegrityConfig  `yaml:"integrity"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Reports    ReportsConfig    `yaml:"reports"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	MCP        MCPConfig        `yaml:"mcp"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	CORSOrigins       []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:8000"`
	RateLimitRequests int           `yaml:"rate_limit_requests" env:"RATE_LIMIT_REQUESTS" env-default:"100" validate:"min=0"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW" env-default:"60s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// Secret is the HS256 shared secret. When set it takes precedence over JWKS.
	Secret string `yaml:"-" env:"JWT_SECRET_KEY"`

	Algorithm string        `yaml:"algorithm" env:"JWT_ALGORITHM" env-default:"HS256" validate:"oneof=HS256 RS256"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"30m"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"ia-dental"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatasourceConfig describes the clinic database queried by the pipeline.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"mssql" validate:"oneof=mssql postgres sqlite"`
	Host     string `yaml:"host" env:"DB_SERVER" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"1433"`
	Instance string `yaml:"instance" env:"DB_INSTANCE" env-default:""`
	Database string `yaml:"database" env:"DB_DATABASE" env-default:"GELITE"`
	User     string `yaml:"user" env:"DB_USER" env-default:""`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	// Path is the database file for the sqlite type.
	Path string `yaml:"path" env:"DB_PATH" env-default:"gelite.db"`

	Encrypt                bool          `yaml:"encrypt" env:"DB_ENCRYPT" env-default:"false"`
	TrustServerCertificate bool          `yaml:"trust_server_certificate" env:"DB_TRUST_SERVER_CERTIFICATE" env-default:"true"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"30s"`

	PoolSize     int           `yaml:"pool_size" env:"DB_POOL_SIZE" env-default:"5" validate:"min=1"`
	MaxOverflow  int           `yaml:"max_overflow" env:"DB_MAX_OVERFLOW" env-default:"10" validate:"min=0"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"30m"`
	MaxRows      int           `yaml:"max_rows" env:"DB_MAX_ROWS" env-default:"1000" validate:"min=1"`
}

// SchemaConfig points at the flat schema catalog file.
type SchemaConfig struct {
	File     string `yaml:"file" env:"SCHEMA_FILE" env-default:"schema.txt"`
	Required bool   `yaml:"required" env:"SCHEMA_REQUIRED" env-default:"false"`
}

// LLMConfig configures the model gateway.
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai" validate:"oneof=openai anthropic gemini"`
	BaseURL     string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:"http://localhost:11434/v1"`
	Model       string        `yaml:"model" env:"LLM_MODEL" env-default:"llama3.2"`
	APIKey      string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1" validate:"min=0,max=2"`
	MaxTokens   int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"4096" validate:"min=1"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`

	MaxRetries       int           `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2" validate:"min=0"`
	FailureThreshold int           `yaml:"failure_threshold" env:"LLM_FAILURE_THRESHOLD" env-default:"5" validate:"min=1"`
	ResetAfter       time.Duration `yaml:"reset_after" env:"LLM_RESET_AFTER" env-default:"30s"`
}

// ValidationConfig controls the semantic pre-execution check.
type ValidationConfig struct {
	Enabled      bool          `yaml:"enabled" env:"QA_DRY_RUN_ENABLED" env-default:"true"`
	MaxQueryTime time.Duration `yaml:"max_query_time" env:"QA_MAX_QUERY_TIME" env-default:"2s"`
}

// QueryConfig controls the interactive pipeline.
type QueryConfig struct {
	PersistResults bool `yaml:"persist_results" env:"QUERY_PERSIST_RESULTS" env-default:"false"`
	// SummaryMaxRows is exclusive: summaries run only for 0 < rows < SummaryMaxRows.
	SummaryMaxRows int `yaml:"summary_max_rows" env:"QUERY_SUMMARY_MAX_ROWS" env-default:"100" validate:"min=1"`
}

// ChurnConfig holds the attrition weight vector and thresholds.
type ChurnConfig struct {
	WeightMissed        float64 `yaml:"weight_missed" env:"CHURN_WEIGHT_MISSED" env-default:"0.25" validate:"min=0,max=1"`
	WeightInactivity    float64 `yaml:"weight_inactivity" env:"CHURN_WEIGHT_INACTIVITY" env-default:"0.30" validate:"min=0,max=1"`
	WeightBalance       float64 `yaml:"weight_balance" env:"CHURN_WEIGHT_BALANCE" env-default:"0.20" validate:"min=0,max=1"`
	WeightCompliance    float64 `yaml:"weight_compliance" env:"CHURN_WEIGHT_COMPLIANCE" env-default:"0.15" validate:"min=0,max=1"`
	WeightCommunication float64 `yaml:"weight_communication" env:"CHURN_WEIGHT_COMMUNICATION" env-default:"0.10" validate:"min=0,max=1"`

	InactivityDays int     `yaml:"inactivity_days" env:"CHURN_INACTIVITY_DAYS" env-default:"180" validate:"min=1"`
	ReportCutoff   float64 `yaml:"report_cutoff" env:"CHURN_REPORT_CUTOFF" env-default:"0.3" validate:"min=0,max=1"`
}

// LTVConfig holds lifetime-value constants.
type LTVConfig struct {
	AcquisitionCost  float64 `yaml:"acquisition_cost" env:"LTV_ACQUISITION_COST" env-default:"150" validate:"gt=0"`
	ProjectionMonths int     `yaml:"projection_months" env:"LTV_PROJECTION_MONTHS" env-default:"60" validate:"min=1"`
	ActiveDays       int     `yaml:"active_days" env:"LTV_ACTIVE_DAYS" env-default:"180" validate:"min=1"`
}

// ROIConfig holds treatment cost constants.
type ROIConfig struct {
	LaborCostPerHour     float64 `yaml:"labor_cost_per_hour" env:"ROI_LABOR_COST_PER_HOUR" env-default:"50" validate:"min=0"`
	EquipmentCostPerHour float64 `yaml:"equipment_cost_per_hour" env:"ROI_EQUIPMENT_COST_PER_HOUR" env-default:"25" validate:"min=0"`
	MaterialCostRatio    float64 `yaml:"material_cost_ratio" env:"ROI_MATERIAL_COST_RATIO" env-default:"0.20" validate:"min=0,max=1"`
	LowPerformerROI      float64 `yaml:"low_performer_roi" env:"ROI_LOW_PERFORMER_THRESHOLD" env-default:"20"`
}

// IntegrityConfig parameterizes the check catalog.
type IntegrityConfig struct {
	// CatalogFile overrides the embedded check catalog when set.
	CatalogFile      string `yaml:"catalog_file" env:"INTEGRITY_CATALOG_FILE" env-default:""`
	InactivityMonths int    `yaml:"inactivity_months" env:"INTEGRITY_INACTIVITY_MONTHS" env-default:"6" validate:"min=1"`
	FutureYears      int    `yaml:"future_years" env:"INTEGRITY_FUTURE_YEARS" env-default:"2" validate:"min=1"`
}

// SchedulerConfig holds the three recurring job triggers.
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Timezone string `yaml:"timezone" env:"SCHEDULER_TIMEZONE" env-default:"Europe/Madrid"`

	DailyHour   int `yaml:"daily_hour" env:"SCHEDULER_DAILY_HOUR" env-default:"2" validate:"min=0,max=23"`
	WeeklyDay   int `yaml:"weekly_day" env:"SCHEDULER_WEEKLY_DAY" env-default:"1" validate:"min=0,max=6"`
	WeeklyHour  int `yaml:"weekly_hour" env:"SCHEDULER_WEEKLY_HOUR" env-default:"3" validate:"min=0,max=23"`
	MonthlyDay  int `yaml:"monthly_day" env:"SCHEDULER_MONTHLY_DAY" env-default:"1" validate:"min=1,max=28"`
	MonthlyHour int `yaml:"monthly_hour" env:"SCHEDULER_MONTHLY_HOUR" env-default:"4" validate:"min=0,max=23"`

	// LockTTL bounds how long a fire-time lock is held in Redis.
	LockTTL time.Duration `yaml:"lock_ttl" env:"SCHEDULER_LOCK_TTL" env-default:"30m"`
}

// ReportsConfig selects where reports are written.
type ReportsConfig struct {
	// Store is "postgres" (reporting database) or "datasource" (table inside the clinic database).
	Store string `yaml:"store" env:"REPORTS_STORE" env-default:"datasource" validate:"oneof=postgres datasource"`
	Table string `yaml:"table" env:"REPORTS_TABLE" env-default:"REPORTES_QA"`
}

// DatabaseConfig holds PostgreSQL database configuration for the report store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dental"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dental_reports"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"2"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig is optional; an empty host disables caching and job locks.
type RedisConfig struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"24h"`
}

// ArchiveConfig is optional; an empty endpoint disables report archiving.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ARCHIVE_ENDPOINT" env-default:""`
	Bucket    string `yaml:"bucket" env:"ARCHIVE_BUCKET" env-default:"dental-reports"`
	AccessKey string `yaml:"access_key" env:"ARCHIVE_ACCESS_KEY" env-default:""`
	SecretKey string `yaml:"-" env:"ARCHIVE_SECRET_KEY"` // Secret - not in YAML
	UseSSL    bool   `yaml:"use_ssl" env:"ARCHIVE_USE_SSL" env-default:"false"`
}

// AlertsConfig controls where critical findings are announced.
type AlertsConfig struct {
	WebhookURL string        `yaml:"webhook_url" env:"ALERT_WEBHOOK_URL" env-default:""`
	Timeout    time.Duration `yaml:"timeout" env:"ALERT_TIMEOUT" env-default:"10s"`
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// LoggingConfig sets the zap level.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error: defaults plus environment are used.
// Secrets (DB_PASSWORD, LLM_API_KEY, JWT_SECRET_KEY, ...) must come from
// environment variables (yaml:"-" fields).
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Use HTTPS scheme if TLS is configured
	if cfg.Server.BaseURL == "" {
		scheme := "http"
		if cfg.Server.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.Server.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Server.Port,
		}).String()
	}

	return cfg, nil
}

// Validate checks struct tags and the cross-field rules cleanenv cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if sum := c.Churn.WeightSum(); math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("invalid configuration: churn weights must sum to 1.0, got %.4f", sum)
	}

	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("invalid configuration: scheduler timezone: %w", err)
		}
	}

	return nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
func (c *Config) validateTLS() error {
	certSet := c.Server.TLSCertPath != ""
	keySet := c.Server.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.Server.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.Server.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// WeightSum returns the sum of the five churn weights.
func (c ChurnConfig) WeightSum() float64 {
	return c.WeightMissed + c.WeightInactivity + c.WeightBalance + c.WeightCompliance + c.WeightCommunication
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port for the Redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether an archive endpoint is configured.
func (c *ArchiveConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Location resolves the scheduler timezone, defaulting to local time.
func (c *SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
