package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domainconfig "github.com/solm0/solmee-xyz-keystone/domain/config"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment"`

	Server         ServerConfig         `yaml:"server"`
	Store          StoreConfig          `yaml:"store"`
	Events         EventsConfig         `yaml:"events"`
	Pipeline       PipelineConfig       `yaml:"pipeline"`
	Logging        LoggingConfig        `yaml:"logging"`
	Observability  ObservabilityConfig  `yaml:"observability"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	EnableCORS      bool          `yaml:"enable_cors"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	LambdaMode      string        `yaml:"lambda_mode"`
}

// StoreConfig selects and configures the entity store
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	TableName  string `yaml:"table_name"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
	// LockTTL bounds how long a DynamoDB article lock survives a crashed holder
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// EventsConfig configures domain event publishing
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	BusName string `yaml:"bus_name"`
	Source  string `yaml:"source"`
}

// PipelineConfig mirrors the tunables of the content pipeline
type PipelineConfig struct {
	MinFrequency        int               `yaml:"min_frequency"`
	MaxKeywords         int               `yaml:"max_keywords"`
	MinTokenRunes       int               `yaml:"min_token_runes"`
	MinStemRunes        int               `yaml:"min_stem_runes"`
	RelationshipKind    string            `yaml:"relationship_kind"`
	ReferenceComponents map[string]string `yaml:"reference_components"`
	DefaultTagID        string            `yaml:"default_tag_id"`
	StrictDocuments     bool              `yaml:"strict_documents"`
	LockArticles        bool              `yaml:"lock_articles"`
	LexiconFile         string            `yaml:"lexicon_file"`
	WatchLexicon        bool              `yaml:"watch_lexicon"`
}

// LoggingConfig configures the zap logger and optional file rotation
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ObservabilityConfig configures metrics and tracing
type ObservabilityConfig struct {
	EnableMetrics   bool    `yaml:"enable_metrics"`
	EnableTracing   bool    `yaml:"enable_tracing"`
	TracingEndpoint string  `yaml:"tracing_endpoint"`
	SampleRate      float64 `yaml:"sample_rate"`
	ServiceName     string  `yaml:"service_name"`
}

// CircuitBreakerConfig configures the store circuit breaker
type CircuitBreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	FailureRatio float64       `yaml:"failure_ratio"`
	MinRequests  uint32        `yaml:"min_requests"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	pipeline := domainconfig.DefaultPipelineConfig()
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableCORS:      true,
			AllowedOrigins:  []string{"*"},
		},
		Store: StoreConfig{
			Driver:     DriverMemory,
			SQLitePath: "keystone.db",
			TableName:  "keystone",
			Region:     "ap-northeast-2",
			LockTTL:    30 * time.Second,
		},
		Events: EventsConfig{
			BusName: "keystone-events",
			Source:  "keystone.content",
		},
		Pipeline: PipelineConfig{
			MinFrequency:        pipeline.MinFrequency,
			MaxKeywords:         pipeline.MaxKeywords,
			MinTokenRunes:       pipeline.MinTokenRunes,
			MinStemRunes:        pipeline.MinStemRunes,
			RelationshipKind:    pipeline.RelationshipKind,
			ReferenceComponents: pipeline.ReferenceComponents,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			SampleRate:    1.0,
			ServiceName:   "keystone",
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:      true,
			MaxRequests:  3,
			Interval:     60 * time.Second,
			Timeout:      30 * time.Second,
			FailureRatio: 0.6,
			MinRequests:  5,
		},
	}
}

// LoadConfig loads defaults, then the YAML file named by CONFIG_FILE, then
// environment variables, and validates the result
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	c.Server.EnableCORS = getEnvBool("ENABLE_CORS", c.Server.EnableCORS)
	c.Server.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.LambdaMode = getEnv("LAMBDA_MODE", c.Server.LambdaMode)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.TableName = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.Store.TableName))
	c.Store.Region = getEnv("AWS_REGION", c.Store.Region)
	c.Store.Endpoint = getEnv("DYNAMODB_ENDPOINT", c.Store.Endpoint)

	c.Events.Enabled = getEnvBool("ENABLE_EVENTS", c.Events.Enabled)
	c.Events.BusName = getEnv("EVENT_BUS_NAME", c.Events.BusName)
	c.Events.Source = getEnv("EVENT_SOURCE", c.Events.Source)

	c.Pipeline.MinFrequency = getEnvInt("KEYWORD_MIN_FREQUENCY", c.Pipeline.MinFrequency)
	c.Pipeline.MaxKeywords = getEnvInt("KEYWORD_MAX_COUNT", c.Pipeline.MaxKeywords)
	c.Pipeline.MinTokenRunes = getEnvInt("KEYWORD_MIN_TOKEN_RUNES", c.Pipeline.MinTokenRunes)
	c.Pipeline.MinStemRunes = getEnvInt("KEYWORD_MIN_STEM_RUNES", c.Pipeline.MinStemRunes)
	c.Pipeline.RelationshipKind = getEnv("RELATIONSHIP_KIND", c.Pipeline.RelationshipKind)
	c.Pipeline.DefaultTagID = getEnv("DEFAULT_TAG_ID", c.Pipeline.DefaultTagID)
	c.Pipeline.StrictDocuments = getEnvBool("STRICT_DOCUMENTS", c.Pipeline.StrictDocuments)
	c.Pipeline.LockArticles = getEnvBool("LOCK_ARTICLES", c.Pipeline.LockArticles)
	c.Pipeline.LexiconFile = getEnv("LEXICON_FILE", c.Pipeline.LexiconFile)
	c.Pipeline.WatchLexicon = getEnvBool("WATCH_LEXICON", c.Pipeline.WatchLexicon)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)

	c.Observability.EnableMetrics = getEnvBool("ENABLE_METRICS", c.Observability.EnableMetrics)
	c.Observability.EnableTracing = getEnvBool("ENABLE_TRACING", c.Observability.EnableTracing)
	c.Observability.TracingEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Observability.TracingEndpoint)

	c.CircuitBreaker.Enabled = getEnvBool("ENABLE_CIRCUIT_BREAKER", c.CircuitBreaker.Enabled)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case DriverDynamoDB:
		if c.Store.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Events.Enabled && c.Events.BusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.Pipeline.WatchLexicon && c.Pipeline.LexiconFile == "" {
		return fmt.Errorf("LEXICON_FILE is required when WATCH_LEXICON is set")
	}
	if c.CircuitBreaker.FailureRatio < 0 || c.CircuitBreaker.FailureRatio > 1 {
		return fmt.Errorf("circuit breaker failure ratio must be between 0 and 1")
	}

	return c.PipelineConfig().Validate()
}

// PipelineConfig returns the domain pipeline configuration, starting from the
// environment preset and applying the configured overrides
func (c *Config) PipelineConfig() *domainconfig.PipelineConfig {
	pc := domainconfig.LoadPipelineConfig(c.Environment)
	pc.MinFrequency = c.Pipeline.MinFrequency
	pc.MaxKeywords = c.Pipeline.MaxKeywords
	pc.MinTokenRunes = c.Pipeline.MinTokenRunes
	pc.MinStemRunes = c.Pipeline.MinStemRunes
	pc.RelationshipKind = c.Pipeline.RelationshipKind
	if len(c.Pipeline.ReferenceComponents) > 0 {
		pc.ReferenceComponents = c.Pipeline.ReferenceComponents
	}
	pc.DefaultTagID = c.Pipeline.DefaultTagID
	pc.StrictDocuments = pc.StrictDocuments || c.Pipeline.StrictDocuments
	pc.LockArticles = pc.LockArticles || c.Pipeline.LockArticles
	return pc
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList reads a comma separated list
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
