// Package config loads the service configuration: defaults, then an optional YAML file,
// then environment variables, then validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverNeo4j    = "neo4j"
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
	DriverSnapshot = "snapshot"
)

// Executor modes
const (
	ExecutorLocal  = "local"
	ExecutorRemote = "remote"
)

// Config holds all application configuration. It is built once and passed by pointer;
// nothing mutates it after Load returns.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Store     StoreConfig     `yaml:"store"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	DynamoDB  DynamoDBConfig  `yaml:"dynamodb"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Backend   BackendConfig   `yaml:"backend"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Address     string   `yaml:"address" env:"SERVER_ADDRESS" validate:"required"`
	Environment string   `yaml:"environment" env:"ENVIRONMENT" validate:"oneof=development staging production"`
	LogLevel    string   `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	IsLambda    bool     `yaml:"is_lambda" env:"IS_LAMBDA"`
}

// EngineConfig configures strategy execution
type EngineConfig struct {
	QueryTimeout        time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT" validate:"gt=0"`
	Executor            string        `yaml:"executor" env:"EXECUTOR" validate:"oneof=local remote"`
	Exclusion           string        `yaml:"multi_hop_exclusion" env:"MULTI_HOP_EXCLUSION" validate:"oneof=performed none"`
	SimilarityDirection string        `yaml:"similarity_direction" env:"SIMILARITY_DIRECTION" validate:"oneof=both outgoing"`
	FanOut              int           `yaml:"fan_out" env:"FAN_OUT" validate:"min=1,max=64"`
}

// StoreConfig selects the graph store
type StoreConfig struct {
	Driver   string `yaml:"driver" env:"STORE_DRIVER" validate:"oneof=memory neo4j dynamodb sqlite snapshot"`
	SeedFile string `yaml:"seed_file" env:"SEED_FILE"`
}

// Neo4jConfig configures the Neo4j driver
type Neo4jConfig struct {
	URI      string `yaml:"uri" env:"NEO4J_URI"`
	Username string `yaml:"username" env:"NEO4J_USER"`
	Password string `yaml:"password" env:"NEO4J_PASSWORD"`
	Database string `yaml:"database" env:"NEO4J_DATABASE"`
}

// DynamoDBConfig configures the single-table store
type DynamoDBConfig struct {
	Region        string `yaml:"region" env:"AWS_REGION"`
	Table         string `yaml:"table" env:"TABLE_NAME"`
	IncomingIndex string `yaml:"incoming_index" env:"INCOMING_INDEX_NAME"`
	KindIndex     string `yaml:"kind_index" env:"KIND_INDEX_NAME"`
}

// SQLiteConfig configures the file store
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// BackendConfig configures the REST collaborator
type BackendConfig struct {
	BaseURL          string        `yaml:"base_url" env:"RECOMMEND_BASE_URL" validate:"omitempty,url"`
	Timeout          time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"BREAKER_FAILURE_THRESHOLD" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" env:"BREAKER_MIN_REQUESTS"`
	OpenTimeout      time.Duration `yaml:"open_timeout" env:"BREAKER_OPEN_TIMEOUT"`
}

// EventsConfig selects the event publisher
type EventsConfig struct {
	Publisher string `yaml:"publisher" env:"EVENT_PUBLISHER" validate:"oneof=log eventbridge none"`
	BusName   string `yaml:"bus_name" env:"EVENT_BUS_NAME"`
}

// MetricsConfig selects the metrics sink
type MetricsConfig struct {
	Sink      string `yaml:"sink" env:"METRICS_SINK" validate:"oneof=prometheus cloudwatch none"`
	Namespace string `yaml:"namespace" env:"METRICS_NAMESPACE" validate:"required"`
}

// TracingConfig configures OTLP export; an empty endpoint disables tracing
type TracingConfig struct {
	Endpoint   string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRate float64 `yaml:"sample_rate" env:"TRACE_SAMPLE_RATE" validate:"gte=0,lte=1"`
	Insecure   bool    `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// RateLimitConfig configures per-client limits; zero RPS disables limiting
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" validate:"gte=0"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" validate:"gte=0"`
}

// CacheConfig configures the query cache; zero TTL disables it
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"QUERY_CACHE_TTL" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     ":8080",
			Environment: "development",
			LogLevel:    "info",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Engine: EngineConfig{
			QueryTimeout:        3 * time.Second,
			Executor:            ExecutorLocal,
			Exclusion:           "performed",
			SimilarityDirection: "both",
			FanOut:              8,
		},
		Store: StoreConfig{Driver: DriverMemory},
		Neo4j: Neo4jConfig{Username: "neo4j", Database: "neo4j"},
		DynamoDB: DynamoDBConfig{
			Region:        "us-east-1",
			Table:         "recommender",
			IncomingIndex: "GSI1",
			KindIndex:     "GSI2",
		},
		SQLite: SQLiteConfig{Path: "data/recommender.db"},
		Backend: BackendConfig{
			Timeout:          5 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
			OpenTimeout:      60 * time.Second,
		},
		Events:    EventsConfig{Publisher: "log", BusName: "recommender-events"},
		Metrics:   MetricsConfig{Sink: "prometheus", Namespace: "recommender"},
		Tracing:   TracingConfig{SampleRate: 0.05},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
		Cache:     CacheConfig{TTL: 30 * time.Second},
	}
}

// Load builds the configuration. path names a YAML file; when empty CONFIG_FILE is used,
// and when that is empty too only defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints, then the requirements of the selected drivers
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Store.Driver {
	case DriverNeo4j:
		if c.Neo4j.URI == "" {
			return errors.New("config: NEO4J_URI is required for the neo4j store")
		}
	case DriverDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.New("config: TABLE_NAME is required for the dynamodb store")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite store")
		}
	case DriverSnapshot:
		if c.Backend.BaseURL == "" {
			return errors.New("config: RECOMMEND_BASE_URL is required for the snapshot store")
		}
	}

	if c.Engine.Executor == ExecutorRemote && c.Backend.BaseURL == "" {
		return errors.New("config: RECOMMEND_BASE_URL is required for the remote executor")
	}
	if c.Events.Publisher == "eventbridge" && c.Events.BusName == "" {
		return errors.New("config: EVENT_BUS_NAME is required for the eventbridge publisher")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
