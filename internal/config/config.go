package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type DatabaseType string

const (
	MongoDB  DatabaseType = "mongodb"
	SQLite   DatabaseType = "sqlite"
	DynamoDB DatabaseType = "dynamodb"
)

// EnrichmentMode selects how geolocation enrichment jobs are executed.
type EnrichmentMode string

const (
	// ModeQueue publishes jobs to the durable broker for the worker fleet.
	ModeQueue EnrichmentMode = "queue"
	// ModeDirect runs jobs in-process on a bounded pool, without retry.
	ModeDirect EnrichmentMode = "direct"
)

type Config struct {
	Port         string       `env:"PORT" envDefault:"3008"`
	JwtKey       []byte
	JwtSecret    string       `env:"JWT_SECRET_KEY"`
	Username     string       `env:"LOGIN_USERNAME"`
	Password     string       `env:"LOGIN_PASSWORD"`
	DatabaseType DatabaseType `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DatabaseName string       `env:"DATABASE_NAME" envDefault:"cardbook"`
	// MongoDB config
	MongoURI string `env:"MONGODB_URI"`
	// SQLite config
	SQLitePath string `env:"SQLITE_PATH"`
	// DynamoDB config
	DynamoTable    string `env:"DYNAMO_TABLE"`
	DynamoEndpoint string `env:"DYNAMO_ENDPOINT"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-2"`

	Enrichment EnrichmentConfig
	Geo        GeoConfig

	OtelEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`
}

type EnrichmentConfig struct {
	Mode         EnrichmentMode `env:"ENRICHMENT_MODE" envDefault:"direct"`
	KafkaBrokers []string       `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string         `env:"KAFKA_TOPIC" envDefault:"contact-geo-enrichment"`
	KafkaGroupID string         `env:"KAFKA_GROUP_ID" envDefault:"contact-geo-workers"`
	MaxAttempts  uint           `env:"ENRICHMENT_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase  time.Duration  `env:"ENRICHMENT_BACKOFF_BASE" envDefault:"2s"`
	Workers      int            `env:"ENRICHMENT_WORKERS" envDefault:"2"`
	JobTimeout   time.Duration  `env:"ENRICHMENT_JOB_TIMEOUT" envDefault:"30s"`
	PoolSize     int            `env:"DIRECT_POOL_SIZE" envDefault:"8"`
	QueueSize    int            `env:"DIRECT_QUEUE_SIZE" envDefault:"256"`
}

type GeoConfig struct {
	HTTPTimeout      time.Duration `env:"GEO_HTTP_TIMEOUT" envDefault:"5s"`
	CacheSize        int           `env:"GEO_CACHE_SIZE" envDefault:"10000"`
	CacheTTL         time.Duration `env:"GEO_CACHE_TTL" envDefault:"168h"`
	PersistentCache  bool          `env:"GEO_PERSISTENT_CACHE" envDefault:"false"`
	GoogleMapsAPIKey string        `env:"GOOGLE_MAPS_API_KEY"`
	IPAPICoURL       string        `env:"GEO_IPAPI_CO_URL" envDefault:"https://ipapi.co"`
	IPAPIComURL      string        `env:"GEO_IP_API_COM_URL" envDefault:"http://ip-api.com"`
	GoogleGeocodeURL string        `env:"GEO_GOOGLE_GEOCODE_URL" envDefault:"https://maps.googleapis.com/maps/api/geocode/json"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	config.JwtKey = []byte(config.JwtSecret)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field requirements and fills derived defaults.
func (c *Config) Validate() error {
	switch c.DatabaseType {
	case MongoDB:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is not set")
		}
	case SQLite:
		if c.SQLitePath == "" {
			// Default to a data directory in the current directory
			c.SQLitePath = filepath.Join("data", fmt.Sprintf("%s.db", c.DatabaseName))
		}
	case DynamoDB:
		if c.DynamoTable == "" {
			return fmt.Errorf("DYNAMO_TABLE is not set")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE: %s", c.DatabaseType)
	}

	if c.Geo.PersistentCache && c.DatabaseType != SQLite {
		return fmt.Errorf("GEO_PERSISTENT_CACHE requires DATABASE_TYPE=sqlite")
	}

	switch c.Enrichment.Mode {
	case ModeDirect:
	case ModeQueue:
		if len(c.Enrichment.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is not set but ENRICHMENT_MODE=queue")
		}
		if strings.TrimSpace(c.Enrichment.KafkaTopic) == "" {
			return fmt.Errorf("KAFKA_TOPIC cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported ENRICHMENT_MODE: %s", c.Enrichment.Mode)
	}

	if c.Enrichment.MaxAttempts == 0 {
		c.Enrichment.MaxAttempts = 1
	}
	if c.Enrichment.Workers <= 0 {
		c.Enrichment.Workers = 1
	}
	if c.Enrichment.PoolSize <= 0 {
		c.Enrichment.PoolSize = 1
	}
	return nil
}

// RequireAuth checks the settings needed by the HTTP API.
func (c *Config) RequireAuth() error {
	if len(c.JwtKey) == 0 {
		return fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("LOGIN_USERNAME or LOGIN_PASSWORD is not set")
	}
	return nil
}
