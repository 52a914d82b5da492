package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultEqualAreaProj is the Asia North Albers equal-area conic (ESRI:102025).
const DefaultEqualAreaProj = "+proj=aea +lat_1=15 +lat_2=65 +lat_0=30 +lon_0=95 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs"

// Config holds process settings, populated from environment variables.
// What to prepare is described separately by a job file.
type Config struct {
	InputDir        string
	OutputDir       string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// EqualAreaProj is the proj4 definition used for area measurement.
	EqualAreaProj string

	// Overpass amenity lookup configuration.
	OverpassEndpoint  string
	OverpassTimeout   time.Duration
	OverpassCacheSize int

	// Kafka publication of exported datasets.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	overpassTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("OVERPASS_TIMEOUT", "60s"))
	if err != nil || overpassTimeout <= 0 {
		return nil, errors.New("invalid OVERPASS_TIMEOUT")
	}

	cfg := &Config{
		InputDir:        sharedcfg.EnvOrDefault("INPUT_DIR", "InputData"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "OutputData"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		EqualAreaProj:   sharedcfg.EnvOrDefault("EQUAL_AREA_PROJ", DefaultEqualAreaProj),

		OverpassEndpoint:  sharedcfg.EnvOrDefault("OVERPASS_ENDPOINT", "https://overpass-api.de/api/interpreter"),
		OverpassTimeout:   overpassTimeout,
		OverpassCacheSize: parseOverpassCacheSize(),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "weap-datasets"),
	}

	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}

	return cfg, nil
}

func parseOverpassCacheSize() int {
	if s := os.Getenv("OVERPASS_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}
