package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"kassabok"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string        `envconfig:"DB_HOST" default:"localhost"`
		Port     int           `envconfig:"DB_PORT" default:"5432"`
		User     string        `envconfig:"DB_USER" default:"postgres"`
		Password string        `envconfig:"DB_PASSWORD" default:""`
		Name     string        `envconfig:"DB_NAME" default:"kassabok"`
		Timeout  time.Duration `envconfig:"DB_TIMEOUT" default:"10s"`
	}

	Telemetry struct {
		// Metrics are pushed after each run when set.
		PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
		// Spans are exported over OTLP/gRPC when set.
		OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	}

	Report struct {
		// MappingsDir overrides the built-in range tables file by file.
		MappingsDir string `envconfig:"REPORT_MAPPINGS_DIR"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
