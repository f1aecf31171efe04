package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "trolley"

type Config struct {
	App        AppConfig
	DB         DBConfig
	Classifier ClassifierConfig
	Receipt    ReceiptConfig
}

type AppConfig struct {
	Env      string `envconfig:"TROLLEY_APP_ENV" default:"dev"`
	Port     string `envconfig:"TROLLEY_PORT" default:"8080"`
	LogLevel string `envconfig:"TROLLEY_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, "prod")
}

type DBConfig struct {
	Path string `envconfig:"TROLLEY_DB_PATH" default:"trolley.db"`
}

// ClassifierConfig points at the optional category suggestion service. An
// empty URL disables it and item adds fall back to local keyword matching.
type ClassifierConfig struct {
	URL string `envconfig:"TROLLEY_CLASSIFIER_URL"`
}

// ReceiptConfig points at the optional receipt parsing service.
type ReceiptConfig struct {
	URL string `envconfig:"TROLLEY_RECEIPT_URL"`
}

// Load reads configuration from the environment, after loading a local .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
