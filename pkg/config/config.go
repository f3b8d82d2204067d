package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	StorageDriver string        `env:"STORAGE_DRIVER" envDefault:"mongo"`
	MongoURI      string        `env:"MONGODB_URI" envDefault:"mongodb://127.0.0.1:27017"`
	MongoDatabase string        `env:"MONGODB_DATABASE" envDefault:"circulapp"`
	MongoTimeout  time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s"`

	FirestoreTimeout time.Duration `env:"FIRESTORE_TIMEOUT" envDefault:"10s"`

	AuthProvider string        `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry    time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`

	FirebaseProject            string `env:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountPath string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	FirebaseServiceAccountJSON string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	CORSAllowOrigins []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.AuthProvider {
	case "jwt", "firebase":
	default:
		return fmt.Errorf("AUTH_PROVIDER must be jwt or firebase, got %q", c.AuthProvider)
	}

	switch c.StorageDriver {
	case "mongo", "firestore", "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be mongo, firestore or memory, got %q", c.StorageDriver)
	}

	if c.IsProduction() {
		if c.AuthProvider == "jwt" && c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.StorageDriver == "memory" {
			return errors.New("memory storage is not allowed in production")
		}
	}

	if c.AuthProvider == "firebase" && c.FirebaseProject == "" {
		return errors.New("FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase")
	}
	if c.StorageDriver == "firestore" && c.FirebaseProject == "" {
		return errors.New("FIREBASE_PROJECT_ID is required when STORAGE_DRIVER=firestore")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
