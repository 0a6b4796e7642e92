package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	ServerPort  string
	Environment string
	JWTSecret   string

	// AuthProvider names the token verifier: jwt (HS256 with JWTSecret) or
	// firebase (Firebase ID tokens).
	AuthProvider string

	// StateBackend selects the durable store behind the engine:
	// memory, sqlite, redis, postgres or firestore.
	StateBackend string
	SQLitePath   string
	RedisURL     string
	DatabaseURL  string

	FirebaseProject        string
	FirebaseServiceAccount string
	ExportBucket           string

	DeliveryLatency time.Duration
	AdminPoolName   string
}

func Load() (*Config, error) {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("STATE_BACKEND", "memory")
	v.SetDefault("SQLITE_PATH", "./data/installerhub.db")
	v.SetDefault("DELIVERY_LATENCY", "300ms")
	v.SetDefault("ADMIN_POOL_NAME", "Support Team")

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerPort:             v.GetString("SERVER_PORT"),
		Environment:            v.GetString("ENVIRONMENT"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		AuthProvider:           strings.ToLower(v.GetString("AUTH_PROVIDER")),
		StateBackend:           strings.ToLower(v.GetString("STATE_BACKEND")),
		SQLitePath:             v.GetString("SQLITE_PATH"),
		RedisURL:               v.GetString("REDIS_URL"),
		DatabaseURL:            v.GetString("DATABASE_URL"),
		FirebaseProject:        v.GetString("FIREBASE_PROJECT_ID"),
		FirebaseServiceAccount: v.GetString("FIREBASE_SERVICE_ACCOUNT_PATH"),
		ExportBucket:           v.GetString("EXPORT_BUCKET"),
		DeliveryLatency:        v.GetDuration("DELIVERY_LATENCY"),
		AdminPoolName:          v.GetString("ADMIN_POOL_NAME"),
	}

	if cfg.DeliveryLatency < 0 {
		return nil, fmt.Errorf("DELIVERY_LATENCY must not be negative, got %s", cfg.DeliveryLatency)
	}

	switch cfg.AuthProvider {
	case "jwt":
	case "firebase":
		if cfg.FirebaseProject == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required for firebase auth")
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}

	if cfg.Environment == "production" {
		if cfg.AuthProvider == "jwt" && cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		switch cfg.StateBackend {
		case "redis":
			if cfg.RedisURL == "" {
				return nil, fmt.Errorf("REDIS_URL is required for the redis backend")
			}
		case "postgres":
			if cfg.DatabaseURL == "" {
				return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
			}
		case "firestore":
			if cfg.FirebaseProject == "" {
				return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
			}
		}
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
