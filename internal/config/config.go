package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseAnonKey    string
	SupabaseJWTSecret  string
	StorageBucket      string

	// Database
	DatabaseURL  string
	DisableJoins bool

	// Inference engine. ModelPath selects the local TFLite engine;
	// InferenceURL, when set, selects the remote sidecar instead.
	ModelPath     string
	InferenceURL  string
	MinConfidence float64

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
		StorageBucket:      getEnv("SUPABASE_STORAGE_BUCKET", "urine-images"),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DisableJoins: getEnvBool("DB_DISABLE_JOINS", false),

		ModelPath:     getEnv("MODEL_PATH", "models/best_float32.tflite"),
		InferenceURL:  getEnv("INFERENCE_URL", ""),
		MinConfidence: getEnvFloat("MIN_CONFIDENCE", 0.25),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	}
	// Token verification needs either the local JWT secret or the anon key
	// for remote verification against Supabase Auth.
	if c.SupabaseJWTSecret == "" && c.SupabaseAnonKey == "" {
		return fmt.Errorf("one of SUPABASE_JWT_SECRET or SUPABASE_ANON_KEY is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be within [0,1]")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
