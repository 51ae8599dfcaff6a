package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, read from the environment. Main loads
// a .env file first so local development mirrors the container setup.
type Config struct {
	Port   string
	APIKey string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool

	// WorkDir is the root for per-job scratch directories.
	WorkDir string

	WhisperModelDir    string
	WhisperModel       string
	WhisperComputeType string
	WhisperLanguage    string

	URLExpiration time.Duration
	WorkerCount   int
}

// Load reads configuration from the environment, applying defaults.
// MinIO credentials and the API key are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		APIKey:             os.Getenv("API_KEY"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getEnv("MINIO_BUCKET", "media"),
		MinioSecure:        getEnvAsBool("MINIO_SECURE", false),
		WorkDir:            getEnv("WORKDIR", os.TempDir()),
		WhisperModelDir:    getEnv("WHISPER_MODEL_DIR", "models"),
		WhisperModel:       getEnv("WHISPER_MODEL", "medium"),
		WhisperComputeType: getEnv("WHISPER_COMPUTE_TYPE", "auto"),
		WhisperLanguage:    getEnv("WHISPER_LANGUAGE", "pt"),
		URLExpiration:      time.Duration(getEnvAsInt("URL_EXPIRATION", 86400)) * time.Second,
		WorkerCount:        getEnvAsInt("WORKER_COUNT", 4),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}
	if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
