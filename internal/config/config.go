// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CatAPIKey    string
	CatAPIURL    string
	PhotoDir     string
	CatalogPath  string
	Workers      int // transform pool size, <= 0 means one per CPU
	PersistLimit int // concurrent writes, 0 means unlimited
	FetchTimeout time.Duration
	JPEGQuality  int
	LogLevel     string
	LogFile      string
}

// Load reads the given .env files (".env" when none is named) into the
// process environment and builds the configuration from it. Variables
// that are already set take precedence over file values, and missing
// files are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	photoDir := getEnv("PHOTO_DIR", "images")
	cfg := &Config{
		CatAPIKey:    getEnv("CAT_API_KEY", ""),
		CatAPIURL:    getEnv("CAT_API_URL", "https://api.thecatapi.com/v1"),
		PhotoDir:     photoDir,
		CatalogPath:  getEnv("CATALOG_PATH", filepath.Join(photoDir, "catalog.db")),
		Workers:      getEnvAsInt("PIPELINE_WORKERS", 0),
		PersistLimit: getEnvAsInt("PERSIST_LIMIT", 0),
		FetchTimeout: time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		JPEGQuality:  getEnvAsInt("JPEG_QUALITY", 95),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.PersistLimit < 0 {
		cfg.PersistLimit = 0
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
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
