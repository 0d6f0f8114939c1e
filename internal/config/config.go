package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the API server. Values come from the
// environment; a .env file in the working directory is loaded if present.
type Config struct {
	// HTTP server
	Port        string
	FrontendURL string

	// BigQuery
	ProjectID string
	Dataset   string

	// Cloud Storage (receipt images referenced by gs:// URLs)
	Bucket string

	// Inference
	GeminiModel string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3001"),
		ProjectID:   getEnv("GCP_PROJECT_ID", ""),
		Dataset:     getEnv("BQ_DATASET", "finsight"),
		Bucket:      getEnv("GCS_BUCKET", ""),
		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}
}

// Validate checks the configuration and returns an error describing every
// invalid value at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.ProjectID == "" {
		problems = append(problems, "GCP_PROJECT_ID is required")
	}

	if c.Dataset == "" {
		problems = append(problems, "BQ_DATASET cannot be empty")
	}

	if c.GeminiModel == "" {
		problems = append(problems, "GEMINI_MODEL cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
