package config

import (
	"fmt"
	"os"
	"strconv"

	"doctext/internal/logger"
)

type Config struct {
	// Google Cloud Configuration
	GoogleCloudProject  string
	GoogleCloudLocation string
	GCSSourceBucket     string
	GCSOutputBucket     string

	// OCR Configuration
	OCRTimeoutSeconds int

	// Document AI Configuration (optional, for the docai engine)
	DocumentAIProcessorID string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		GCSSourceBucket:       getEnv("GCS_SOURCE_BUCKET", ""),
		GCSOutputBucket:       getEnv("GCS_OUTPUT_BUCKET", ""),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	timeout := getEnv("OCR_TIMEOUT_SECONDS", "420")
	seconds, err := strconv.Atoi(timeout)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: OCR_TIMEOUT_SECONDS must be an integer: %w", err)
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("config validation failed: OCR_TIMEOUT_SECONDS must be positive, got %d", seconds)
	}
	config.OCRTimeoutSeconds = seconds

	return config, nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
