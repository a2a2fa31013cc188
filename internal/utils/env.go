package utils

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of the environment variable or the fallback when
// unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvBool parses a boolean environment variable.
func GetEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetEnvDuration parses a duration environment variable, e.g. "1h" or "90s".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
