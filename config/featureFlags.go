package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ConnectorTestModeSimulated = "simulated"
	ConnectorTestModeLive      = "live"
)

// ConnectorTestMode selects how "Test connection" behaves.
//
// Set via env:
// - CONNECTOR_TEST_MODE=simulated (default) | live
func ConnectorTestMode() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CONNECTOR_TEST_MODE")))
	if v == ConnectorTestModeLive {
		return ConnectorTestModeLive
	}
	return ConnectorTestModeSimulated
}

// TokenLifespan is the session lifetime (TOKEN_HOUR_LIFESPAN hours, default 24).
func TokenLifespan() time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(os.Getenv("TOKEN_HOUR_LIFESPAN")))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// CacheLifespan is how long read-mostly lists stay in Redis (CACHE_LIFESPAN hours, default 1).
func CacheLifespan() time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(os.Getenv("CACHE_LIFESPAN")))
	if err != nil || hours <= 0 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// IsProduction reports GO_ENV=production.
func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// EnvBool reads truthy env values ("1", "true", "yes", "y").
func EnvBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
