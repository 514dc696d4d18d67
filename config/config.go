package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultHealthCheckIntervalSec = 30
	defaultHealthProbeTimeoutSec  = 3
	defaultComparisonTimeoutSec   = 45
)

const (
	defaultRegistryQuotaBytes = 256 * 1024
	defaultPreviewMaxSize     = 480
	defaultPreviewQueueSize   = 50
	defaultNumPreviewWorkers  = 2
)

type Config struct {
	// database path (durable registry store)
	DatabasePath string

	// upstream dependencies
	GatewayURL        string
	AnalysisEngineURL string

	// liveness probing and comparison dispatch timing
	HealthCheckInterval time.Duration
	HealthProbeTimeout  time.Duration
	ComparisonTimeout   time.Duration

	// durable store byte ceiling for baseline metadata
	RegistryQuotaBytes int64

	// preview generation settings
	PreviewMaxSize    int
	PreviewQueueSize  int
	NumPreviewWorkers int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "registry.db")
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for database '%s': %w", dbPath, err)
	}

	gatewayURL := getEnvOrDefault("GATEWAY_URL", "http://localhost:8000")
	engineURL := getEnvOrDefault("ANALYSIS_ENGINE_URL", "http://localhost:8090")

	healthInterval := getEnvIntOrDefault("HEALTH_CHECK_INTERVAL_SECONDS", defaultHealthCheckIntervalSec)
	probeTimeout := getEnvIntOrDefault("HEALTH_PROBE_TIMEOUT_SECONDS", defaultHealthProbeTimeoutSec)
	comparisonTimeout := getEnvIntOrDefault("COMPARISON_TIMEOUT_SECONDS", defaultComparisonTimeoutSec)

	// probes must time out well before a comparison does
	if probeTimeout >= comparisonTimeout {
		log.Printf("Warning: HEALTH_PROBE_TIMEOUT_SECONDS (%d) >= COMPARISON_TIMEOUT_SECONDS (%d). Using defaults.", probeTimeout, comparisonTimeout)
		probeTimeout = defaultHealthProbeTimeoutSec
		comparisonTimeout = defaultComparisonTimeoutSec
	}

	quotaBytes := getEnvIntOrDefault("REGISTRY_QUOTA_BYTES", defaultRegistryQuotaBytes)

	previewMaxSize := getEnvIntOrDefault("PREVIEW_MAX_SIZE", defaultPreviewMaxSize)
	previewQueueSize := getEnvIntOrDefault("PREVIEW_QUEUE_SIZE", defaultPreviewQueueSize)
	numPreviewWorkers := getEnvIntOrDefault("NUM_PREVIEW_WORKERS", defaultNumPreviewWorkers)

	cfg := Config{
		DatabasePath:        absDBPath,
		GatewayURL:          gatewayURL,
		AnalysisEngineURL:   engineURL,
		HealthCheckInterval: time.Duration(healthInterval) * time.Second,
		HealthProbeTimeout:  time.Duration(probeTimeout) * time.Second,
		ComparisonTimeout:   time.Duration(comparisonTimeout) * time.Second,
		RegistryQuotaBytes:  int64(quotaBytes),
		PreviewMaxSize:      previewMaxSize,
		PreviewQueueSize:    previewQueueSize,
		NumPreviewWorkers:   numPreviewWorkers,
	}

	return cfg, nil
}
