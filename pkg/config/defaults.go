// Package config provides centralized default values for IntakeFlow
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Event Collection
	PauseThreshold time.Duration
	FlushInterval  time.Duration
	MaxBatchSize   int

	// Abandonment Sweep
	SweepInterval     time.Duration
	SweepInitialDelay time.Duration
	AbandonmentCutoff time.Duration

	// Outbound Dispatch
	DispatchTimeout    time.Duration
	CRMWebhookURL      string
	CRMAPIKey          string
	WarmLeadURL        string
	FrictionQueryLimit int

	// Warm-lead staff alerts
	AlertEmailTo string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)

	// Event Collection
	PauseThreshold = getEnvDuration("PAUSE_THRESHOLD", 3*time.Second)
	FlushInterval = getEnvDuration("FLUSH_INTERVAL", 10*time.Second)
	MaxBatchSize = getEnvInt("MAX_BATCH_SIZE", 100)

	// Abandonment Sweep
	SweepInterval = getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)
	SweepInitialDelay = getEnvDuration("SWEEP_INITIAL_DELAY", 30*time.Second)
	AbandonmentCutoff = getEnvDuration("ABANDONMENT_CUTOFF", 15*time.Minute)

	// Outbound Dispatch
	DispatchTimeout = getEnvDuration("DISPATCH_TIMEOUT", 10*time.Second)
	CRMWebhookURL = getEnvString("CRM_WEBHOOK_URL", "")
	CRMAPIKey = getEnvString("CRM_API_KEY", "")
	WarmLeadURL = getEnvString("WARM_LEAD_WEBHOOK_URL", "")
	FrictionQueryLimit = getEnvInt("FRICTION_QUERY_LIMIT", 50)

	// Warm-lead staff alerts
	AlertEmailTo = getEnvString("WARM_LEAD_ALERT_EMAIL", "")
}

// WarmLeadDestination returns the warm-lead webhook URL, falling back to the
// primary CRM webhook when no distinct warm-lead URL is configured.
func WarmLeadDestination() string {
	if WarmLeadURL != "" {
		return WarmLeadURL
	}
	return CRMWebhookURL
}
