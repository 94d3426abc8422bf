package database

import (
	"strings"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// GetSlowQueryThreshold returns the configured slow query threshold
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery checks if a query duration exceeds threshold
// and logs it using the slow query channel if it does
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration, tenantID string) {
	threshold := GetSlowQueryThreshold()

	// Batch inserts are expected to take longer than point queries
	if strings.HasPrefix(query, "BATCH_") {
		threshold *= 3
	}

	if duration > threshold {
		logger.LogSlowQuery(query, duration, tenantID)
	}
}
