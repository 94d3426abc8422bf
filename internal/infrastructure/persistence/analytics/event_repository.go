// Package analytics provides the concrete SQL-based implementations
// for interaction event persistence.
//
// PURPOSE: Store client-captured interaction events as they arrive in
// batches, and aggregate them for friction reporting. Batches persist
// atomically so a rejected batch leaves no partial rows behind.
package analytics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/persistence/database"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/security"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// SQLEventRepository handles interaction event persistence to database.
type SQLEventRepository struct {
	db       *database.DB
	tenantID string
	logger   *logging.ChanneledLogger
}

// NewEventRepository creates a new instance of the repository.
func NewEventRepository(db *database.DB, tenantID string, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:       db,
		tenantID: tenantID,
		logger:   logger,
	}
}

// StoreBatch saves a batch of interaction events inside a single transaction.
// Either every event in the batch lands or none of them do.
func (r *SQLEventRepository) StoreBatch(events []*analytics.InteractionEvent) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
		INSERT INTO analytics_events (id, application_id, field_name, event_type, duration_ms, metadata, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing event batch insert",
		"tenantId", r.tenantID,
		"batchSize", len(events),
		"applicationId", events[0].ApplicationID)

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Database().Error("Failed to begin event batch transaction",
			"error", err.Error(),
			"tenantId", r.tenantID)
		return fmt.Errorf("failed to begin event batch transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	for _, event := range events {
		eventID := event.ID
		if eventID == "" {
			eventID = security.GenerateULID()
		}

		var metadataJSON *string
		if len(event.Metadata) > 0 {
			raw, err := json.Marshal(event.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal event metadata: %w", err)
			}
			s := string(raw)
			metadataJSON = &s
		}

		_, err = stmt.Exec(
			eventID,
			event.ApplicationID,
			event.FieldName, // Empty string means page-level event
			string(event.EventType),
			event.DurationMs, // Can be NULL per schema
			metadataJSON,     // Can be NULL per schema
			event.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
			now,
		)
		if err != nil {
			r.logger.Database().Error("Event batch insert failed",
				"error", err.Error(),
				"tenantId", r.tenantID,
				"eventId", eventID,
				"applicationId", event.ApplicationID,
				"eventType", string(event.EventType))
			return fmt.Errorf("failed to store interaction event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}

	r.logger.Database().Info("Event batch insert completed",
		"tenantId", r.tenantID,
		"batchSize", len(events),
		"applicationId", events[0].ApplicationID,
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, "BATCH_"+query, time.Since(start), r.tenantID)
	return nil
}

// FindByApplication retrieves all interaction events for an application,
// ordered by when they occurred.
func (r *SQLEventRepository) FindByApplication(applicationID string) ([]*analytics.InteractionEvent, error) {
	const query = `
		SELECT id, application_id, field_name, event_type, duration_ms, metadata, occurred_at
		FROM analytics_events
		WHERE application_id = ?
		ORDER BY occurred_at ASC, id ASC`

	start := time.Now()
	r.logger.Database().Debug("Loading interaction events", "tenantId", r.tenantID, "applicationId", applicationID)

	rows, err := r.db.Query(query, applicationID)
	if err != nil {
		r.logger.Database().Error("Failed to query interaction events",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return nil, fmt.Errorf("failed to query interaction events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.InteractionEvent
	for rows.Next() {
		var event analytics.InteractionEvent
		var eventType string
		var durationMs sql.NullInt64
		var metadataJSON sql.NullString
		var occurredAtStr string

		err := rows.Scan(
			&event.ID,
			&event.ApplicationID,
			&event.FieldName,
			&eventType,
			&durationMs,
			&metadataJSON,
			&occurredAtStr,
		)
		if err != nil {
			r.logger.Database().Error("Failed to scan interaction event row", "error", err.Error())
			continue
		}

		event.EventType = analytics.EventType(eventType)

		if durationMs.Valid {
			d := int(durationMs.Int64)
			event.DurationMs = &d
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &event.Metadata); err != nil {
				r.logger.Database().Error("Failed to parse event metadata", "error", err.Error(), "eventId", event.ID)
			}
		}

		event.OccurredAt, err = parseTimestamp(occurredAtStr)
		if err != nil {
			r.logger.Database().Error("Failed to parse event timestamp", "error", err.Error(), "timestamp", occurredAtStr)
			continue
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Database().Error("Row iteration error for interaction events", "error", err.Error())
		return nil, err
	}

	r.logger.Database().Info("Interaction events loaded",
		"tenantId", r.tenantID,
		"applicationId", applicationID,
		"count", len(events),
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return events, nil
}

// Summarize aggregates events for an application by field and event type.
func (r *SQLEventRepository) Summarize(applicationID string) ([]*analytics.SummaryRow, error) {
	const query = `
		SELECT field_name, event_type, COUNT(*) AS event_count,
		       COALESCE(AVG(duration_ms), 0) AS avg_duration,
		       COALESCE(SUM(duration_ms), 0) AS sum_duration
		FROM analytics_events
		WHERE application_id = ?
		GROUP BY field_name, event_type
		ORDER BY field_name, event_type`

	start := time.Now()
	r.logger.Database().Debug("Summarizing interaction events", "tenantId", r.tenantID, "applicationId", applicationID)

	rows, err := r.db.Query(query, applicationID)
	if err != nil {
		r.logger.Database().Error("Failed to summarize interaction events",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return nil, fmt.Errorf("failed to summarize interaction events: %w", err)
	}
	defer rows.Close()

	summary, err := scanSummaryRows(rows, r.logger)
	if err != nil {
		return nil, err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return summary, nil
}

// TenantFriction aggregates high-friction events across every application
// of this tenant, limited to the worst offenders by event volume.
func (r *SQLEventRepository) TenantFriction(eventTypes []analytics.EventType, limit int) ([]*analytics.SummaryRow, error) {
	if len(eventTypes) == 0 {
		return []*analytics.SummaryRow{}, nil
	}
	if limit <= 0 {
		limit = config.FrictionQueryLimit
	}

	placeholders := ""
	for i := range eventTypes {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
	}

	query := fmt.Sprintf(`
		SELECT field_name, event_type, COUNT(*) AS event_count,
		       COALESCE(AVG(duration_ms), 0) AS avg_duration,
		       COALESCE(SUM(duration_ms), 0) AS sum_duration
		FROM analytics_events
		WHERE event_type IN (%s)
		GROUP BY field_name, event_type
		ORDER BY event_count DESC
		LIMIT ?`, placeholders)

	args := make([]any, 0, len(eventTypes)+1)
	for _, et := range eventTypes {
		args = append(args, string(et))
	}
	args = append(args, limit)

	start := time.Now()
	r.logger.Database().Debug("Querying tenant friction",
		"tenantId", r.tenantID,
		"eventTypes", eventTypes,
		"limit", limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query tenant friction",
			"error", err.Error(),
			"tenantId", r.tenantID)
		return nil, fmt.Errorf("failed to query tenant friction: %w", err)
	}
	defer rows.Close()

	summary, err := scanSummaryRows(rows, r.logger)
	if err != nil {
		return nil, err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return summary, nil
}

// scanSummaryRows converts aggregate query rows into summary entries
func scanSummaryRows(rows *sql.Rows, logger *logging.ChanneledLogger) ([]*analytics.SummaryRow, error) {
	summary := make([]*analytics.SummaryRow, 0)
	for rows.Next() {
		var row analytics.SummaryRow
		var eventType string

		err := rows.Scan(&row.FieldName, &eventType, &row.Count, &row.AvgDurationMs, &row.SumDurationMs)
		if err != nil {
			logger.Database().Error("Failed to scan summary row", "error", err.Error())
			continue
		}

		row.EventType = analytics.EventType(eventType)
		summary = append(summary, &row)
	}

	if err := rows.Err(); err != nil {
		logger.Database().Error("Row iteration error for event summary", "error", err.Error())
		return nil, err
	}

	return summary, nil
}

// parseTimestamp handles multiple timestamp formats
func parseTimestamp(timestampStr string) (time.Time, error) {
	// Try RFC3339 first
	if t, err := time.Parse(time.RFC3339, timestampStr); err == nil {
		return t, nil
	}

	// Try SQLite format
	if t, err := time.Parse("2006-01-02 15:04:05", timestampStr); err == nil {
		return t, nil
	}

	// Try ISO format with milliseconds
	if t, err := time.Parse("2006-01-02T15:04:05.000Z", timestampStr); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp format: %s", timestampStr)
}
