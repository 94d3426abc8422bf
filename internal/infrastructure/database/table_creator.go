// Package database provides tenant instantiation
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema for a new tenant.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tenant's database tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'draft',
		current_step INTEGER NOT NULL DEFAULT 1,
		tcpa_consent_granted BOOLEAN NOT NULL DEFAULT 0,
		contact_first_name TEXT,
		contact_last_name TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		business_name TEXT,
		state_of_formation TEXT,
		last_activity_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		warm_lead_sent_at TIMESTAMP,
		submitted_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_events (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL REFERENCES applications(id),
		field_name TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		duration_ms INTEGER,
		metadata TEXT,
		occurred_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_last_activity ON applications(last_activity_at)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_warm_lead ON applications(status, warm_lead_sent_at, last_activity_at)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_events_application_id ON analytics_events(application_id)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_events_event_type ON analytics_events(event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_events_field ON analytics_events(application_id, field_name)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_events_occurred_at ON analytics_events(occurred_at)`,
}
