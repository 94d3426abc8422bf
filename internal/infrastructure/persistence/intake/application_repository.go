// Package intake provides the concrete SQL-based implementation for
// application persistence. Contact PII is AES-GCM encrypted at rest with
// the tenant key and decrypted on read.
package intake

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/persistence/database"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/security"
)

// SQLApplicationRepository handles application persistence to database.
type SQLApplicationRepository struct {
	db       *database.DB
	tenantID string
	aesKey   string
	logger   *logging.ChanneledLogger
}

// NewApplicationRepository creates a new instance of the repository.
func NewApplicationRepository(db *database.DB, tenantID, aesKey string, logger *logging.ChanneledLogger) *SQLApplicationRepository {
	return &SQLApplicationRepository{
		db:       db,
		tenantID: tenantID,
		aesKey:   aesKey,
		logger:   logger,
	}
}

// Create persists a new draft application.
func (r *SQLApplicationRepository) Create(app *intake.Application) error {
	if app.ID == "" {
		app.ID = security.GenerateULID()
	}
	if app.Status == "" {
		app.Status = intake.StatusDraft
	}
	if app.CurrentStep == 0 {
		app.CurrentStep = 1
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	if app.LastActivityAt.IsZero() {
		app.LastActivityAt = now
	}

	enc, err := r.encryptContact(app)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO applications (id, status, current_step, tcpa_consent_granted,
			contact_first_name, contact_last_name, contact_email, contact_phone,
			business_name, state_of_formation, last_activity_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err = r.db.Exec(
		query,
		app.ID,
		app.Status,
		app.CurrentStep,
		app.TCPAConsentGranted,
		enc.firstName,
		enc.lastName,
		enc.email,
		enc.phone,
		app.BusinessName,
		app.StateOfFormation,
		app.LastActivityAt.UTC().Format("2006-01-02 15:04:05"),
		app.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		r.logger.Database().Error("Application insert failed",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", app.ID)
		return fmt.Errorf("failed to create application: %w", err)
	}

	r.logger.Database().Info("Application created",
		"tenantId", r.tenantID,
		"applicationId", app.ID,
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// Exists reports whether an application with the given ID exists.
func (r *SQLApplicationRepository) Exists(applicationID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM applications WHERE id = ?)`

	start := time.Now()
	var exists bool
	err := r.db.QueryRow(query, applicationID).Scan(&exists)
	if err != nil {
		r.logger.Database().Error("Application existence check failed",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return false, fmt.Errorf("failed to check application existence: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return exists, nil
}

// FindByID loads a single application with contact fields decrypted.
func (r *SQLApplicationRepository) FindByID(applicationID string) (*intake.Application, error) {
	const query = `
		SELECT id, status, current_step, tcpa_consent_granted,
		       contact_first_name, contact_last_name, contact_email, contact_phone,
		       business_name, state_of_formation, last_activity_at, warm_lead_sent_at,
		       submitted_at, created_at
		FROM applications
		WHERE id = ?`

	start := time.Now()
	row := r.db.QueryRow(query, applicationID)

	app, err := r.scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Failed to load application",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return app, nil
}

// SaveDraft updates the mutable draft fields and bumps the activity timestamp.
func (r *SQLApplicationRepository) SaveDraft(app *intake.Application) error {
	enc, err := r.encryptContact(app)
	if err != nil {
		return err
	}

	const query = `
		UPDATE applications
		SET current_step = ?, tcpa_consent_granted = ?,
		    contact_first_name = ?, contact_last_name = ?,
		    contact_email = ?, contact_phone = ?,
		    business_name = ?, state_of_formation = ?,
		    last_activity_at = ?
		WHERE id = ? AND status = ?`

	start := time.Now()
	result, err := r.db.Exec(
		query,
		app.CurrentStep,
		app.TCPAConsentGranted,
		enc.firstName,
		enc.lastName,
		enc.email,
		enc.phone,
		app.BusinessName,
		app.StateOfFormation,
		time.Now().UTC().Format("2006-01-02 15:04:05"),
		app.ID,
		intake.StatusDraft,
	)
	if err != nil {
		r.logger.Database().Error("Application draft update failed",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", app.ID)
		return fmt.Errorf("failed to save application draft: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("application %s is not an editable draft", app.ID)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// FindAbandonedCandidates returns draft applications with TCPA consent,
// no warm lead sent yet, complete contact details, and no activity since
// the cutoff.
func (r *SQLApplicationRepository) FindAbandonedCandidates(cutoff time.Time) ([]*intake.Application, error) {
	const query = `
		SELECT id, status, current_step, tcpa_consent_granted,
		       contact_first_name, contact_last_name, contact_email, contact_phone,
		       business_name, state_of_formation, last_activity_at, warm_lead_sent_at,
		       submitted_at, created_at
		FROM applications
		WHERE status = ?
		  AND tcpa_consent_granted = 1
		  AND warm_lead_sent_at IS NULL
		  AND last_activity_at < ?
		  AND contact_first_name IS NOT NULL AND contact_first_name != ''
		  AND contact_last_name IS NOT NULL AND contact_last_name != ''
		  AND contact_email IS NOT NULL AND contact_email != ''
		  AND contact_phone IS NOT NULL AND contact_phone != ''
		ORDER BY last_activity_at ASC`

	start := time.Now()
	r.logger.Database().Debug("Querying abandoned candidates",
		"tenantId", r.tenantID,
		"cutoff", cutoff)

	rows, err := r.db.Query(query, intake.StatusDraft, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		r.logger.Database().Error("Failed to query abandoned candidates",
			"error", err.Error(),
			"tenantId", r.tenantID)
		return nil, fmt.Errorf("failed to query abandoned candidates: %w", err)
	}
	defer rows.Close()

	var apps []*intake.Application
	for rows.Next() {
		app, err := r.scanApplication(rows)
		if err != nil {
			r.logger.Database().Error("Failed to scan abandoned candidate row", "error", err.Error())
			continue
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		r.logger.Database().Error("Row iteration error for abandoned candidates", "error", err.Error())
		return nil, err
	}

	r.logger.Database().Info("Abandoned candidates loaded",
		"tenantId", r.tenantID,
		"count", len(apps),
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return apps, nil
}

// StampWarmLeadSent records warm lead delivery. The WHERE guard keeps an
// already-stamped application untouched under concurrent sweeps.
func (r *SQLApplicationRepository) StampWarmLeadSent(applicationID string, sentAt time.Time) error {
	const query = `
		UPDATE applications
		SET warm_lead_sent_at = ?
		WHERE id = ? AND warm_lead_sent_at IS NULL`

	start := time.Now()
	result, err := r.db.Exec(query, sentAt.UTC().Format("2006-01-02 15:04:05"), applicationID)
	if err != nil {
		r.logger.Database().Error("Warm lead stamp failed",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return fmt.Errorf("failed to stamp warm lead: %w", err)
	}

	affected, _ := result.RowsAffected()
	r.logger.Database().Info("Warm lead stamped",
		"tenantId", r.tenantID,
		"applicationId", applicationID,
		"alreadyStamped", affected == 0,
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// TouchActivity advances the application's last activity timestamp.
func (r *SQLApplicationRepository) TouchActivity(applicationID string, at time.Time) error {
	const query = `UPDATE applications SET last_activity_at = ? WHERE id = ?`

	start := time.Now()
	result, err := r.db.Exec(query, at.UTC().Format("2006-01-02 15:04:05"), applicationID)
	if err != nil {
		r.logger.Database().Error("Activity touch failed",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return fmt.Errorf("failed to touch activity: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("application %s not found", applicationID)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// MarkSubmitted transitions a draft application to submitted.
func (r *SQLApplicationRepository) MarkSubmitted(applicationID string, at time.Time) error {
	const query = `
		UPDATE applications
		SET status = ?, submitted_at = ?, last_activity_at = ?
		WHERE id = ? AND status = ?`

	start := time.Now()
	ts := at.UTC().Format("2006-01-02 15:04:05")
	result, err := r.db.Exec(query, intake.StatusSubmitted, ts, ts, applicationID, intake.StatusDraft)
	if err != nil {
		r.logger.Database().Error("Application submission failed",
			"error", err.Error(),
			"tenantId", r.tenantID,
			"applicationId", applicationID)
		return fmt.Errorf("failed to mark application submitted: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("application %s is not a submittable draft", applicationID)
	}

	r.logger.Database().Info("Application submitted",
		"tenantId", r.tenantID,
		"applicationId", applicationID,
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), r.tenantID)
	return nil
}

// encryptedContact carries the at-rest form of the contact PII fields
type encryptedContact struct {
	firstName string
	lastName  string
	email     string
	phone     string
}

func (r *SQLApplicationRepository) encryptContact(app *intake.Application) (*encryptedContact, error) {
	firstName, err := security.EncryptContactField(app.ContactFirstName, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt contact first name: %w", err)
	}
	lastName, err := security.EncryptContactField(app.ContactLastName, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt contact last name: %w", err)
	}
	email, err := security.EncryptContactField(app.ContactEmail, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt contact email: %w", err)
	}
	phone, err := security.EncryptContactField(app.ContactPhone, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt contact phone: %w", err)
	}
	return &encryptedContact{firstName: firstName, lastName: lastName, email: email, phone: phone}, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLApplicationRepository) scanApplication(row rowScanner) (*intake.Application, error) {
	var app intake.Application
	var firstName, lastName, email, phone sql.NullString
	var businessName, stateOfFormation sql.NullString
	var lastActivityStr, createdAtStr string
	var warmLeadSentStr, submittedAtStr sql.NullString

	err := row.Scan(
		&app.ID,
		&app.Status,
		&app.CurrentStep,
		&app.TCPAConsentGranted,
		&firstName,
		&lastName,
		&email,
		&phone,
		&businessName,
		&stateOfFormation,
		&lastActivityStr,
		&warmLeadSentStr,
		&submittedAtStr,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	app.ContactFirstName, err = security.DecryptContactField(firstName.String, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt contact first name: %w", err)
	}
	app.ContactLastName, err = security.DecryptContactField(lastName.String, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt contact last name: %w", err)
	}
	app.ContactEmail, err = security.DecryptContactField(email.String, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt contact email: %w", err)
	}
	app.ContactPhone, err = security.DecryptContactField(phone.String, r.aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt contact phone: %w", err)
	}

	app.BusinessName = businessName.String
	app.StateOfFormation = stateOfFormation.String

	app.LastActivityAt, err = parseTimestamp(lastActivityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last activity timestamp: %w", err)
	}
	app.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created timestamp: %w", err)
	}
	if warmLeadSentStr.Valid && warmLeadSentStr.String != "" {
		t, err := parseTimestamp(warmLeadSentStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse warm lead timestamp: %w", err)
		}
		app.WarmLeadSentAt = &t
	}
	if submittedAtStr.Valid && submittedAtStr.String != "" {
		t, err := parseTimestamp(submittedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse submitted timestamp: %w", err)
		}
		app.SubmittedAt = &t
	}

	return &app, nil
}

// parseTimestamp handles multiple timestamp formats
func parseTimestamp(timestampStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, timestampStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", timestampStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05.000Z", timestampStr); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp format: %s", timestampStr)
}
