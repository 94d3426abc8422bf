// Package intake defines the persistence contracts for funding applications.
package intake

import "time"

// ApplicationRepository defines the persistence interface for applications.
type ApplicationRepository interface {
	// Create persists a new draft application.
	Create(app *Application) error

	// Exists reports whether an application with the given ID exists.
	Exists(applicationID string) (bool, error)

	// FindByID loads a single application with contact fields decrypted.
	FindByID(applicationID string) (*Application, error)

	// SaveDraft updates the mutable draft fields of an application and
	// bumps its activity timestamp.
	SaveDraft(app *Application) error

	// FindAbandonedCandidates returns draft applications with TCPA consent,
	// no warm lead sent yet, complete contact details, and no activity
	// since the cutoff.
	FindAbandonedCandidates(cutoff time.Time) ([]*Application, error)

	// StampWarmLeadSent records that a warm lead notification was delivered.
	// The update is guarded so an already-stamped application is untouched.
	StampWarmLeadSent(applicationID string, sentAt time.Time) error

	// TouchActivity advances the application's last activity timestamp.
	TouchActivity(applicationID string, at time.Time) error

	// MarkSubmitted transitions a draft application to submitted.
	MarkSubmitted(applicationID string, at time.Time) error
}
