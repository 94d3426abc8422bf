// Package intake defines the application-record view the analytics pipeline
// depends on: abandonment state, the warm-lead sentinel, and the outbound
// payloads built from them.
package intake

import (
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
)

// Application statuses relevant to the sweep and submission paths. The full
// intake lifecycle has more states; this pipeline only distinguishes these.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Application is the abandonment-state view over an application record.
// Contact fields are held decrypted in memory; at rest they are AES-GCM
// encrypted per tenant key.
type Application struct {
	ID                 string
	Status             string
	CurrentStep        int
	TCPAConsentGranted bool
	ContactFirstName   string
	ContactLastName    string
	ContactEmail       string
	ContactPhone       string
	BusinessName       string
	StateOfFormation   string
	LastActivityAt     time.Time
	WarmLeadSentAt     *time.Time
	SubmittedAt        *time.Time
	CreatedAt          time.Time
}

// HasMinimumContact reports whether all four contact fields required for a
// warm lead are present.
func (a *Application) HasMinimumContact() bool {
	return a.ContactEmail != "" && a.ContactFirstName != "" &&
		a.ContactLastName != "" && a.ContactPhone != ""
}

// WarmLeadNotification is the outbound payload for an abandoned-but-
// contactable applicant. Built fresh per dispatch; never persisted.
type WarmLeadNotification struct {
	Type             string                        `json:"type"`
	ApplicationID    string                        `json:"applicationId"`
	TenantID         string                        `json:"tenantId"`
	ContactFirstName string                        `json:"contactFirstName"`
	ContactLastName  string                        `json:"contactLastName"`
	ContactEmail     string                        `json:"contactEmail"`
	ContactPhone     string                        `json:"contactPhone"`
	BusinessName     *string                       `json:"businessName"`
	StateOfFormation *string                       `json:"stateOfFormation"`
	AbandonedAtStep  int                           `json:"abandonedAtStep"`
	AnalyticsHeatmap []*analytics.FieldHeatmapEntry `json:"analyticsHeatmap"`
	CreatedAt        string                        `json:"createdAt"`
}

// NewWarmLeadNotification assembles the payload for one abandoned
// application.
func NewWarmLeadNotification(tenantID string, app *Application, heatmap []*analytics.FieldHeatmapEntry) *WarmLeadNotification {
	n := &WarmLeadNotification{
		Type:             "warm_lead",
		ApplicationID:    app.ID,
		TenantID:         tenantID,
		ContactFirstName: app.ContactFirstName,
		ContactLastName:  app.ContactLastName,
		ContactEmail:     app.ContactEmail,
		ContactPhone:     app.ContactPhone,
		AbandonedAtStep:  app.CurrentStep,
		AnalyticsHeatmap: heatmap,
		CreatedAt:        app.CreatedAt.UTC().Format(time.RFC3339),
	}
	if app.BusinessName != "" {
		n.BusinessName = &app.BusinessName
	}
	if app.StateOfFormation != "" {
		n.StateOfFormation = &app.StateOfFormation
	}
	return n
}

// SubmissionNotification is the outbound payload for a completed
// application, pushed to the CRM on the submission path.
type SubmissionNotification struct {
	Type          string `json:"type"`
	ApplicationID string `json:"applicationId"`
	TenantID      string `json:"tenantId"`
	Status        string `json:"status"`
	BusinessName  *string `json:"businessName"`
	ContactEmail  string `json:"contactEmail"`
	SubmittedAt   string `json:"submittedAt"`
}

// NewSubmissionNotification assembles the payload for a submitted
// application.
func NewSubmissionNotification(tenantID string, app *Application, submittedAt time.Time) *SubmissionNotification {
	n := &SubmissionNotification{
		Type:          "application_submitted",
		ApplicationID: app.ID,
		TenantID:      tenantID,
		Status:        StatusSubmitted,
		ContactEmail:  app.ContactEmail,
		SubmittedAt:   submittedAt.UTC().Format(time.RFC3339),
	}
	if app.BusinessName != "" {
		n.BusinessName = &app.BusinessName
	}
	return n
}
