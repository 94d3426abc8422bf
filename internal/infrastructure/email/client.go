// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"
	"os"

	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendWarmLeadAlert(toEmail, tenantID string, notification *intake.WarmLeadNotification) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	fromEmail := os.Getenv("ALERT_EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "alerts@intakeflow.app" // Default from address
	}

	fromName := os.Getenv("ALERT_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "IntakeFlow" // Default from name
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendWarmLeadAlert composes and sends the staff alert for a warm lead.
func (c *ResendClient) SendWarmLeadAlert(toEmail, tenantID string, notification *intake.WarmLeadNotification) error {
	subject := fmt.Sprintf("Warm lead: %s %s abandoned at step %d",
		notification.ContactFirstName, notification.ContactLastName, notification.AbandonedAtStep)

	businessName := ""
	if notification.BusinessName != nil {
		businessName = *notification.BusinessName
	}

	content := templates.GetWarmLeadEmailContent(templates.WarmLeadEmailProps{
		ApplicationID:   notification.ApplicationID,
		ContactName:     notification.ContactFirstName + " " + notification.ContactLastName,
		ContactEmail:    notification.ContactEmail,
		ContactPhone:    notification.ContactPhone,
		BusinessName:    businessName,
		AbandonedAtStep: notification.AbandonedAtStep,
		TenantID:        tenantID,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send warm lead alert via Resend: %w", err)
	}

	return nil
}

// NoopService satisfies Service without sending anything. Used when no
// Resend API key is configured.
type NoopService struct{}

// NewNoopService returns the no-op email service.
func NewNoopService() Service {
	return &NoopService{}
}

// SendWarmLeadAlert does nothing.
func (s *NoopService) SendWarmLeadAlert(toEmail, tenantID string, notification *intake.WarmLeadNotification) error {
	return nil
}
