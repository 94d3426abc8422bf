// Package templates provides email template components
package templates

import (
	"bytes"
	"html/template"
	"log"
)

// WarmLeadEmailProps carries the details shown in the staff alert email.
type WarmLeadEmailProps struct {
	ApplicationID   string
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	BusinessName    string
	AbandonedAtStep int
	TenantID        string
}

var warmLeadTemplate = template.Must(template.New("warmLeadAlert").Parse(`
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;"><strong>Warm lead detected</strong></p>
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">An applicant abandoned their funding application at step {{.AbandonedAtStep}} after granting contact consent.</p>
    <table role="presentation" border="0" cellpadding="4" cellspacing="0" style="border-collapse: collapse; font-family: Helvetica, sans-serif; font-size: 16px; margin-bottom: 16px;">
      <tr><td style="color: #9a9ea6; padding-right: 12px;">Applicant</td><td>{{.ContactName}}</td></tr>
      <tr><td style="color: #9a9ea6; padding-right: 12px;">Email</td><td>{{.ContactEmail}}</td></tr>
      <tr><td style="color: #9a9ea6; padding-right: 12px;">Phone</td><td>{{.ContactPhone}}</td></tr>
      {{if .BusinessName}}<tr><td style="color: #9a9ea6; padding-right: 12px;">Business</td><td>{{.BusinessName}}</td></tr>{{end}}
      <tr><td style="color: #9a9ea6; padding-right: 12px;">Application</td><td>{{.ApplicationID}}</td></tr>
      <tr><td style="color: #9a9ea6; padding-right: 12px;">Tenant</td><td>{{.TenantID}}</td></tr>
    </table>
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0;">Reach out while the application is still fresh.</p>`))

// GetWarmLeadEmailContent renders the body of the warm lead staff alert.
func GetWarmLeadEmailContent(props WarmLeadEmailProps) string {
	var buf bytes.Buffer
	if err := warmLeadTemplate.Execute(&buf, props); err != nil {
		log.Printf("ERROR: failed to render warm lead email: %v", err)
		return ""
	}
	return buf.String()
}
