// Package email sends operational alert emails through the Resend API.
package email

import (
	"fmt"
	"os"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Client sends alert emails. A nil *Client is safe to pass around when
// alerting is not configured.
type Client struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewClient creates the alert email client. Returns nil without error when
// RESEND_API_KEY is unset, which disables alerting.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, nil
	}

	fromEmail := os.Getenv("ALERT_EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "alerts@tenuto.local"
	}

	fromName := os.Getenv("ALERT_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "Tenuto"
	}

	return &Client{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendIntegrityAlert emails a summary of a critical validation outcome.
func (c *Client) SendIntegrityAlert(toEmail string, result *deletion.ValidationResult) error {
	rows := make([]templates.IssueRow, 0, len(result.Issues))
	for _, issue := range result.Issues {
		rows = append(rows, templates.IssueRow{
			Collection:      issue.Collection,
			Description:     issue.Description,
			Severity:        string(issue.Severity),
			AffectedRecords: issue.AffectedRecords,
		})
	}

	content := templates.GetHeading("Data integrity alert") +
		templates.GetParagraph(fmt.Sprintf(
			"An integrity validation at %s finished with status %s: %d checks failed, %d warnings.",
			result.ValidatedAt.Format("2006-01-02 15:04:05 UTC"),
			result.OverallStatus, result.Failed, result.Warnings)) +
		templates.GetIssueTable(rows) +
		templates.GetParagraph("Review the issues and run a repair for the fixable ones.")

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: fmt.Sprintf("Tenuto integrity alert: %d failed checks", result.Failed),
		Html:    htmlContent,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send integrity alert via Resend: %w", err)
	}
	return nil
}
