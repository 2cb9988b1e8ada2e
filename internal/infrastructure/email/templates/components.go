// Package templates renders the HTML fragments used in alert emails.
package templates

import (
	"bytes"
	"html/template"
	"log"
)

var (
	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(
		`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.}}</p>`))

	headingTemplate = template.Must(template.New("emailHeading").Parse(
		`<h2 style="font-family: Helvetica, sans-serif; font-size: 20px; font-weight: bold; margin: 0; margin-bottom: 16px;">{{.}}</h2>`))

	issueTableTemplate = template.Must(template.New("emailIssueTable").Parse(`
    <table role="presentation" border="0" cellpadding="8" cellspacing="0" style="border-collapse: collapse; width: 100%; font-family: Helvetica, sans-serif; font-size: 14px; margin-bottom: 16px;">
      <tr style="background-color: #f4f5f6; text-align: left;">
        <th style="border: 1px solid #eaebed; padding: 8px;">Collection</th>
        <th style="border: 1px solid #eaebed; padding: 8px;">Issue</th>
        <th style="border: 1px solid #eaebed; padding: 8px;">Severity</th>
        <th style="border: 1px solid #eaebed; padding: 8px;">Records</th>
      </tr>
      {{range .}}
      <tr>
        <td style="border: 1px solid #eaebed; padding: 8px;">{{.Collection}}</td>
        <td style="border: 1px solid #eaebed; padding: 8px;">{{.Description}}</td>
        <td style="border: 1px solid #eaebed; padding: 8px; color: {{if eq .Severity "critical"}}#d0021b{{else if eq .Severity "high"}}#ec6608{{else}}#555555{{end}};">{{.Severity}}</td>
        <td style="border: 1px solid #eaebed; padding: 8px;">{{.AffectedRecords}}</td>
      </tr>
      {{end}}
    </table>`))
)

// IssueRow is one row of the alert email's issue table.
type IssueRow struct {
	Collection      string
	Description     string
	Severity        string
	AffectedRecords int
}

// GetHeading renders an escaped section heading.
func GetHeading(text string) string {
	return render(headingTemplate, text)
}

// GetParagraph renders an escaped paragraph.
func GetParagraph(text string) string {
	return render(paragraphTemplate, text)
}

// GetIssueTable renders the detected issues as an HTML table.
func GetIssueTable(rows []IssueRow) string {
	return render(issueTableTemplate, rows)
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Printf("Error executing email template %s: %v", tmpl.Name(), err)
		return ""
	}
	return buf.String()
}
