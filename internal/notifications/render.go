package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        h1 { font-size: 18px; }
        .meta { color: #646464; font-size: 10px; }
        table { border-collapse: collapse; width: 100%; font-size: 8px; }
        th { background-color: #3b82f6; color: white; text-align: left; padding: 4px; }
        td { border-bottom: 1px solid #e5e7eb; padding: 4px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p class="meta">{{.Period}}</p>
    <p class="meta">Total de publicações: {{.Total}}</p>
    <p class="meta">Gerado em: {{brDateTime .GeneratedAt}}</p>
    <table>
        <thead>
            <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
        </thead>
        <tbody>
        {{range .Rows}}
            <tr><td>{{.Date}}</td><td>{{.Topic}}</td><td>{{.Text}}</td><td>{{.Link}}</td></tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>
`

var funcs = template.FuncMap{
	"brDateTime": func(t time.Time) string {
		return t.Format("02/01/2006 15:04:05")
	},
}

// HTMLRenderer renders reports as a standalone HTML page
type HTMLRenderer struct {
	tmpl *template.Template
}

// Ensure HTMLRenderer implements Renderer
var _ Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer parses the report template
func NewHTMLRenderer() (*HTMLRenderer, error) {
	t, err := template.New("report").Funcs(funcs).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &HTMLRenderer{tmpl: t}, nil
}

func (r *HTMLRenderer) Render(report *models.Report) (*Document, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return &Document{
		Filename:    report.Filename + ".html",
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// TextRenderer renders reports as plain text
type TextRenderer struct{}

// Ensure TextRenderer implements Renderer
var _ Renderer = TextRenderer{}

func (TextRenderer) Render(report *models.Report) (*Document, error) {
	return &Document{
		Filename:    report.Filename + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(buildReportText(report)),
	}, nil
}

func buildReportText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(report.Title + "\n")
	text.WriteString(strings.Repeat("=", len([]rune(report.Title))) + "\n")
	text.WriteString(report.Period + "\n")
	text.WriteString(fmt.Sprintf("Total de publicações: %d\n", report.Total))
	text.WriteString(fmt.Sprintf("Gerado em: %s\n\n", report.GeneratedAt.Format("02/01/2006 15:04:05")))

	text.WriteString(strings.Join(report.Columns, " | ") + "\n")
	for _, row := range report.Rows {
		text.WriteString(fmt.Sprintf("%s | %s | %s | %s\n", row.Date, row.Topic, row.Text, row.Link))
	}

	return text.String()
}
