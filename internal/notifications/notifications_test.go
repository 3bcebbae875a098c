package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/azure/outreach-dashboard/internal/config"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	messages []*gomail.Message
	err      error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.messages = append(r.messages, m...)
	return r.err
}

func sampleReport(rows int) *models.Report {
	report := &models.Report{
		Title:       "Relatório de Publicações - Redes Sociais",
		Filename:    "publicacoes-redes-sociais",
		GeneratedAt: time.Date(2024, 3, 8, 14, 5, 9, 0, time.UTC),
		Period:      "Período: 01/03/2024 a 07/03/2024",
		Total:       rows,
		Columns:     []string{"Data", "Tema", "Texto", "Link"},
	}
	for i := 0; i < rows; i++ {
		report.Rows = append(report.Rows, models.ReportRow{
			Date:  "01/03/2024",
			Topic: "Saúde",
			Text:  "<b>vacinação</b>",
			Link:  "https://instagram.com/p/...",
		})
	}
	return report
}

func TestHTMLRenderer(t *testing.T) {
	renderer, err := NewHTMLRenderer()
	require.NoError(t, err)

	doc, err := renderer.Render(sampleReport(2))
	require.NoError(t, err)

	html := string(doc.Data)
	assert.Equal(t, "publicacoes-redes-sociais.html", doc.Filename)
	assert.Contains(t, doc.ContentType, "text/html")
	assert.Contains(t, html, "Relatório de Publicações - Redes Sociais")
	assert.Contains(t, html, "Período: 01/03/2024 a 07/03/2024")
	assert.Contains(t, html, "Total de publicações: 2")
	assert.Contains(t, html, "Gerado em: 08/03/2024 14:05:09")
	assert.Contains(t, html, "&lt;b&gt;vacinação&lt;/b&gt;", "cell content is escaped")
	assert.Equal(t, 2, strings.Count(html, "<tr><td>"))
}

func TestTextRenderer(t *testing.T) {
	doc, err := TextRenderer{}.Render(sampleReport(1))
	require.NoError(t, err)

	text := string(doc.Data)
	assert.Equal(t, "publicacoes-redes-sociais.txt", doc.Filename)
	assert.Contains(t, text, "Data | Tema | Texto | Link")
	assert.Contains(t, text, "01/03/2024 | Saúde | <b>vacinação</b>")
}

func TestService_Enabled(t *testing.T) {
	assert.False(t, NewService(&config.Config{}).Enabled())
	assert.True(t, NewService(&config.Config{TeamsWebhookURL: "http://hook"}).Enabled())
	assert.True(t, NewService(&config.Config{NotificationEmail: "ops@example.com"}).Enabled())
}

func TestService_SendReportToTeams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	require.NoError(t, service.SendReport(context.Background(), sampleReport(8), nil))

	assert.Equal(t, "MessageCard", received.Type)
	assert.Equal(t, "Relatório de Publicações - Redes Sociais", received.Title)
	require.Len(t, received.Sections, 2)
	assert.Equal(t, "8", received.Sections[0].Facts[0].Value)
	assert.Equal(t, 5, strings.Count(received.Sections[1].ActivityText, "**Saúde**"), "only the first rows are listed")
}

func TestService_SendReportTeamsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	err := service.SendReport(context.Background(), sampleReport(1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams")
}

func TestService_SendReportByEmail(t *testing.T) {
	sender := &recordingSender{}
	service := NewService(&config.Config{
		NotificationEmail: "ops@example.com",
		SMTPUsername:      "dashboard@example.com",
	})
	service.dialer = sender

	doc := &Document{Filename: "publicacoes-redes-sociais.html", ContentType: "text/html; charset=utf-8", Data: []byte("<html></html>")}
	require.NoError(t, service.SendReport(context.Background(), sampleReport(3), doc))

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("To"))
	subject := msg.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "Relatório de Publicações - Redes Sociais (3 publicações)", decoded)

	var raw strings.Builder
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "publicacoes-redes-sociais.html")

	sender.err = errors.New("smtp down")
	err = service.SendReport(context.Background(), sampleReport(1), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email")
}
