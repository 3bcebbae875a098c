package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/azure/outreach-dashboard/internal/config"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers exported reports via the configured channels
type Service struct {
	config *config.Config
	client *resty.Client
	dialer mailSender
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// Enabled reports whether at least one delivery channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a report via every configured channel
func (s *Service) SendReport(ctx context.Context, report *models.Report, doc *Document) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(ctx, report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report, doc); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(ctx context.Context, report *models.Report) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   report.Title,
		Text:    report.Period,
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Resumo",
		Facts: []TeamsFact{
			{Name: "Total de publicações", Value: fmt.Sprintf("%d", report.Total)},
			{Name: "Gerado em", Value: report.GeneratedAt.Format("02/01/2006 15:04:05")},
		},
		Markdown: true,
	})

	if len(report.Rows) > 0 {
		limit := 5
		if len(report.Rows) < limit {
			limit = len(report.Rows)
		}

		var lines []string
		for _, row := range report.Rows[:limit] {
			lines = append(lines, fmt.Sprintf("**%s** - %s (%s)", row.Topic, row.Text, row.Date))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Publicações recentes",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildEmail(report *models.Report, doc *Document) *gomail.Message {
	subject := fmt.Sprintf("%s (%d publicações)", report.Title, report.Total)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildReportText(report))

	if doc != nil {
		data := doc.Data
		m.Attach(doc.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {doc.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}

	return m
}

func (s *Service) sendEmail(report *models.Report, doc *Document) error {
	if err := s.dialer.DialAndSend(s.buildEmail(report, doc)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
