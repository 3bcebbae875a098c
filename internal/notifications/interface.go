package notifications

import (
	"context"

	"github.com/azure/outreach-dashboard/internal/models"
)

// Document is a rendered, downloadable report
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Renderer turns a report into a document
type Renderer interface {
	Render(report *models.Report) (*Document, error)
}

// NotificationInterface defines the contract for report delivery
type NotificationInterface interface {
	SendReport(ctx context.Context, report *models.Report, doc *Document) error
	Enabled() bool
}
