package viewmodel

import (
	"context"
	"fmt"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/notifications"
	"github.com/azure/outreach-dashboard/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	reportTitle    = "Relatório de Publicações - Redes Sociais"
	reportFilename = "publicacoes-redes-sociais"
	textLimit      = 50
	linkLimit      = 30
)

var reportColumns = []string{"Data", "Tema", "Texto", "Link"}

// BuildReport lays out posts (already filtered and ordered) as report rows.
// Dates are shown as the day a viewer in loc perceives.
func BuildReport(posts []models.Publication, filters models.Filters, generatedAt time.Time, loc *time.Location) *models.Report {
	period := "Período: Todos"
	if r, ok := filters.Range(); ok {
		period = fmt.Sprintf("Período: %s a %s", models.BrazilianFormat(r.Start), models.BrazilianFormat(r.End))
	}

	rows := make([]models.ReportRow, len(posts))
	for i, p := range posts {
		rows[i] = models.ReportRow{
			Date:  models.BrazilianFormat(models.DateOf(p.PublishedAt, loc)),
			Topic: p.Topic,
			Text:  models.Truncate(p.Text, textLimit),
			Link:  models.Truncate(p.Link, linkLimit),
		}
	}

	return &models.Report{
		Title:       reportTitle,
		Filename:    reportFilename,
		GeneratedAt: generatedAt.In(loc),
		Period:      period,
		Total:       len(posts),
		Columns:     reportColumns,
		Rows:        rows,
	}
}

// Exporter renders publication reports and hands them to the optional
// archive and delivery channels.
type Exporter struct {
	renderer notifications.Renderer
	archive  storage.ReportArchive
	notifier notifications.NotificationInterface
	location *time.Location
	now      func() time.Time
}

// NewExporter creates an exporter; archive and notifier may be nil
func NewExporter(renderer notifications.Renderer, archive storage.ReportArchive, notifier notifications.NotificationInterface, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{
		renderer: renderer,
		archive:  archive,
		notifier: notifier,
		location: loc,
		now:      time.Now,
	}
}

// Export renders posts. An empty list fails with models.ErrNothingToExport
// and renders nothing. Archive and delivery failures are logged, not returned.
func (e *Exporter) Export(ctx context.Context, posts []models.Publication, filters models.Filters) (*notifications.Document, error) {
	if len(posts) == 0 {
		return nil, models.ErrNothingToExport
	}

	report := BuildReport(posts, filters, e.now(), e.location)
	doc, err := e.renderer.Render(report)
	if err != nil {
		return nil, err
	}

	if e.archive != nil {
		name := fmt.Sprintf("%s-%s-%s", report.GeneratedAt.Format("2006-01-02-15-04-05"), filters.Signature(), doc.Filename)
		if err := e.archive.Store(ctx, name, doc.ContentType, doc.Data); err != nil {
			logrus.Errorf("Failed to archive report: %v", err)
		}
	}

	if e.notifier != nil && e.notifier.Enabled() {
		if err := e.notifier.SendReport(ctx, report, doc); err != nil {
			logrus.Errorf("Failed to deliver report: %v", err)
		}
	}

	logrus.Infof("Exported report with %d publications (%s)", report.Total, filters.Signature())
	return doc, nil
}

// Archived lists the archived reports, newest first. Without an archive the
// list is empty.
func (e *Exporter) Archived(ctx context.Context) ([]storage.ArchivedReport, error) {
	if e.archive == nil {
		return []storage.ArchivedReport{}, nil
	}
	return e.archive.List(ctx, "")
}

// ArchivedReport reads one archived report
func (e *Exporter) ArchivedReport(ctx context.Context, name string) ([]byte, error) {
	if e.archive == nil {
		return nil, fmt.Errorf("report %s: %w", name, models.ErrNotFound)
	}
	return e.archive.Retrieve(ctx, name)
}

// DeleteArchived removes one archived report
func (e *Exporter) DeleteArchived(ctx context.Context, name string) error {
	if e.archive == nil {
		return fmt.Errorf("report %s: %w", name, models.ErrNotFound)
	}
	if err := e.archive.Delete(ctx, name); err != nil {
		return err
	}
	logrus.Infof("Deleted archived report %s", name)
	return nil
}
