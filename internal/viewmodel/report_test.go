package viewmodel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/azure/outreach-dashboard/internal/identity"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/notifications"
	"github.com/azure/outreach-dashboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(ctx context.Context, report *models.Report, doc *notifications.Document) error {
	args := m.Called(ctx, report, doc)
	return args.Error(0)
}

func (m *MockNotificationService) Enabled() bool {
	return m.Called().Bool(0)
}

func TestBuildReport(t *testing.T) {
	posts := []models.Publication{
		{
			PublishedAt: time.Date(2024, 3, 2, 2, 30, 0, 0, time.UTC),
			Topic:       "Saúde",
			Text:        strings.Repeat("a", 60),
			Link:        "https://instagram.com/p/abcdefghijklmnopqrstuvwxyz",
		},
	}
	filters, err := models.ParseFilters("2024-03-01", "2024-03-07")
	require.NoError(t, err)

	report := BuildReport(posts, filters, time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC), brt)

	assert.Equal(t, "Relatório de Publicações - Redes Sociais", report.Title)
	assert.Equal(t, "publicacoes-redes-sociais", report.Filename)
	assert.Equal(t, "Período: 01/03/2024 a 07/03/2024", report.Period)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, []string{"Data", "Tema", "Texto", "Link"}, report.Columns)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "01/03/2024", report.Rows[0].Date, "dates are shown as the viewer's day")
	assert.Equal(t, strings.Repeat("a", 50)+"...", report.Rows[0].Text)
	assert.Equal(t, "https://instagram.com/p/abcdef...", report.Rows[0].Link)
	assert.Equal(t, 9, report.GeneratedAt.Hour())

	all := BuildReport(posts, models.Filters{}, time.Now(), brt)
	assert.Equal(t, "Período: Todos", all.Period)
}

func TestExporter_ArchivesAndDelivers(t *testing.T) {
	ctx := context.Background()
	archive, err := storage.NewDirArchive(t.TempDir())
	require.NoError(t, err)

	notifier := &MockNotificationService{}
	notifier.On("Enabled").Return(true)
	notifier.On("SendReport", mock.Anything, mock.MatchedBy(func(r *models.Report) bool { return r.Total == 1 }), mock.Anything).
		Return(errors.New("webhook down"))

	exporter := NewExporter(notifications.TextRenderer{}, archive, notifier, brt)
	exporter.now = func() time.Time { return time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC) }

	h := newHarness(t, identity.Static("user-1"), exporter)
	_, err = h.social.CreatePost(ctx, publication(march(2, 10, 0), "saude"))
	require.NoError(t, err)

	doc, err := h.social.ExportReport(ctx)
	require.NoError(t, err, "delivery failures do not fail the export")
	assert.Equal(t, "publicacoes-redes-sociais.txt", doc.Filename)
	assert.Contains(t, string(doc.Data), "02/03/2024 | saude")

	archived, err := h.social.ArchivedReports(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "2024-03-08-09-00-00-all-publicacoes-redes-sociais.txt", archived[0].Name)

	data, err := h.social.ArchivedReport(ctx, archived[0].Name)
	require.NoError(t, err)
	assert.Equal(t, doc.Data, data)
	notifier.AssertExpectations(t)
}

func TestExporter_DisabledNotifier(t *testing.T) {
	notifier := &MockNotificationService{}
	notifier.On("Enabled").Return(false)

	exporter := NewExporter(notifications.TextRenderer{}, nil, notifier, brt)
	_, err := exporter.Export(context.Background(), []models.Publication{{Topic: "a", PublishedAt: time.Now()}}, models.Filters{})
	require.NoError(t, err)
	notifier.AssertNotCalled(t, "SendReport", mock.Anything, mock.Anything, mock.Anything)

	archived, err := exporter.Archived(context.Background())
	require.NoError(t, err)
	assert.Empty(t, archived)
	_, err = exporter.ArchivedReport(context.Background(), "x.html")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(exporter.DeleteArchived(context.Background(), "x.html"), models.ErrNotFound))
}
