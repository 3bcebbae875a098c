package viewmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azure/outreach-dashboard/internal/identity"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/monitoring"
	"github.com/azure/outreach-dashboard/internal/notifications"
	"github.com/azure/outreach-dashboard/internal/records"
	"github.com/azure/outreach-dashboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brt = time.FixedZone("BRT", -3*3600)

type harness struct {
	store  *storage.SQLStore
	cache  *ViewCache
	social *SocialDashboard
	emails *EmailDashboard
}

func newHarness(t *testing.T, ids identity.Provider, exporter *Exporter) *harness {
	t.Helper()
	store, err := storage.NewSQLStore(storage.DriverModernc, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if exporter == nil {
		exporter = NewExporter(notifications.TextRenderer{}, nil, nil, brt)
	}

	cache := NewViewCache()
	return &harness{
		store:  store,
		cache:  cache,
		social: NewSocialDashboard(monitoring.NewPublicationService(records.NewPublications(store), ids, brt), cache, exporter),
		emails: NewEmailDashboard(monitoring.NewEmailService(records.NewEmails(store), ids, brt), cache),
	}
}

func march(day, hour, min int) time.Time {
	return time.Date(2024, 3, day, hour, min, 0, 0, brt)
}

func publication(at time.Time, topic string) models.PublicationInput {
	return models.PublicationInput{PublishedAt: at, Link: "https://instagram.com/p/" + topic, Topic: topic, Text: "texto sobre " + topic}
}

func TestSocialDashboard_CreateRefreshesFilteredViews(t *testing.T) {
	ctx := identity.WithActor(context.Background(), "user-1")
	h := newHarness(t, identity.ContextProvider{}, nil)

	filters, err := models.ParseFilters("2024-03-01", "2024-03-07")
	require.NoError(t, err)
	h.social.ApplyFilters(filters)

	before, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Stats.Total)
	require.Len(t, before.Trend, 7)
	assert.Equal(t, StateReady, before.Views.Stats.State)

	_, err = h.social.CreatePost(ctx, publication(march(1, 23, 30), "saude"))
	require.NoError(t, err)

	views := h.social.Views()
	assert.Equal(t, StateLoading, views.Stats.State, "stats must be refetched after a create")
	assert.Equal(t, StateLoading, views.Trend.State)
	assert.Equal(t, StateLoading, views.Posts.State)

	after, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Stats.Total)
	assert.Equal(t, 1, after.Trend[0].Count, "23:30 local lands on the local day")
	assert.Equal(t, models.Date{Year: 2024, Month: time.March, Day: 1}, after.Trend[0].Date)
	require.Len(t, after.Posts, 1)
	assert.False(t, after.Superseded)
}

func TestSocialDashboard_RefreshHitsCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	_, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	misses := h.cache.Stats().Misses

	_, err = h.social.Refresh(ctx)
	require.NoError(t, err)
	stats := h.cache.Stats()
	assert.Equal(t, misses, stats.Misses)
	assert.Equal(t, int64(3), stats.Hits)
}

func TestSocialDashboard_UpdateOutsidePeriodShrinksStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	filters, err := models.ParseFilters("2024-03-01", "2024-03-07")
	require.NoError(t, err)
	h.social.ApplyFilters(filters)

	created, err := h.social.CreatePosts(ctx, []models.PublicationInput{
		publication(march(2, 10, 0), "a"),
		publication(march(3, 10, 0), "b"),
	})
	require.NoError(t, err)

	snap, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Stats.Total)

	moved := march(20, 10, 0)
	_, err = h.social.UpdatePost(ctx, created[0].ID, models.PublicationPatch{PublishedAt: &moved})
	require.NoError(t, err)

	snap, err = h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.Total)
	assert.Len(t, snap.Posts, 1)

	require.NoError(t, h.social.DeletePost(ctx, created[1].ID))
	snap, err = h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Stats.Total)
	assert.Empty(t, snap.Posts)
}

func TestSocialDashboard_UnauthenticatedCreateKeepsViews(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.ContextProvider{}, nil)

	_, err := h.social.Refresh(ctx)
	require.NoError(t, err)

	_, err = h.social.CreatePost(ctx, publication(march(1, 10, 0), "a"))
	assert.True(t, errors.Is(err, models.ErrUnauthenticated))
	assert.Equal(t, StateReady, h.social.Views().Stats.State)
	assert.False(t, h.social.Views().IsCreating)

	posts, err := h.store.ListPublications(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSocialDashboard_FilterChangeUsesNewKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	_, err := h.social.CreatePosts(ctx, []models.PublicationInput{
		publication(march(2, 10, 0), "a"),
		publication(march(15, 10, 0), "b"),
	})
	require.NoError(t, err)

	all, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Stats.Total)

	filters, err := models.ParseFilters("2024-03-10", "2024-03-20")
	require.NoError(t, err)
	h.social.ApplyFilters(filters)

	filtered, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Stats.Total)
	assert.Len(t, filtered.Trend, 11)

	h.social.ClearFilters()
	cleared, err := h.social.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared.Stats.Total)
	assert.Len(t, cleared.Trend, 7)
}

func TestSocialDashboard_ExportNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	_, err := h.social.ExportReport(ctx)
	assert.True(t, errors.Is(err, models.ErrNothingToExport))
}

func TestEmailDashboard_ReclassifyPartialFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	created, err := h.emails.CreateEmails(ctx, []models.EmailInput{
		{Recipient: "a@example.com", SentAt: march(1, 9, 0)},
		{Recipient: "b@example.com", SentAt: march(2, 9, 0)},
	})
	require.NoError(t, err)

	before, err := h.emails.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStats{Total: 2, Classified: 0, Pending: 2}, before.Stats)
	assert.Len(t, before.Pending, 2)
	assert.Empty(t, before.ByState)

	updated, err := h.emails.Reclassify(ctx, []models.ReclassifyPatch{
		{ID: created[0].ID, State: "SP", Municipality: "Campinas"},
		{ID: "missing", State: "RJ", Municipality: "Niterói"},
	})
	require.Error(t, err)
	var batchErr *models.PartialBatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, []string{"missing"}, batchErr.FailedIDs())
	assert.True(t, errors.Is(batchErr.Failures[0].Err, models.ErrNotFound))
	require.Len(t, updated, 1)

	after, err := h.emails.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStats{Total: 2, Classified: 1, Pending: 1}, after.Stats)
	assert.Len(t, after.Pending, 1)
	assert.Equal(t, []models.GroupCount{{Key: "SP", Count: 1}}, after.ByState)
}

func TestEmailDashboard_StatsIgnoreFilter(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	_, err := h.emails.CreateEmails(ctx, []models.EmailInput{
		{Recipient: "a@example.com", SentAt: march(1, 9, 0), State: "SP", Municipality: "Santos", Classified: true},
		{Recipient: "a@example.com", SentAt: march(2, 9, 0)},
		{Recipient: "b@example.com", SentAt: march(25, 9, 0)},
	})
	require.NoError(t, err)

	filters, err := models.ParseFilters("2024-03-01", "2024-03-07")
	require.NoError(t, err)
	h.emails.ApplyFilters(filters)

	snap, err := h.emails.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Emails, 2)
	assert.Equal(t, 3, snap.Stats.Total, "email stats cover every stored email")
	assert.Equal(t, []models.GroupCount{{Key: "a@example.com", Count: 2}, {Key: "b@example.com", Count: 1}}, snap.TopRecipients)
}

func TestEmailDashboard_UpdateRefreshesPendingRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	email, err := h.emails.CreateEmail(ctx, models.EmailInput{Subject: "old", Recipient: "a@example.com", SentAt: march(1, 9, 0)})
	require.NoError(t, err)
	pending, err := h.emails.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "old", pending[0].Subject)

	subject, recipient, sentAt := "new", "b@example.com", march(2, 10, 0)
	_, err = h.emails.UpdateEmail(ctx, email.ID, models.EmailPatch{Subject: &subject, Recipient: &recipient, SentAt: &sentAt})
	require.NoError(t, err)

	pending, err = h.emails.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].Subject)
	assert.Equal(t, "b@example.com", pending[0].Recipient)
	assert.True(t, sentAt.Equal(pending[0].SentAt))
}

func TestEmailDashboard_SubjectUpdateKeepsAggregates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, identity.Static("user-1"), nil)

	email, err := h.emails.CreateEmail(ctx, models.EmailInput{Recipient: "a@example.com", SentAt: march(1, 9, 0)})
	require.NoError(t, err)
	_, err = h.emails.Refresh(ctx)
	require.NoError(t, err)

	subject := "Ofício 12"
	updated, err := h.emails.UpdateEmail(ctx, email.ID, models.EmailPatch{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, "Ofício 12", updated.Subject)

	views := h.emails.Views()
	assert.Equal(t, StateReady, views.Stats.State)
	assert.Equal(t, StateReady, views.TopRecipients.State)
	assert.Equal(t, StateLoading, views.Emails.State)
	assert.Equal(t, StateLoading, views.Pending.State)

	pending, err := h.emails.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ofício 12", pending[0].Subject)

	require.NoError(t, h.emails.DeleteEmail(ctx, email.ID))
	assert.Equal(t, StateLoading, h.emails.Views().Stats.State)
}
