// Package viewmodel coordinates what the dashboard shows: it owns the view
// cache, the active period filter and the mutation flags, and refetches the
// dependent views after every mutation.
package viewmodel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/monitoring"
	"github.com/azure/outreach-dashboard/internal/notifications"
	"github.com/azure/outreach-dashboard/internal/storage"
)

// SocialSnapshot is one consistent read of the publication views
type SocialSnapshot struct {
	Filters    models.Filters          `json:"filters"`
	Posts      []models.Publication    `json:"posts"`
	Trend      []models.TrendPoint     `json:"trend_data"`
	Stats      models.PublicationStats `json:"stats"`
	Views      SocialViews             `json:"views"`
	Superseded bool                    `json:"superseded"`
}

// SocialViews reports the state of every publication view and mutation
type SocialViews struct {
	Posts      ViewHandle `json:"posts"`
	Trend      ViewHandle `json:"trend"`
	Stats      ViewHandle `json:"stats"`
	IsCreating bool       `json:"is_creating"`
	IsUpdating bool       `json:"is_updating"`
	IsDeleting bool       `json:"is_deleting"`
}

// SocialDashboard is the presentation state of the publications page
type SocialDashboard struct {
	service  *monitoring.PublicationService
	cache    *ViewCache
	exporter *Exporter

	mu         sync.RWMutex
	filters    models.Filters
	generation uint64

	creating atomic.Int32
	updating atomic.Int32
	deleting atomic.Int32
}

// NewSocialDashboard creates the publications dashboard
func NewSocialDashboard(service *monitoring.PublicationService, cache *ViewCache, exporter *Exporter) *SocialDashboard {
	return &SocialDashboard{service: service, cache: cache, exporter: exporter}
}

// Filters returns the active filter
func (d *SocialDashboard) Filters() models.Filters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filters
}

// ApplyFilters replaces the active filter. Reads started under the previous
// filter finish but come back marked as superseded.
func (d *SocialDashboard) ApplyFilters(filters models.Filters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filters = filters
	d.generation++
}

// ClearFilters removes the active filter
func (d *SocialDashboard) ClearFilters() {
	d.ApplyFilters(models.Filters{})
}

func (d *SocialDashboard) current() (models.Filters, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filters, d.generation
}

func (d *SocialDashboard) key(kind monitoring.ViewKind, filters models.Filters) Key {
	return Key{Domain: models.DomainPublications, Kind: kind, Filter: filters.Signature()}
}

func (d *SocialDashboard) trendKey(filters models.Filters) Key {
	// The default window moves with the clock, so it is keyed by the days it covers.
	if _, ok := filters.Range(); !ok {
		return d.key(monitoring.ViewTrend, models.FiltersFor(d.service.DefaultWindow()))
	}
	return d.key(monitoring.ViewTrend, filters)
}

// PostsFor returns the publications matching filters
func (d *SocialDashboard) PostsFor(ctx context.Context, filters models.Filters) ([]models.Publication, error) {
	return Load(ctx, d.cache, d.key(monitoring.ViewList, filters), func(ctx context.Context) ([]models.Publication, error) {
		return d.service.GetFiltered(ctx, filters)
	})
}

// TrendFor returns the daily series for filters
func (d *SocialDashboard) TrendFor(ctx context.Context, filters models.Filters) ([]models.TrendPoint, error) {
	return Load(ctx, d.cache, d.trendKey(filters), func(ctx context.Context) ([]models.TrendPoint, error) {
		return d.service.Trend(ctx, filters)
	})
}

// StatsFor returns the stats of the publications matching filters
func (d *SocialDashboard) StatsFor(ctx context.Context, filters models.Filters) (models.PublicationStats, error) {
	return Load(ctx, d.cache, d.key(monitoring.ViewStats, filters), func(ctx context.Context) (models.PublicationStats, error) {
		return d.service.Stats(ctx, filters)
	})
}

// Views reports the state of the views for the active filter
func (d *SocialDashboard) Views() SocialViews {
	filters := d.Filters()
	return SocialViews{
		Posts:      d.cache.Handle(d.key(monitoring.ViewList, filters)),
		Trend:      d.cache.Handle(d.trendKey(filters)),
		Stats:      d.cache.Handle(d.key(monitoring.ViewStats, filters)),
		IsCreating: d.creating.Load() > 0,
		IsUpdating: d.updating.Load() > 0,
		IsDeleting: d.deleting.Load() > 0,
	}
}

// Refresh reads the list, trend and stats views of the active filter in
// parallel. The first error is returned after all three reads finish.
func (d *SocialDashboard) Refresh(ctx context.Context) (*SocialSnapshot, error) {
	filters, generation := d.current()
	snap := &SocialSnapshot{Filters: filters}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(3)
	go func() {
		defer wg.Done()
		snap.Posts, errs[0] = d.PostsFor(ctx, filters)
	}()
	go func() {
		defer wg.Done()
		snap.Trend, errs[1] = d.TrendFor(ctx, filters)
	}()
	go func() {
		defer wg.Done()
		snap.Stats, errs[2] = d.StatsFor(ctx, filters)
	}()
	wg.Wait()

	_, latest := d.current()
	snap.Superseded = latest != generation
	snap.Views = d.Views()

	for _, err := range errs {
		if err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// CreatePost stores a publication and invalidates the list, trend and stats views
func (d *SocialDashboard) CreatePost(ctx context.Context, in models.PublicationInput) (models.Publication, error) {
	d.creating.Add(1)
	defer d.creating.Add(-1)

	return Mutate(ctx, d.cache, monitoring.PublicationInvalidation(monitoring.OpCreate, nil),
		func(ctx context.Context) (models.Publication, error) {
			return d.service.Create(ctx, in)
		})
}

// CreatePosts stores a batch of publications
func (d *SocialDashboard) CreatePosts(ctx context.Context, ins []models.PublicationInput) ([]models.Publication, error) {
	d.creating.Add(1)
	defer d.creating.Add(-1)

	return Mutate(ctx, d.cache, monitoring.PublicationInvalidation(monitoring.OpCreateMany, nil),
		func(ctx context.Context) ([]models.Publication, error) {
			return d.service.CreateMany(ctx, ins)
		})
}

// UpdatePost patches a publication
func (d *SocialDashboard) UpdatePost(ctx context.Context, id string, patch models.PublicationPatch) (models.Publication, error) {
	d.updating.Add(1)
	defer d.updating.Add(-1)

	return Mutate(ctx, d.cache, monitoring.PublicationInvalidation(monitoring.OpUpdate, &patch),
		func(ctx context.Context) (models.Publication, error) {
			return d.service.Update(ctx, id, patch)
		})
}

// DeletePost removes a publication
func (d *SocialDashboard) DeletePost(ctx context.Context, id string) error {
	d.deleting.Add(1)
	defer d.deleting.Add(-1)

	_, err := Mutate(ctx, d.cache, monitoring.PublicationInvalidation(monitoring.OpDelete, nil),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, d.service.Delete(ctx, id)
		})
	return err
}

// GetPost reads a single publication; single reads are not cached
func (d *SocialDashboard) GetPost(ctx context.Context, id string) (models.Publication, error) {
	return d.service.GetByID(ctx, id)
}

// ExportReportFor renders the publications matching filters
func (d *SocialDashboard) ExportReportFor(ctx context.Context, filters models.Filters) (*notifications.Document, error) {
	posts, err := d.PostsFor(ctx, filters)
	if err != nil {
		return nil, err
	}
	return d.exporter.Export(ctx, posts, filters)
}

// ArchivedReports lists previously exported reports
func (d *SocialDashboard) ArchivedReports(ctx context.Context) ([]storage.ArchivedReport, error) {
	return d.exporter.Archived(ctx)
}

// ArchivedReport reads one previously exported report
func (d *SocialDashboard) ArchivedReport(ctx context.Context, name string) ([]byte, error) {
	return d.exporter.ArchivedReport(ctx, name)
}

// DeleteArchivedReport removes one previously exported report
func (d *SocialDashboard) DeleteArchivedReport(ctx context.Context, name string) error {
	return d.exporter.DeleteArchived(ctx, name)
}

// ExportReport renders the publications of the active filter
func (d *SocialDashboard) ExportReport(ctx context.Context) (*notifications.Document, error) {
	return d.ExportReportFor(ctx, d.Filters())
}
