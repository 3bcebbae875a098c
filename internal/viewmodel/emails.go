package viewmodel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/monitoring"
)

const (
	globalFilter    = "all"
	rankByState     = "state"
	rankByRecipient = "recipient"
)

// EmailSnapshot is one read of the email views. Stats and rankings cover
// every stored email; only the list and the trend follow the filter.
type EmailSnapshot struct {
	Filters       models.Filters      `json:"filters"`
	Emails        []models.Email      `json:"emails"`
	Pending       []models.Email      `json:"pending"`
	Trend         []models.TrendPoint `json:"trend_data"`
	Stats         models.EmailStats   `json:"stats"`
	ByState       []models.GroupCount `json:"emails_by_state"`
	TopRecipients []models.GroupCount `json:"top_recipients"`
	Views         EmailViews          `json:"views"`
	Superseded    bool                `json:"superseded"`
}

// EmailViews reports the state of every email view and mutation
type EmailViews struct {
	Emails          ViewHandle `json:"emails"`
	Pending         ViewHandle `json:"pending"`
	Trend           ViewHandle `json:"trend"`
	Stats           ViewHandle `json:"stats"`
	ByState         ViewHandle `json:"emails_by_state"`
	TopRecipients   ViewHandle `json:"top_recipients"`
	IsCreating      bool       `json:"is_creating"`
	IsUpdating      bool       `json:"is_updating"`
	IsDeleting      bool       `json:"is_deleting"`
	IsReclassifying bool       `json:"is_reclassifying"`
}

// EmailDashboard is the presentation state of the emails page
type EmailDashboard struct {
	service *monitoring.EmailService
	cache   *ViewCache

	mu         sync.RWMutex
	filters    models.Filters
	generation uint64

	creating      atomic.Int32
	updating      atomic.Int32
	deleting      atomic.Int32
	reclassifying atomic.Int32
}

// NewEmailDashboard creates the emails dashboard
func NewEmailDashboard(service *monitoring.EmailService, cache *ViewCache) *EmailDashboard {
	return &EmailDashboard{service: service, cache: cache}
}

// Filters returns the active filter
func (d *EmailDashboard) Filters() models.Filters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filters
}

// ApplyFilters replaces the active filter
func (d *EmailDashboard) ApplyFilters(filters models.Filters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filters = filters
	d.generation++
}

// ClearFilters removes the active filter
func (d *EmailDashboard) ClearFilters() {
	d.ApplyFilters(models.Filters{})
}

func (d *EmailDashboard) current() (models.Filters, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filters, d.generation
}

func emailKey(kind monitoring.ViewKind, filter string) Key {
	return Key{Domain: models.DomainEmails, Kind: kind, Filter: filter}
}

func (d *EmailDashboard) trendKey(filters models.Filters) Key {
	if _, ok := filters.Range(); !ok {
		return emailKey(monitoring.ViewTrend, models.FiltersFor(d.service.DefaultWindow()).Signature())
	}
	return emailKey(monitoring.ViewTrend, filters.Signature())
}

// EmailsFor returns the emails matching filters
func (d *EmailDashboard) EmailsFor(ctx context.Context, filters models.Filters) ([]models.Email, error) {
	return Load(ctx, d.cache, emailKey(monitoring.ViewList, filters.Signature()), func(ctx context.Context) ([]models.Email, error) {
		return d.service.GetFiltered(ctx, filters)
	})
}

// Pending returns the unclassified emails
func (d *EmailDashboard) Pending(ctx context.Context) ([]models.Email, error) {
	return Load(ctx, d.cache, emailKey(monitoring.ViewPending, globalFilter), d.service.GetPending)
}

// TrendFor returns the daily series for filters
func (d *EmailDashboard) TrendFor(ctx context.Context, filters models.Filters) ([]models.TrendPoint, error) {
	return Load(ctx, d.cache, d.trendKey(filters), func(ctx context.Context) ([]models.TrendPoint, error) {
		return d.service.Trend(ctx, filters)
	})
}

// Stats returns the classification counts of every stored email
func (d *EmailDashboard) Stats(ctx context.Context) (models.EmailStats, error) {
	return Load(ctx, d.cache, emailKey(monitoring.ViewStats, globalFilter), d.service.Stats)
}

// ByState returns the states with the most emails
func (d *EmailDashboard) ByState(ctx context.Context) ([]models.GroupCount, error) {
	return Load(ctx, d.cache, emailKey(monitoring.ViewRanking, rankByState), d.service.ByState)
}

// TopRecipients returns the most frequent recipients
func (d *EmailDashboard) TopRecipients(ctx context.Context) ([]models.GroupCount, error) {
	return Load(ctx, d.cache, emailKey(monitoring.ViewRanking, rankByRecipient), d.service.TopRecipients)
}

// GetEmail reads a single email; single reads are not cached
func (d *EmailDashboard) GetEmail(ctx context.Context, id string) (models.Email, error) {
	return d.service.GetByID(ctx, id)
}

// Views reports the state of the views for the active filter
func (d *EmailDashboard) Views() EmailViews {
	filters := d.Filters()
	return EmailViews{
		Emails:          d.cache.Handle(emailKey(monitoring.ViewList, filters.Signature())),
		Pending:         d.cache.Handle(emailKey(monitoring.ViewPending, globalFilter)),
		Trend:           d.cache.Handle(d.trendKey(filters)),
		Stats:           d.cache.Handle(emailKey(monitoring.ViewStats, globalFilter)),
		ByState:         d.cache.Handle(emailKey(monitoring.ViewRanking, rankByState)),
		TopRecipients:   d.cache.Handle(emailKey(monitoring.ViewRanking, rankByRecipient)),
		IsCreating:      d.creating.Load() > 0,
		IsUpdating:      d.updating.Load() > 0,
		IsDeleting:      d.deleting.Load() > 0,
		IsReclassifying: d.reclassifying.Load() > 0,
	}
}

// Refresh reads every email view in parallel
func (d *EmailDashboard) Refresh(ctx context.Context) (*EmailSnapshot, error) {
	filters, generation := d.current()
	snap := &EmailSnapshot{Filters: filters}

	reads := []func() error{
		func() (err error) {
			snap.Emails, err = d.EmailsFor(ctx, filters)
			return
		},
		func() (err error) {
			snap.Pending, err = d.Pending(ctx)
			return
		},
		func() (err error) {
			snap.Trend, err = d.TrendFor(ctx, filters)
			return
		},
		func() (err error) {
			snap.Stats, err = d.Stats(ctx)
			return
		},
		func() (err error) {
			snap.ByState, err = d.ByState(ctx)
			return
		},
		func() (err error) {
			snap.TopRecipients, err = d.TopRecipients(ctx)
			return
		},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(reads))
	for i, read := range reads {
		wg.Add(1)
		go func(i int, read func() error) {
			defer wg.Done()
			errs[i] = read()
		}(i, read)
	}
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

// CreateEmail stores an email and invalidates every email view
func (d *EmailDashboard) CreateEmail(ctx context.Context, in models.EmailInput) (models.Email, error) {
	d.creating.Add(1)
	defer d.creating.Add(-1)

	return Mutate(ctx, d.cache, monitoring.EmailInvalidation(monitoring.OpCreate, nil),
		func(ctx context.Context) (models.Email, error) {
			return d.service.Create(ctx, in)
		})
}

// CreateEmails stores a batch of emails
func (d *EmailDashboard) CreateEmails(ctx context.Context, ins []models.EmailInput) ([]models.Email, error) {
	d.creating.Add(1)
	defer d.creating.Add(-1)

	return Mutate(ctx, d.cache, monitoring.EmailInvalidation(monitoring.OpCreateMany, nil),
		func(ctx context.Context) ([]models.Email, error) {
			return d.service.CreateMany(ctx, ins)
		})
}

// UpdateEmail patches an email
func (d *EmailDashboard) UpdateEmail(ctx context.Context, id string, patch models.EmailPatch) (models.Email, error) {
	d.updating.Add(1)
	defer d.updating.Add(-1)

	return Mutate(ctx, d.cache, monitoring.EmailInvalidation(monitoring.OpUpdate, &patch),
		func(ctx context.Context) (models.Email, error) {
			return d.service.Update(ctx, id, patch)
		})
}

// DeleteEmail removes an email
func (d *EmailDashboard) DeleteEmail(ctx context.Context, id string) error {
	d.deleting.Add(1)
	defer d.deleting.Add(-1)

	_, err := Mutate(ctx, d.cache, monitoring.EmailInvalidation(monitoring.OpDelete, nil),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, d.service.Delete(ctx, id)
		})
	return err
}

// Reclassify applies a batch of state and municipality patches. Views are
// invalidated even when only part of the batch succeeded.
func (d *EmailDashboard) Reclassify(ctx context.Context, patches []models.ReclassifyPatch) ([]models.Email, error) {
	d.reclassifying.Add(1)
	defer d.reclassifying.Add(-1)

	return Mutate(ctx, d.cache, monitoring.EmailInvalidation(monitoring.OpReclassify, nil),
		func(ctx context.Context) ([]models.Email, error) {
			return d.service.BatchReclassify(ctx, patches)
		})
}
