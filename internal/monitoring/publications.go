package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/azure/outreach-dashboard/internal/analytics"
	"github.com/azure/outreach-dashboard/internal/identity"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/records"
	"github.com/sirupsen/logrus"
)

// PublicationService filters, aggregates and mutates publications
type PublicationService struct {
	records  *records.Publications
	identity identity.Provider
	location *time.Location
	now      func() time.Time
}

// NewPublicationService creates a publication service whose calendar days
// are read in loc.
func NewPublicationService(repo *records.Publications, ids identity.Provider, loc *time.Location) *PublicationService {
	if loc == nil {
		loc = time.Local
	}
	return &PublicationService{
		records:  repo,
		identity: ids,
		location: loc,
		now:      time.Now,
	}
}

// Location returns the viewer location used for calendar days
func (s *PublicationService) Location() *time.Location {
	return s.location
}

// GetAll returns every publication, newest first
func (s *PublicationService) GetAll(ctx context.Context) ([]models.Publication, error) {
	return s.records.All(ctx)
}

// GetFiltered returns the publications of the active period, newest first, or
// all of them when no period is set.
func (s *PublicationService) GetFiltered(ctx context.Context, filters models.Filters) ([]models.Publication, error) {
	r, ok := filters.Range()
	if !ok {
		posts, err := s.records.All(ctx)
		if err != nil {
			return nil, err
		}
		return analytics.FilterByRange(posts, nil, analytics.PublicationTime, s.location), nil
	}

	from, to := r.Bounds(s.location)
	posts, err := s.records.Between(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return analytics.FilterByRange(posts, &r, analytics.PublicationTime, s.location), nil
}

// GetByID returns models.ErrNotFound for an unknown id
func (s *PublicationService) GetByID(ctx context.Context, id string) (models.Publication, error) {
	post, err := s.records.ByID(ctx, id)
	if err != nil {
		return models.Publication{}, err
	}
	if post == nil {
		return models.Publication{}, fmt.Errorf("publication %s: %w", id, models.ErrNotFound)
	}
	return *post, nil
}

// Create stores a publication owned by the current actor
func (s *PublicationService) Create(ctx context.Context, in models.PublicationInput) (models.Publication, error) {
	owner, ok := s.identity.ActorID(ctx)
	if !ok {
		return models.Publication{}, models.ErrUnauthenticated
	}

	post, err := s.records.Create(ctx, in, owner)
	if err != nil {
		logrus.Errorf("Failed to create publication: %v", err)
		return models.Publication{}, err
	}

	logrus.Infof("Publication %s created by %s", post.ID, owner)
	return post, nil
}

// CreateMany stores a batch of publications owned by the current actor. The
// batch is written atomically by the store.
func (s *PublicationService) CreateMany(ctx context.Context, ins []models.PublicationInput) ([]models.Publication, error) {
	owner, ok := s.identity.ActorID(ctx)
	if !ok {
		return nil, models.ErrUnauthenticated
	}

	posts, err := s.records.CreateMany(ctx, ins, owner)
	if err != nil {
		logrus.Errorf("Failed to create %d publications: %v", len(ins), err)
		return nil, err
	}

	logrus.Infof("%d publications created by %s", len(posts), owner)
	return posts, nil
}

// Update patches the given fields of a publication
func (s *PublicationService) Update(ctx context.Context, id string, patch models.PublicationPatch) (models.Publication, error) {
	post, err := s.records.Update(ctx, id, patch)
	if err != nil {
		logrus.Errorf("Failed to update publication %s: %v", id, err)
		return models.Publication{}, err
	}

	logrus.Infof("Publication %s updated", id)
	return post, nil
}

// Delete removes a publication
func (s *PublicationService) Delete(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, id); err != nil {
		logrus.Errorf("Failed to delete publication %s: %v", id, err)
		return err
	}

	logrus.Infof("Publication %s deleted", id)
	return nil
}

// Trend returns the daily series for the active period, or for the last
// seven local days when no period is set.
func (s *PublicationService) Trend(ctx context.Context, filters models.Filters) ([]models.TrendPoint, error) {
	r, ok := filters.Range()
	if !ok {
		r = s.DefaultWindow()
	}
	return s.TrendByPeriod(ctx, r)
}

// TrendByPeriod returns one point per local calendar day of r
func (s *PublicationService) TrendByPeriod(ctx context.Context, r models.DateRange) ([]models.TrendPoint, error) {
	from, to := r.Bounds(s.location)
	posts, err := s.records.Between(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return analytics.DailyTrend(r, posts, analytics.PublicationTime, s.location), nil
}

// Stats summarizes the publications matching filters
func (s *PublicationService) Stats(ctx context.Context, filters models.Filters) (models.PublicationStats, error) {
	posts, err := s.GetFiltered(ctx, filters)
	if err != nil {
		return models.PublicationStats{}, err
	}
	return analytics.PublicationStats(posts), nil
}

// DefaultWindow is the trend period used when no filter is active
func (s *PublicationService) DefaultWindow() models.DateRange {
	return analytics.DefaultWindow(s.now(), s.location)
}
