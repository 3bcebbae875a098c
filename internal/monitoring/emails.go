package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/azure/outreach-dashboard/internal/analytics"
	"github.com/azure/outreach-dashboard/internal/identity"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/records"
	"github.com/sirupsen/logrus"
)

// EmailService filters, aggregates and mutates emails. Unlike publications,
// email stats and rankings always cover every stored email, regardless of
// the period the list is filtered on.
type EmailService struct {
	records  *records.Emails
	identity identity.Provider
	location *time.Location
	now      func() time.Time
}

// NewEmailService creates an email service whose calendar days are read in loc
func NewEmailService(repo *records.Emails, ids identity.Provider, loc *time.Location) *EmailService {
	if loc == nil {
		loc = time.Local
	}
	return &EmailService{
		records:  repo,
		identity: ids,
		location: loc,
		now:      time.Now,
	}
}

// GetAll returns every email, newest first
func (s *EmailService) GetAll(ctx context.Context) ([]models.Email, error) {
	return s.records.All(ctx)
}

// GetFiltered returns the emails of the active period, newest first, or all
// of them when no period is set.
func (s *EmailService) GetFiltered(ctx context.Context, filters models.Filters) ([]models.Email, error) {
	r, ok := filters.Range()
	if !ok {
		emails, err := s.records.All(ctx)
		if err != nil {
			return nil, err
		}
		return analytics.FilterByRange(emails, nil, analytics.EmailTime, s.location), nil
	}

	from, to := r.Bounds(s.location)
	emails, err := s.records.Between(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return analytics.FilterByRange(emails, &r, analytics.EmailTime, s.location), nil
}

// GetPending returns the unclassified emails, newest first
func (s *EmailService) GetPending(ctx context.Context) ([]models.Email, error) {
	emails, err := s.records.Pending(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.FilterByRange(emails, nil, analytics.EmailTime, s.location), nil
}

// GetByID returns models.ErrNotFound for an unknown id
func (s *EmailService) GetByID(ctx context.Context, id string) (models.Email, error) {
	email, err := s.records.ByID(ctx, id)
	if err != nil {
		return models.Email{}, err
	}
	if email == nil {
		return models.Email{}, fmt.Errorf("email %s: %w", id, models.ErrNotFound)
	}
	return *email, nil
}

// Create stores an email owned by the current actor
func (s *EmailService) Create(ctx context.Context, in models.EmailInput) (models.Email, error) {
	owner, ok := s.identity.ActorID(ctx)
	if !ok {
		return models.Email{}, models.ErrUnauthenticated
	}

	email, err := s.records.Create(ctx, in, owner)
	if err != nil {
		logrus.Errorf("Failed to create email: %v", err)
		return models.Email{}, err
	}

	logrus.Infof("Email %s created by %s", email.ID, owner)
	return email, nil
}

// CreateMany stores a batch of emails owned by the current actor. The batch
// is written atomically by the store.
func (s *EmailService) CreateMany(ctx context.Context, ins []models.EmailInput) ([]models.Email, error) {
	owner, ok := s.identity.ActorID(ctx)
	if !ok {
		return nil, models.ErrUnauthenticated
	}

	emails, err := s.records.CreateMany(ctx, ins, owner)
	if err != nil {
		logrus.Errorf("Failed to create %d emails: %v", len(ins), err)
		return nil, err
	}

	logrus.Infof("%d emails created by %s", len(emails), owner)
	return emails, nil
}

// Update patches the given fields of an email
func (s *EmailService) Update(ctx context.Context, id string, patch models.EmailPatch) (models.Email, error) {
	email, err := s.records.Update(ctx, id, patch)
	if err != nil {
		logrus.Errorf("Failed to update email %s: %v", id, err)
		return models.Email{}, err
	}

	logrus.Infof("Email %s updated", id)
	return email, nil
}

// Delete removes an email
func (s *EmailService) Delete(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, id); err != nil {
		logrus.Errorf("Failed to delete email %s: %v", id, err)
		return err
	}

	logrus.Infof("Email %s deleted", id)
	return nil
}

// BatchReclassify applies every patch concurrently. Each email gets
// classificado = estado != "" && municipio != "". Patches that succeed stay
// applied when others fail; the failures come back as a
// *models.PartialBatchError in patch order.
func (s *EmailService) BatchReclassify(ctx context.Context, patches []models.ReclassifyPatch) ([]models.Email, error) {
	if len(patches) == 0 {
		return []models.Email{}, nil
	}

	type outcome struct {
		email models.Email
		err   error
	}
	outcomes := make([]outcome, len(patches))

	var wg sync.WaitGroup
	for i, patch := range patches {
		wg.Add(1)
		go func(i int, p models.ReclassifyPatch) {
			defer wg.Done()
			email, err := s.records.Update(ctx, p.ID, p.EmailPatch())
			outcomes[i] = outcome{email: email, err: err}
		}(i, patch)
	}
	wg.Wait()

	updated := make([]models.Email, 0, len(patches))
	var failures []models.ItemFailure
	for i, o := range outcomes {
		if o.err != nil {
			logrus.Errorf("Failed to reclassify email %s: %v", patches[i].ID, o.err)
			failures = append(failures, models.ItemFailure{ID: patches[i].ID, Err: o.err})
			continue
		}
		updated = append(updated, o.email)
	}

	logrus.Infof("Reclassified %d of %d emails", len(updated), len(patches))
	if len(failures) > 0 {
		return updated, &models.PartialBatchError{Total: len(patches), Failures: failures}
	}
	return updated, nil
}

// Stats counts classified and pending emails across the whole store
func (s *EmailService) Stats(ctx context.Context) (models.EmailStats, error) {
	emails, err := s.records.All(ctx)
	if err != nil {
		return models.EmailStats{}, err
	}
	return analytics.EmailStats(emails), nil
}

// ByState ranks the states with the most emails
func (s *EmailService) ByState(ctx context.Context) ([]models.GroupCount, error) {
	emails, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.TopN(emails, analytics.EmailState, analytics.StateTopN), nil
}

// TopRecipients ranks the most frequent recipients
func (s *EmailService) TopRecipients(ctx context.Context) ([]models.GroupCount, error) {
	emails, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.TopN(emails, analytics.EmailRecipient, analytics.RecipientTopN), nil
}

// Trend returns the daily series for the active period, or for the last
// seven local days when no period is set.
func (s *EmailService) Trend(ctx context.Context, filters models.Filters) ([]models.TrendPoint, error) {
	r, ok := filters.Range()
	if !ok {
		r = s.DefaultWindow()
	}

	from, to := r.Bounds(s.location)
	emails, err := s.records.Between(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return analytics.DailyTrend(r, emails, analytics.EmailTime, s.location), nil
}

// DefaultWindow is the trend period used when no filter is active
func (s *EmailService) DefaultWindow() models.DateRange {
	return analytics.DefaultWindow(s.now(), s.location)
}
