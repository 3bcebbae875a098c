// Package records is the typed access layer over the record store. It adds
// nothing but owner stamping and error classification: every store failure
// comes back wrapped in models.ErrStoreUnavailable with its cause attached.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/storage"
)

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

// Publications gives typed access to the publication store
type Publications struct {
	store storage.PublicationStore
}

// NewPublications wraps store
func NewPublications(store storage.PublicationStore) *Publications {
	return &Publications{store: store}
}

func (r *Publications) All(ctx context.Context) ([]models.Publication, error) {
	posts, err := r.store.ListPublications(ctx)
	return posts, classify("list publications", err)
}

// Between returns publications with from <= data_publicacao < to
func (r *Publications) Between(ctx context.Context, from, to time.Time) ([]models.Publication, error) {
	posts, err := r.store.ListPublicationsBetween(ctx, from, to)
	return posts, classify("list publications by period", err)
}

// ByID returns nil, nil for an unknown id
func (r *Publications) ByID(ctx context.Context, id string) (*models.Publication, error) {
	post, err := r.store.GetPublication(ctx, id)
	return post, classify("get publication", err)
}

func (r *Publications) Create(ctx context.Context, in models.PublicationInput, ownerID string) (models.Publication, error) {
	post, err := r.store.InsertPublication(ctx, publicationFrom(in, ownerID))
	return post, classify("create publication", err)
}

func (r *Publications) CreateMany(ctx context.Context, ins []models.PublicationInput, ownerID string) ([]models.Publication, error) {
	batch := make([]models.Publication, len(ins))
	for i, in := range ins {
		batch[i] = publicationFrom(in, ownerID)
	}
	posts, err := r.store.InsertPublications(ctx, batch)
	return posts, classify("create publications", err)
}

func (r *Publications) Update(ctx context.Context, id string, patch models.PublicationPatch) (models.Publication, error) {
	post, err := r.store.UpdatePublication(ctx, id, patch)
	return post, classify("update publication", err)
}

func (r *Publications) Delete(ctx context.Context, id string) error {
	return classify("delete publication", r.store.DeletePublication(ctx, id))
}

func publicationFrom(in models.PublicationInput, ownerID string) models.Publication {
	return models.Publication{
		UserID:      ownerID,
		PublishedAt: in.PublishedAt,
		Link:        in.Link,
		Topic:       in.Topic,
		Text:        in.Text,
	}
}

// Emails gives typed access to the email store
type Emails struct {
	store storage.EmailStore
}

// NewEmails wraps store
func NewEmails(store storage.EmailStore) *Emails {
	return &Emails{store: store}
}

func (r *Emails) All(ctx context.Context) ([]models.Email, error) {
	emails, err := r.store.ListEmails(ctx)
	return emails, classify("list emails", err)
}

// Pending returns the emails not yet classified
func (r *Emails) Pending(ctx context.Context) ([]models.Email, error) {
	emails, err := r.store.ListPendingEmails(ctx)
	return emails, classify("list pending emails", err)
}

// Between returns emails with from <= data_envio < to
func (r *Emails) Between(ctx context.Context, from, to time.Time) ([]models.Email, error) {
	emails, err := r.store.ListEmailsBetween(ctx, from, to)
	return emails, classify("list emails by period", err)
}

// ByID returns nil, nil for an unknown id
func (r *Emails) ByID(ctx context.Context, id string) (*models.Email, error) {
	email, err := r.store.GetEmail(ctx, id)
	return email, classify("get email", err)
}

func (r *Emails) Create(ctx context.Context, in models.EmailInput, ownerID string) (models.Email, error) {
	email, err := r.store.InsertEmail(ctx, emailFrom(in, ownerID))
	return email, classify("create email", err)
}

func (r *Emails) CreateMany(ctx context.Context, ins []models.EmailInput, ownerID string) ([]models.Email, error) {
	batch := make([]models.Email, len(ins))
	for i, in := range ins {
		batch[i] = emailFrom(in, ownerID)
	}
	emails, err := r.store.InsertEmails(ctx, batch)
	return emails, classify("create emails", err)
}

func (r *Emails) Update(ctx context.Context, id string, patch models.EmailPatch) (models.Email, error) {
	email, err := r.store.UpdateEmail(ctx, id, patch)
	return email, classify("update email", err)
}

func (r *Emails) Delete(ctx context.Context, id string) error {
	return classify("delete email", r.store.DeleteEmail(ctx, id))
}

func emailFrom(in models.EmailInput, ownerID string) models.Email {
	return models.Email{
		UserID:       ownerID,
		Recipient:    in.Recipient,
		Subject:      in.Subject,
		SentAt:       in.SentAt,
		State:        in.State,
		Municipality: in.Municipality,
		Classified:   in.Classified,
	}
}
