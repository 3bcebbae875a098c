package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
)

// ArchivedReport describes one rendered report kept in an archive
type ArchivedReport struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ReportArchive keeps rendered reports by name. Listings are newest first;
// reading or deleting a missing name fails with models.ErrNotFound.
type ReportArchive interface {
	Store(ctx context.Context, name, contentType string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ArchivedReport, error)
	Delete(ctx context.Context, name string) error
}

// checkArchiveName rejects names that are not a single path element
func checkArchiveName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid report name %q: %w", name, models.ErrValidation)
	}
	return nil
}

// newestFirst orders reports by name descending; names start with the
// generation timestamp.
func newestFirst(reports []ArchivedReport) {
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name > reports[j].Name })
}

// PublicationStore is the record store for social media publications.
// Listings are ordered by data_publicacao, newest first. Range queries are
// half-open: from <= data_publicacao < to.
type PublicationStore interface {
	ListPublications(ctx context.Context) ([]models.Publication, error)
	ListPublicationsBetween(ctx context.Context, from, to time.Time) ([]models.Publication, error)
	GetPublication(ctx context.Context, id string) (*models.Publication, error)
	InsertPublication(ctx context.Context, p models.Publication) (models.Publication, error)
	InsertPublications(ctx context.Context, ps []models.Publication) ([]models.Publication, error)
	UpdatePublication(ctx context.Context, id string, patch models.PublicationPatch) (models.Publication, error)
	DeletePublication(ctx context.Context, id string) error
}

// EmailStore is the record store for inbound emails. Listings are ordered by
// data_envio, newest first. Range queries are half-open.
type EmailStore interface {
	ListEmails(ctx context.Context) ([]models.Email, error)
	ListPendingEmails(ctx context.Context) ([]models.Email, error)
	ListEmailsBetween(ctx context.Context, from, to time.Time) ([]models.Email, error)
	GetEmail(ctx context.Context, id string) (*models.Email, error)
	InsertEmail(ctx context.Context, e models.Email) (models.Email, error)
	InsertEmails(ctx context.Context, es []models.Email) ([]models.Email, error)
	UpdateEmail(ctx context.Context, id string, patch models.EmailPatch) (models.Email, error)
	DeleteEmail(ctx context.Context, id string) error
}

// RecordStore serves both record domains
type RecordStore interface {
	PublicationStore
	EmailStore
	Close() error
}
