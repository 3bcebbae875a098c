package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	publicationsTable = "social_posts"
	emailsTable       = "emails"
)

// RESTStore talks to a PostgREST (Supabase) endpoint
type RESTStore struct {
	client *resty.Client
}

// Ensure RESTStore implements RecordStore
var _ RecordStore = (*RESTStore)(nil)

type publicationRow struct {
	UserID      string    `json:"user_id"`
	PublishedAt time.Time `json:"data_publicacao"`
	Link        string    `json:"link"`
	Topic       string    `json:"tema"`
	Text        string    `json:"texto"`
}

type emailRow struct {
	UserID       string    `json:"user_id,omitempty"`
	Recipient    string    `json:"destinatario"`
	Subject      string    `json:"assunto"`
	SentAt       time.Time `json:"data_envio"`
	State        *string   `json:"estado"`
	Municipality *string   `json:"municipio"`
	Classified   bool      `json:"classificado"`
}

// NewRESTStore creates a client for the REST API rooted at baseURL
func NewRESTStore(baseURL, apiKey string) (*RESTStore, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("postgrest base URL is required")
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Outreach-Dashboard/1.0")

	if apiKey != "" {
		client.SetHeader("apikey", apiKey).SetAuthToken(apiKey)
	}

	return &RESTStore{client: client}, nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing
func (s *RESTStore) Close() error { return nil }

func (s *RESTStore) get(ctx context.Context, table string, query url.Values, out any) error {
	query.Set("select", "*")
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		SetResult(out).
		Get("/" + table)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s query returned status %d: %s", table, resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *RESTStore) write(ctx context.Context, method, table string, query url.Values, body, out any) error {
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(query)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, "/"+table)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", strings.ToLower(method), table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s %s returned status %d: %s", method, table, resp.StatusCode(), resp.String())
	}
	return nil
}

func rangeQuery(column string, from, to time.Time) url.Values {
	q := url.Values{}
	q.Add(column, "gte."+from.UTC().Format(time.RFC3339Nano))
	q.Add(column, "lt."+to.UTC().Format(time.RFC3339Nano))
	q.Set("order", column+".desc")
	return q
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{"eq." + id}}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListPublications returns every publication, newest first
func (s *RESTStore) ListPublications(ctx context.Context) ([]models.Publication, error) {
	posts := []models.Publication{}
	err := s.get(ctx, publicationsTable, url.Values{"order": []string{"data_publicacao.desc"}}, &posts)
	return posts, err
}

// ListPublicationsBetween returns publications with from <= data_publicacao < to
func (s *RESTStore) ListPublicationsBetween(ctx context.Context, from, to time.Time) ([]models.Publication, error) {
	posts := []models.Publication{}
	err := s.get(ctx, publicationsTable, rangeQuery("data_publicacao", from, to), &posts)
	return posts, err
}

// GetPublication returns nil when the id does not exist
func (s *RESTStore) GetPublication(ctx context.Context, id string) (*models.Publication, error) {
	var posts []models.Publication
	if err := s.get(ctx, publicationsTable, idQuery(id), &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// InsertPublication stores p and returns the stored representation
func (s *RESTStore) InsertPublication(ctx context.Context, p models.Publication) (models.Publication, error) {
	created, err := s.InsertPublications(ctx, []models.Publication{p})
	if err != nil {
		return models.Publication{}, err
	}
	return created[0], nil
}

// InsertPublications stores every publication with a single bulk insert
func (s *RESTStore) InsertPublications(ctx context.Context, ps []models.Publication) ([]models.Publication, error) {
	rows := make([]publicationRow, len(ps))
	for i, p := range ps {
		rows[i] = publicationRow{UserID: p.UserID, PublishedAt: p.PublishedAt, Link: p.Link, Topic: p.Topic, Text: p.Text}
	}

	var created []models.Publication
	if err := s.write(ctx, resty.MethodPost, publicationsTable, url.Values{}, rows, &created); err != nil {
		return nil, err
	}
	if len(created) != len(ps) {
		return nil, fmt.Errorf("insert returned %d publications, expected %d", len(created), len(ps))
	}
	logrus.Debugf("Inserted %d publications via REST", len(created))
	return created, nil
}

// UpdatePublication applies the non-nil fields of patch
func (s *RESTStore) UpdatePublication(ctx context.Context, id string, patch models.PublicationPatch) (models.Publication, error) {
	var updated []models.Publication
	if err := s.write(ctx, resty.MethodPatch, publicationsTable, idQuery(id), patch, &updated); err != nil {
		return models.Publication{}, err
	}
	if len(updated) == 0 {
		return models.Publication{}, fmt.Errorf("publication %s: %w", id, models.ErrNotFound)
	}
	return updated[0], nil
}

// DeletePublication removes the publication
func (s *RESTStore) DeletePublication(ctx context.Context, id string) error {
	return s.write(ctx, resty.MethodDelete, publicationsTable, idQuery(id), nil, nil)
}

// ListEmails returns every email, newest first
func (s *RESTStore) ListEmails(ctx context.Context) ([]models.Email, error) {
	emails := []models.Email{}
	err := s.get(ctx, emailsTable, url.Values{"order": []string{"data_envio.desc"}}, &emails)
	return emails, err
}

// ListPendingEmails returns unclassified emails, newest first
func (s *RESTStore) ListPendingEmails(ctx context.Context) ([]models.Email, error) {
	emails := []models.Email{}
	q := url.Values{
		"classificado": []string{"eq.false"},
		"order":        []string{"data_envio.desc"},
	}
	err := s.get(ctx, emailsTable, q, &emails)
	return emails, err
}

// ListEmailsBetween returns emails with from <= data_envio < to
func (s *RESTStore) ListEmailsBetween(ctx context.Context, from, to time.Time) ([]models.Email, error) {
	emails := []models.Email{}
	err := s.get(ctx, emailsTable, rangeQuery("data_envio", from, to), &emails)
	return emails, err
}

// GetEmail returns nil when the id does not exist
func (s *RESTStore) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	var emails []models.Email
	if err := s.get(ctx, emailsTable, idQuery(id), &emails); err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	return &emails[0], nil
}

// InsertEmail stores e and returns the stored representation
func (s *RESTStore) InsertEmail(ctx context.Context, e models.Email) (models.Email, error) {
	created, err := s.InsertEmails(ctx, []models.Email{e})
	if err != nil {
		return models.Email{}, err
	}
	return created[0], nil
}

// InsertEmails stores every email with a single bulk insert
func (s *RESTStore) InsertEmails(ctx context.Context, es []models.Email) ([]models.Email, error) {
	rows := make([]emailRow, len(es))
	for i, e := range es {
		rows[i] = emailRow{
			UserID:       e.UserID,
			Recipient:    e.Recipient,
			Subject:      e.Subject,
			SentAt:       e.SentAt,
			State:        optional(e.State),
			Municipality: optional(e.Municipality),
			Classified:   e.Classified,
		}
	}

	var created []models.Email
	if err := s.write(ctx, resty.MethodPost, emailsTable, url.Values{}, rows, &created); err != nil {
		return nil, err
	}
	if len(created) != len(es) {
		return nil, fmt.Errorf("insert returned %d emails, expected %d", len(created), len(es))
	}
	return created, nil
}

// UpdateEmail applies the non-nil fields of patch
func (s *RESTStore) UpdateEmail(ctx context.Context, id string, patch models.EmailPatch) (models.Email, error) {
	var updated []models.Email
	if err := s.write(ctx, resty.MethodPatch, emailsTable, idQuery(id), patch, &updated); err != nil {
		return models.Email{}, err
	}
	if len(updated) == 0 {
		return models.Email{}, fmt.Errorf("email %s: %w", id, models.ErrNotFound)
	}
	return updated[0], nil
}

// DeleteEmail removes the email
func (s *RESTStore) DeleteEmail(ctx context.Context, id string) error {
	return s.write(ctx, resty.MethodDelete, emailsTable, idQuery(id), nil, nil)
}
