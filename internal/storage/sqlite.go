package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	// DriverModernc is the pure Go SQLite driver
	DriverModernc = "sqlite"
	// DriverMattn is the cgo SQLite driver
	DriverMattn = "sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS social_posts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	data_publicacao INTEGER NOT NULL,
	link            TEXT NOT NULL,
	tema            TEXT NOT NULL,
	texto           TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_social_posts_data_publicacao ON social_posts(data_publicacao);

CREATE TABLE IF NOT EXISTS emails (
	id           TEXT PRIMARY KEY,
	user_id      TEXT DEFAULT '',
	destinatario TEXT NOT NULL,
	assunto      TEXT DEFAULT '',
	data_envio   INTEGER NOT NULL,
	estado       TEXT,
	municipio    TEXT,
	classificado INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_emails_data_envio ON emails(data_envio);
CREATE INDEX IF NOT EXISTS idx_emails_classificado ON emails(classificado);
`

const (
	publicationColumns = `id, user_id, data_publicacao, link, tema, texto, created_at, updated_at`
	emailColumns       = `id, user_id, destinatario, assunto, data_envio, estado, municipio, classificado, created_at, updated_at`
)

// SQLStore keeps both record domains in a SQLite database. Instants are
// stored as unix nanoseconds.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure SQLStore implements RecordStore
var _ RecordStore = (*SQLStore)(nil)

// NewSQLStore opens (and migrates) the database at path with the given driver
func NewSQLStore(driver, path string) (*SQLStore, error) {
	if driver != DriverModernc && driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; concurrent batch patches queue on the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logrus.Debugf("Opened %s record store at %s", driver, path)
	return &SQLStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublication(row rowScanner) (models.Publication, error) {
	var p models.Publication
	var published, created, updated int64
	if err := row.Scan(&p.ID, &p.UserID, &published, &p.Link, &p.Topic, &p.Text, &created, &updated); err != nil {
		return models.Publication{}, err
	}
	p.PublishedAt = fromNanos(published)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return p, nil
}

func scanEmail(row rowScanner) (models.Email, error) {
	var e models.Email
	var userID, subject, state, municipality sql.NullString
	var sent, created, updated int64
	if err := row.Scan(&e.ID, &userID, &e.Recipient, &subject, &sent, &state, &municipality, &e.Classified, &created, &updated); err != nil {
		return models.Email{}, err
	}
	e.UserID = userID.String
	e.Subject = subject.String
	e.State = state.String
	e.Municipality = municipality.String
	e.SentAt = fromNanos(sent)
	e.CreatedAt = fromNanos(created)
	e.UpdatedAt = fromNanos(updated)
	return e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLStore) queryPublications(ctx context.Context, query string, args ...any) ([]models.Publication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer rows.Close()

	posts := []models.Publication{}
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *SQLStore) queryEmails(ctx context.Context, query string, args ...any) ([]models.Email, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer rows.Close()

	emails := []models.Email{}
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// ListPublications returns every publication, newest first
func (s *SQLStore) ListPublications(ctx context.Context) ([]models.Publication, error) {
	return s.queryPublications(ctx,
		`SELECT `+publicationColumns+` FROM social_posts ORDER BY data_publicacao DESC, id`)
}

// ListPublicationsBetween returns publications with from <= data_publicacao < to
func (s *SQLStore) ListPublicationsBetween(ctx context.Context, from, to time.Time) ([]models.Publication, error) {
	return s.queryPublications(ctx,
		`SELECT `+publicationColumns+` FROM social_posts
		 WHERE data_publicacao >= ? AND data_publicacao < ?
		 ORDER BY data_publicacao DESC, id`,
		toNanos(from), toNanos(to))
}

// GetPublication returns nil when the id does not exist
func (s *SQLStore) GetPublication(ctx context.Context, id string) (*models.Publication, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+publicationColumns+` FROM social_posts WHERE id = ?`, id)
	p, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query publication %s: %w", id, err)
	}
	return &p, nil
}

// InsertPublication stores p with a fresh id and timestamps
func (s *SQLStore) InsertPublication(ctx context.Context, p models.Publication) (models.Publication, error) {
	created, err := s.InsertPublications(ctx, []models.Publication{p})
	if err != nil {
		return models.Publication{}, err
	}
	return created[0], nil
}

// InsertPublications stores every publication in one transaction
func (s *SQLStore) InsertPublications(ctx context.Context, ps []models.Publication) ([]models.Publication, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO social_posts (`+publicationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	created := make([]models.Publication, 0, len(ps))
	for _, p := range ps {
		p.ID = uuid.NewString()
		p.PublishedAt = p.PublishedAt.UTC()
		p.CreatedAt, p.UpdatedAt = now, now
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.UserID, toNanos(p.PublishedAt), p.Link, p.Topic, p.Text, toNanos(now), toNanos(now),
		); err != nil {
			return nil, fmt.Errorf("failed to insert publication: %w", err)
		}
		created = append(created, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit publications: %w", err)
	}
	return created, nil
}

// UpdatePublication applies the non-nil fields of patch
func (s *SQLStore) UpdatePublication(ctx context.Context, id string, patch models.PublicationPatch) (models.Publication, error) {
	var sets []string
	var args []any
	if patch.PublishedAt != nil {
		sets, args = append(sets, "data_publicacao = ?"), append(args, toNanos(*patch.PublishedAt))
	}
	if patch.Link != nil {
		sets, args = append(sets, "link = ?"), append(args, *patch.Link)
	}
	if patch.Topic != nil {
		sets, args = append(sets, "tema = ?"), append(args, *patch.Topic)
	}
	if patch.Text != nil {
		sets, args = append(sets, "texto = ?"), append(args, *patch.Text)
	}

	if err := s.update(ctx, "social_posts", id, sets, args); err != nil {
		return models.Publication{}, err
	}

	p, err := s.GetPublication(ctx, id)
	if err != nil {
		return models.Publication{}, err
	}
	if p == nil {
		return models.Publication{}, fmt.Errorf("publication %s: %w", id, models.ErrNotFound)
	}
	return *p, nil
}

// DeletePublication removes the publication; deleting a missing id is not an error
func (s *SQLStore) DeletePublication(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM social_posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete publication %s: %w", id, err)
	}
	return nil
}

// ListEmails returns every email, newest first
func (s *SQLStore) ListEmails(ctx context.Context) ([]models.Email, error) {
	return s.queryEmails(ctx, `SELECT `+emailColumns+` FROM emails ORDER BY data_envio DESC, id`)
}

// ListPendingEmails returns unclassified emails, newest first
func (s *SQLStore) ListPendingEmails(ctx context.Context) ([]models.Email, error) {
	return s.queryEmails(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE classificado = 0 ORDER BY data_envio DESC, id`)
}

// ListEmailsBetween returns emails with from <= data_envio < to
func (s *SQLStore) ListEmailsBetween(ctx context.Context, from, to time.Time) ([]models.Email, error) {
	return s.queryEmails(ctx,
		`SELECT `+emailColumns+` FROM emails
		 WHERE data_envio >= ? AND data_envio < ?
		 ORDER BY data_envio DESC, id`,
		toNanos(from), toNanos(to))
}

// GetEmail returns nil when the id does not exist
func (s *SQLStore) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	e, err := scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query email %s: %w", id, err)
	}
	return &e, nil
}

// InsertEmail stores e with a fresh id and timestamps
func (s *SQLStore) InsertEmail(ctx context.Context, e models.Email) (models.Email, error) {
	created, err := s.InsertEmails(ctx, []models.Email{e})
	if err != nil {
		return models.Email{}, err
	}
	return created[0], nil
}

// InsertEmails stores every email in one transaction
func (s *SQLStore) InsertEmails(ctx context.Context, es []models.Email) ([]models.Email, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO emails (`+emailColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	created := make([]models.Email, 0, len(es))
	for _, e := range es {
		e.ID = uuid.NewString()
		e.SentAt = e.SentAt.UTC()
		e.CreatedAt, e.UpdatedAt = now, now
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.UserID, e.Recipient, e.Subject, toNanos(e.SentAt),
			nullable(e.State), nullable(e.Municipality), e.Classified, toNanos(now), toNanos(now),
		); err != nil {
			return nil, fmt.Errorf("failed to insert email: %w", err)
		}
		created = append(created, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit emails: %w", err)
	}
	return created, nil
}

// UpdateEmail applies the non-nil fields of patch
func (s *SQLStore) UpdateEmail(ctx context.Context, id string, patch models.EmailPatch) (models.Email, error) {
	var sets []string
	var args []any
	if patch.Recipient != nil {
		sets, args = append(sets, "destinatario = ?"), append(args, *patch.Recipient)
	}
	if patch.Subject != nil {
		sets, args = append(sets, "assunto = ?"), append(args, *patch.Subject)
	}
	if patch.SentAt != nil {
		sets, args = append(sets, "data_envio = ?"), append(args, toNanos(*patch.SentAt))
	}
	if patch.State != nil {
		sets, args = append(sets, "estado = ?"), append(args, nullable(*patch.State))
	}
	if patch.Municipality != nil {
		sets, args = append(sets, "municipio = ?"), append(args, nullable(*patch.Municipality))
	}
	if patch.Classified != nil {
		sets, args = append(sets, "classificado = ?"), append(args, *patch.Classified)
	}

	if err := s.update(ctx, "emails", id, sets, args); err != nil {
		return models.Email{}, err
	}

	e, err := s.GetEmail(ctx, id)
	if err != nil {
		return models.Email{}, err
	}
	if e == nil {
		return models.Email{}, fmt.Errorf("email %s: %w", id, models.ErrNotFound)
	}
	return *e, nil
}

// DeleteEmail removes the email; deleting a missing id is not an error
func (s *SQLStore) DeleteEmail(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete email %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) update(ctx context.Context, table, id string, sets []string, args []any) error {
	sets = append(sets, "updated_at = ?")
	args = append(args, toNanos(s.now().UTC()), id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, models.ErrNotFound)
	}
	return nil
}

