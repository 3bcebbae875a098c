package models

import "time"

// Domain identifies one of the two record families managed by the dashboard
type Domain string

const (
	DomainPublications Domain = "publications"
	DomainEmails       Domain = "emails"
)

// Publication represents a social media post registered by a user
type Publication struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PublishedAt time.Time `json:"data_publicacao"`
	Link        string    `json:"link"`
	Topic       string    `json:"tema"`
	Text        string    `json:"texto"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicationInput holds the user supplied fields of a new publication
type PublicationInput struct {
	PublishedAt time.Time `json:"data_publicacao" validate:"required"`
	Link        string    `json:"link" validate:"required,http_url"`
	Topic       string    `json:"tema" validate:"required,max=100"`
	Text        string    `json:"texto" validate:"required,max=2000"`
}

// PublicationPatch is a partial update; nil fields are left untouched
type PublicationPatch struct {
	PublishedAt *time.Time `json:"data_publicacao,omitempty"`
	Link        *string    `json:"link,omitempty" validate:"omitnil,http_url"`
	Topic       *string    `json:"tema,omitempty" validate:"omitnil,min=1,max=100"`
	Text        *string    `json:"texto,omitempty" validate:"omitnil,min=1,max=2000"`
}

// IsEmpty reports whether the patch carries no field at all
func (p PublicationPatch) IsEmpty() bool {
	return p.PublishedAt == nil && p.Link == nil && p.Topic == nil && p.Text == nil
}

// Email represents an inbound email tracked for classification
type Email struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Recipient    string    `json:"destinatario"`
	Subject      string    `json:"assunto"`
	SentAt       time.Time `json:"data_envio"`
	State        string    `json:"estado,omitempty"`
	Municipality string    `json:"municipio,omitempty"`
	Classified   bool      `json:"classificado"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmailInput holds the fields of a new email record
type EmailInput struct {
	Recipient    string    `json:"destinatario" validate:"notblank"`
	Subject      string    `json:"assunto"`
	SentAt       time.Time `json:"data_envio" validate:"required"`
	State        string    `json:"estado,omitempty"`
	Municipality string    `json:"municipio,omitempty"`
	Classified   bool      `json:"classificado"`
}

// EmailPatch is a partial update; nil fields are left untouched
type EmailPatch struct {
	Recipient    *string    `json:"destinatario,omitempty"`
	Subject      *string    `json:"assunto,omitempty"`
	SentAt       *time.Time `json:"data_envio,omitempty"`
	State        *string    `json:"estado,omitempty"`
	Municipality *string    `json:"municipio,omitempty"`
	Classified   *bool      `json:"classificado,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all
func (p EmailPatch) IsEmpty() bool {
	return p.Recipient == nil && p.Subject == nil && p.SentAt == nil &&
		p.State == nil && p.Municipality == nil && p.Classified == nil
}

// AffectsClassification reports whether applying the patch may change the
// classified/pending counts.
func (p EmailPatch) AffectsClassification() bool {
	return p.Classified != nil || p.State != nil || p.Municipality != nil
}

// ReclassifyPatch assigns a location to one email
type ReclassifyPatch struct {
	ID           string `json:"id"`
	State        string `json:"estado"`
	Municipality string `json:"municipio"`
}

// Classified is true only when both location fields are filled
func (p ReclassifyPatch) Classified() bool {
	return p.State != "" && p.Municipality != ""
}

// EmailPatch converts the reclassification into a regular patch, deriving
// the classificado flag from the location fields.
func (p ReclassifyPatch) EmailPatch() EmailPatch {
	state, municipality, classified := p.State, p.Municipality, p.Classified()
	return EmailPatch{
		State:        &state,
		Municipality: &municipality,
		Classified:   &classified,
	}
}

// TrendPoint is one calendar day of a trend series
type TrendPoint struct {
	Date  Date `json:"date"`
	Count int  `json:"count"`
}

// GroupCount is one ranked key of a top-N grouping
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// PublicationStats summarizes the currently filtered publications
type PublicationStats struct {
	Total int `json:"total"`
}

// EmailStats summarizes every stored email
type EmailStats struct {
	Total      int `json:"total"`
	Classified int `json:"classificados"`
	Pending    int `json:"pendentes"`
}

// Report is the document handed to a renderer when exporting publications
type Report struct {
	Title       string      `json:"title"`
	Filename    string      `json:"filename"`
	GeneratedAt time.Time   `json:"generated_at"`
	Period      string      `json:"period"`
	Total       int         `json:"total"`
	Columns     []string    `json:"columns"`
	Rows        []ReportRow `json:"rows"`
}

// ReportRow is one publication line of an exported report
type ReportRow struct {
	Date  string `json:"date"`
	Topic string `json:"topic"`
	Text  string `json:"text"`
	Link  string `json:"link"`
}

// Truncate cuts s to at most limit runes and appends "..." when it was longer
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
