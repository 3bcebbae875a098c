package monitoring

import "github.com/azure/outreach-dashboard/internal/models"

// ViewKind names a derived, recomputable read
type ViewKind string

const (
	ViewList    ViewKind = "list"
	ViewPending ViewKind = "pending"
	ViewTrend   ViewKind = "trend"
	ViewStats   ViewKind = "stats"
	ViewRanking ViewKind = "ranking"
)

// Operation names a mutating entry point
type Operation string

const (
	OpCreate     Operation = "create"
	OpCreateMany Operation = "create_many"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpReclassify Operation = "reclassify"
)

// Invalidation lists the views of one domain a mutation makes stale
type Invalidation struct {
	Domain models.Domain
	Views  []ViewKind
}

// Has reports whether kind is part of the invalidation
func (inv Invalidation) Has(kind ViewKind) bool {
	for _, v := range inv.Views {
		if v == kind {
			return true
		}
	}
	return false
}

// PublicationInvalidation returns the publication views op makes stale. patch
// is only consulted for updates: moving data_publicacao can push a record in
// or out of the filtered period, which changes the filtered total.
func PublicationInvalidation(op Operation, patch *models.PublicationPatch) Invalidation {
	inv := Invalidation{Domain: models.DomainPublications}
	switch op {
	case OpUpdate:
		inv.Views = []ViewKind{ViewList, ViewTrend}
		if patch == nil || patch.PublishedAt != nil {
			inv.Views = append(inv.Views, ViewStats)
		}
	default:
		inv.Views = []ViewKind{ViewList, ViewTrend, ViewStats}
	}
	return inv
}

// EmailInvalidation returns the email views op makes stale. The pending view
// holds whole records, so every update drops it; stats and rankings are only
// touched when the patch can change them.
func EmailInvalidation(op Operation, patch *models.EmailPatch) Invalidation {
	inv := Invalidation{Domain: models.DomainEmails}
	switch op {
	case OpUpdate:
		inv.Views = []ViewKind{ViewList, ViewPending, ViewTrend}
		if patch == nil || patch.AffectsClassification() {
			inv.Views = append(inv.Views, ViewStats)
		}
		if patch == nil || patch.State != nil || patch.Recipient != nil {
			inv.Views = append(inv.Views, ViewRanking)
		}
	case OpReclassify:
		inv.Views = []ViewKind{ViewList, ViewTrend, ViewStats, ViewPending, ViewRanking}
	default:
		inv.Views = []ViewKind{ViewList, ViewPending, ViewTrend, ViewStats, ViewRanking}
	}
	return inv
}
