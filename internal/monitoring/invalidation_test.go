package monitoring

import (
	"testing"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPublicationInvalidation(t *testing.T) {
	when := time.Now()
	topic := "Cultura"

	tests := []struct {
		name     string
		op       Operation
		patch    *models.PublicationPatch
		expected []ViewKind
	}{
		{name: "create", op: OpCreate, expected: []ViewKind{ViewList, ViewTrend, ViewStats}},
		{name: "create many", op: OpCreateMany, expected: []ViewKind{ViewList, ViewTrend, ViewStats}},
		{name: "delete", op: OpDelete, expected: []ViewKind{ViewList, ViewTrend, ViewStats}},
		{name: "update moving the date", op: OpUpdate, patch: &models.PublicationPatch{PublishedAt: &when}, expected: []ViewKind{ViewList, ViewTrend, ViewStats}},
		{name: "update of the topic", op: OpUpdate, patch: &models.PublicationPatch{Topic: &topic}, expected: []ViewKind{ViewList, ViewTrend}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := PublicationInvalidation(tt.op, tt.patch)
			assert.Equal(t, models.DomainPublications, inv.Domain)
			assert.ElementsMatch(t, tt.expected, inv.Views)
		})
	}
}

func TestEmailInvalidation(t *testing.T) {
	subject := "Ofício"
	state := "SP"

	tests := []struct {
		name   string
		op     Operation
		patch  *models.EmailPatch
		has    []ViewKind
		hasNot []ViewKind
	}{
		{
			name: "create touches everything",
			op:   OpCreate,
			has:  []ViewKind{ViewList, ViewPending, ViewTrend, ViewStats, ViewRanking},
		},
		{
			name: "reclassify touches everything",
			op:   OpReclassify,
			has:  []ViewKind{ViewList, ViewPending, ViewTrend, ViewStats, ViewRanking},
		},
		{
			name:   "subject update leaves aggregates alone",
			op:     OpUpdate,
			patch:  &models.EmailPatch{Subject: &subject},
			has:    []ViewKind{ViewList, ViewPending, ViewTrend},
			hasNot: []ViewKind{ViewStats, ViewRanking},
		},
		{
			name:  "state update refreshes stats and ranking",
			op:    OpUpdate,
			patch: &models.EmailPatch{State: &state},
			has:   []ViewKind{ViewList, ViewTrend, ViewStats, ViewPending, ViewRanking},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := EmailInvalidation(tt.op, tt.patch)
			assert.Equal(t, models.DomainEmails, inv.Domain)
			for _, kind := range tt.has {
				assert.True(t, inv.Has(kind), "expected %s", kind)
			}
			for _, kind := range tt.hasNot {
				assert.False(t, inv.Has(kind), "unexpected %s", kind)
			}
		})
	}
}
