package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cause := errors.New("disk I/O error")

	tests := []struct {
		name        string
		err         error
		unavailable bool
		notFound    bool
	}{
		{name: "nil stays nil"},
		{name: "store failure", err: cause, unavailable: true},
		{name: "not found passes through", err: models.ErrNotFound, notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.unavailable, errors.Is(err, models.ErrStoreUnavailable))
			assert.Equal(t, tt.notFound, errors.Is(err, models.ErrNotFound))
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestRecordsOverSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLStore(storage.DriverModernc, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	posts := NewPublications(store)
	created, err := posts.CreateMany(ctx, []models.PublicationInput{
		{PublishedAt: time.Now(), Link: "https://a.example/1", Topic: "a", Text: "a"},
		{PublishedAt: time.Now(), Link: "https://a.example/2", Topic: "b", Text: "b"},
	}, "owner-1")
	require.NoError(t, err)
	for _, p := range created {
		assert.Equal(t, "owner-1", p.UserID)
	}

	missing, err := posts.ByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	emails := NewEmails(store)
	email, err := emails.Create(ctx, models.EmailInput{Recipient: "a@example.com", SentAt: time.Now()}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", email.UserID)

	subject := "novo"
	_, err = emails.Update(ctx, "nope", models.EmailPatch{Subject: &subject})
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.False(t, errors.Is(err, models.ErrStoreUnavailable))

	store.Close()
	_, err = emails.All(ctx)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))
}
