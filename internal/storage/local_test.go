package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirArchive(t *testing.T) {
	ctx := context.Background()
	archive, err := NewDirArchive(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, archive.Store(ctx, "2024-03-08-all-report.html", "text/html", []byte("<html>")))
	require.NoError(t, archive.Store(ctx, "2024-03-09-2024-03-01..2024-03-07-report.html", "text/html", []byte("<html>2")))
	require.NoError(t, archive.Store(ctx, "other.txt", "text/plain", []byte("x")))

	data, err := archive.Retrieve(ctx, "2024-03-09-2024-03-01..2024-03-07-report.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>2", string(data))

	reports, err := archive.List(ctx, "2024-03")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "2024-03-09-2024-03-01..2024-03-07-report.html", reports[0].Name, "newest first")
	assert.Equal(t, "2024-03-08-all-report.html", reports[1].Name)
	assert.Equal(t, int64(6), reports[1].Size)
	assert.False(t, reports[1].ModifiedAt.IsZero())

	require.NoError(t, archive.Delete(ctx, "other.txt"))
	_, err = archive.Retrieve(ctx, "other.txt")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(archive.Delete(ctx, "other.txt"), models.ErrNotFound))

	empty, err := archive.List(ctx, "2023")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDirArchiveRejectsPaths(t *testing.T) {
	ctx := context.Background()
	archive, err := NewDirArchive(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../escape.txt", `sub\file.txt`, "a/b.html"} {
		assert.True(t, errors.Is(archive.Store(ctx, name, "text/plain", []byte("x")), models.ErrValidation), name)
		_, err := archive.Retrieve(ctx, name)
		assert.True(t, errors.Is(err, models.ErrValidation), name)
	}
}
