package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/azure/outreach-dashboard/internal/config"
	"github.com/azure/outreach-dashboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	dir := t.TempDir()
	cfg.DBPath = filepath.Join(dir, "dashboard.db")
	cfg.ReportArchive = "local"
	cfg.ReportOutputDir = filepath.Join(dir, "reports")
	cfg.DefaultUserID = "default-user"
	cfg.TimeZone = "UTC"
	return cfg
}

func TestNewServesRequests(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	application, err := New(ctx, cfg)
	require.NoError(t, err)
	defer application.Close()

	router := application.API.Router()

	body := `{"data_publicacao":"2024-03-02T10:00","link":"https://instagram.com/p/1","tema":"Saúde","texto":"texto"}`
	req := httptest.NewRequest("POST", "/api/publications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"user_id":"default-user"`)

	req = httptest.NewRequest("POST", "/api/publications/report", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	archive, err := storage.NewDirArchive(cfg.ReportOutputDir)
	require.NoError(t, err)
	stored, err := archive.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, strings.HasSuffix(stored[0].Name, "-all-publicacoes-redes-sociais.html"))

	req = httptest.NewRequest("GET", "/api/publications/reports", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []storage.ArchivedReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, stored[0].Name, listed[0].Name)

	req = httptest.NewRequest("GET", "/api/publications/reports/"+listed[0].Name, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Saúde")

	req = httptest.NewRequest("DELETE", "/api/publications/reports/"+listed[0].Name, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest("GET", "/api/publications/reports/"+listed[0].Name, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewArchive(t *testing.T) {
	cfg := testConfig(t)

	cfg.ReportArchive = "none"
	archive, err := NewArchive(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, archive)

	cfg.ReportArchive = "s3"
	_, err = NewArchive(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewRecordStoreUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "mysql"

	_, err := NewRecordStore(cfg)
	assert.Error(t, err)
}
