// Package app wires configuration into the running components.
package app

import (
	"context"
	"fmt"

	"github.com/azure/outreach-dashboard/internal/api"
	"github.com/azure/outreach-dashboard/internal/config"
	"github.com/azure/outreach-dashboard/internal/identity"
	"github.com/azure/outreach-dashboard/internal/monitoring"
	"github.com/azure/outreach-dashboard/internal/notifications"
	"github.com/azure/outreach-dashboard/internal/records"
	"github.com/azure/outreach-dashboard/internal/storage"
	"github.com/azure/outreach-dashboard/internal/viewmodel"
	"github.com/sirupsen/logrus"
)

// App holds the components built from a configuration
type App struct {
	Store  storage.RecordStore
	Cache  *viewmodel.ViewCache
	Social *viewmodel.SocialDashboard
	Emails *viewmodel.EmailDashboard
	API    *api.Handler
}

// New builds every component described by cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := NewRecordStore(cfg)
	if err != nil {
		return nil, err
	}

	archive, err := NewArchive(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	renderer, err := notifications.NewHTMLRenderer()
	if err != nil {
		store.Close()
		return nil, err
	}

	loc := cfg.Location()
	ids := identity.ContextProvider{Fallback: cfg.DefaultUserID}
	notifier := notifications.NewService(cfg)
	exporter := viewmodel.NewExporter(renderer, archive, notifier, loc)

	cache := viewmodel.NewViewCache()
	social := viewmodel.NewSocialDashboard(
		monitoring.NewPublicationService(records.NewPublications(store), ids, loc), cache, exporter)
	emails := viewmodel.NewEmailDashboard(
		monitoring.NewEmailService(records.NewEmails(store), ids, loc), cache)

	return &App{
		Store:  store,
		Cache:  cache,
		Social: social,
		Emails: emails,
		API:    api.NewHandler(social, emails, cache, loc),
	}, nil
}

// Close releases the record store
func (a *App) Close() error {
	return a.Store.Close()
}

// NewRecordStore opens the configured record store backend
func NewRecordStore(cfg *config.Config) (storage.RecordStore, error) {
	switch cfg.StoreBackend {
	case "postgrest":
		logrus.Infof("Using PostgREST record store at %s", cfg.PostgRESTURL)
		return storage.NewRESTStore(cfg.PostgRESTURL, cfg.PostgRESTAPIKey)
	case "sqlite":
		logrus.Infof("Using SQLite record store at %s (driver %s)", cfg.DBPath, cfg.DBDriver)
		return storage.NewSQLStore(cfg.DBDriver, cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewArchive opens the configured report archive; "none" yields nil
func NewArchive(ctx context.Context, cfg *config.Config) (storage.ReportArchive, error) {
	switch cfg.ReportArchive {
	case "azure":
		return storage.NewBlobArchive(ctx, cfg.StorageAccount, cfg.StorageContainer)
	case "local":
		return storage.NewDirArchive(cfg.ReportOutputDir)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown report archive %q", cfg.ReportArchive)
	}
}
