package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/azure/outreach-dashboard/internal/models"
)

// DirArchive keeps rendered reports as files in one directory
type DirArchive struct {
	dir string
}

// Ensure DirArchive implements ReportArchive
var _ ReportArchive = (*DirArchive)(nil)

// NewDirArchive creates dir if needed
func NewDirArchive(dir string) (*DirArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &DirArchive{dir: dir}, nil
}

func (a *DirArchive) path(name string) (string, error) {
	if err := checkArchiveName(name); err != nil {
		return "", err
	}
	return filepath.Join(a.dir, name), nil
}

func fileError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("report %s: %w", name, models.ErrNotFound)
	}
	return err
}

// Store writes the report; the content type is implied by the extension
func (a *DirArchive) Store(_ context.Context, name, _ string, data []byte) error {
	path, err := a.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", name, err)
	}
	return nil
}

func (a *DirArchive) Retrieve(_ context.Context, name string) ([]byte, error) {
	path, err := a.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(name, err)
	}
	return data, nil
}

func (a *DirArchive) List(_ context.Context, prefix string) ([]ArchivedReport, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", a.dir, err)
	}

	reports := []ArchivedReport{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, ArchivedReport{Name: entry.Name(), Size: info.Size(), ModifiedAt: info.ModTime()})
	}
	newestFirst(reports)
	return reports, nil
}

func (a *DirArchive) Delete(_ context.Context, name string) error {
	path, err := a.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fileError(name, err)
	}
	return nil
}
