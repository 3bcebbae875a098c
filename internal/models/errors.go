package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable wraps any failure of the record store
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrUnauthenticated is returned when a create runs without an actor
	ErrUnauthenticated = errors.New("usuário não autenticado")
	// ErrValidation marks malformed input rejected before reaching the store
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a record id does not exist
	ErrNotFound = errors.New("record not found")
	// ErrPartialBatchFailure is matched by every *PartialBatchError
	ErrPartialBatchFailure = errors.New("partial batch failure")
	// ErrNothingToExport is returned when a report would have no rows
	ErrNothingToExport = errors.New("nenhuma publicação para exportar")
)

// ItemFailure describes one failed item of a batch
type ItemFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// PartialBatchError lists the items of a batch that failed. Items not listed
// succeeded and were not rolled back.
type PartialBatchError struct {
	Total    int
	Failures []ItemFailure
}

func (e *PartialBatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.ID, f.Err))
	}
	return fmt.Sprintf("%d of %d items failed: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

func (e *PartialBatchError) Is(target error) bool {
	return target == ErrPartialBatchFailure
}

// FailedIDs returns the ids of the failed items in batch order
func (e *PartialBatchError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return ids
}
