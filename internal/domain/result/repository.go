// internal/domain/result/repository.go
package result

import "context"

// StateStore persists the results snapshot and reads the notification
// targets. Missing state is returned as an empty value with a nil error.
type StateStore interface {
	LoadHistory(ctx context.Context) (Snapshot, error)
	// SaveHistory replaces the stored snapshot as a whole.
	SaveHistory(ctx context.Context, snapshot Snapshot) error
	LoadTargets(ctx context.Context) (Targets, error)
}

// Fetcher reads the results listing and per-student detail pages.
type Fetcher interface {
	// FetchResults returns the student rows in table order. An absent
	// results table yields an empty slice and a nil error.
	FetchResults(ctx context.Context) ([]Record, error)
	// FetchDetail never fails; unreadable pages produce sentinel values.
	FetchDetail(ctx context.Context, studentID string) Detail
}
