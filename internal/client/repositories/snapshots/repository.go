// Package snapshots keeps the last fetched lists in the local SQLite cache
// so the CLI can show them while the server is unreachable.
package snapshots

import (
	"context"
	"time"
)

// Snapshot kinds.
const (
	KindModels     = "models"
	KindCategories = "categories"
	KindUsers      = "users"
)

type Repository interface {
	// Save stores v as JSON under kind, replacing the previous snapshot.
	Save(ctx context.Context, kind string, v any) error
	// Load decodes the snapshot of kind into out and returns when it was
	// saved. A missing snapshot is common.ErrorNotFound.
	Load(ctx context.Context, kind string, out any) (time.Time, error)
	Clear(ctx context.Context) error
}
