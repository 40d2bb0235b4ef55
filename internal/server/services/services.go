// Package services contains server-side business logic. Every service runs
// its repositories either against the pool or inside dbx.WithTx, and
// publishes change events only after the mutation is committed.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/idalloc"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sketchhub/internal/server/storage"
)

// Deps bundles what every service is built from.
type Deps struct {
	DB          *sql.DB
	Repomanager repomanager.RepositoryManager
	IDs         *idalloc.Allocator
	Publisher   broadcast.Publisher
	Storage     storage.Storage
	Logger      logging.Logger
	Metrics     *metrics.Metrics
}

type base struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ids         *idalloc.Allocator
	publisher   broadcast.Publisher
	storage     storage.Storage
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func newBase(d Deps, module string) base {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return base{
		db:          d.DB,
		repomanager: d.Repomanager,
		ids:         d.IDs,
		publisher:   d.Publisher,
		storage:     d.Storage,
		logger:      logger.With("module", module),
		metrics:     d.Metrics,
	}
}

func (b *base) publish(ctx context.Context, ev broadcast.ChangeEvent) {
	if b.publisher == nil {
		return
	}
	b.publisher.Publish(ctx, ev)
}

// resolve turns a stored object key into a URL a browser can fetch. Values
// that are already URLs are kept.
func (b *base) resolve(key *string) *string {
	if key == nil || *key == "" || b.storage == nil {
		return key
	}
	if strings.HasPrefix(*key, "http://") || strings.HasPrefix(*key, "https://") {
		return key
	}
	url := b.storage.PublicURL(*key)
	return &url
}

func (b *base) resolveAuthor(a *models.Author) {
	if a != nil {
		a.ProfileImage = b.resolve(a.ProfileImage)
	}
}

func (b *base) resolveUser(u *models.User) {
	u.ProfileImage = b.resolve(u.ProfileImage)
}

func (b *base) resolveModel(m *models.Model) {
	m.PreviewImageURL = b.resolve(m.PreviewImageURL)
	m.EnvMapURL = b.resolve(m.EnvMapURL)
	m.ModelGLBURL = b.resolve(m.ModelGLBURL)
	if file := b.resolve(&m.FileURL); file != nil {
		m.FileURL = *file
	}
	b.resolveAuthor(m.Author)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

// page trims a limit+1 result to limit and sets the cursor of the next page.
func page[T any](items []T, limit int, id func(T) int64) models.Page[T] {
	if items == nil {
		items = []T{}
	}
	if len(items) <= limit {
		return models.Page[T]{Data: items}
	}
	items = items[:limit]
	next := id(items[len(items)-1])
	return models.Page[T]{Data: items, NextCursor: &next}
}
