package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/categories"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/comments"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/sketchmodels"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Categories(db dbx.DBTX) categories.Repository
	Models(db dbx.DBTX) sketchmodels.Repository
	Favorites(db dbx.DBTX) favorites.Repository
	Comments(db dbx.DBTX) comments.Repository
}
