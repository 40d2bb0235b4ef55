package snapshots

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE snapshots (
  kind     TEXT PRIMARY KEY,
  payload  BLOB NOT NULL,
  saved_at TIMESTAMP NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestSaveAndLoad(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	fixClock(t, at)

	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	in := []models.Model{{ID: 2, Title: "Lamp", FavoriteCount: 4}, {ID: 1, Title: "Chair"}}
	require.NoError(t, r.Save(ctx, KindModels, in))

	var out []models.Model
	savedAt, err := r.Load(ctx, KindModels, &out)
	require.NoError(t, err)
	assert.True(t, at.Equal(savedAt))
	assert.Empty(t, cmp.Diff(in, out))
}

func TestSave_ReplacesPrevious(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, KindCategories, []models.Category{{ID: 1}}))
	require.NoError(t, r.Save(ctx, KindCategories, []models.Category{{ID: 2}, {ID: 3}}))

	var out []models.Category
	_, err := r.Load(ctx, KindCategories, &out)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestLoad_MissingAndClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	var out []models.User
	_, err := r.Load(ctx, KindUsers, &out)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, r.Save(ctx, KindUsers, []models.User{{ID: 1}}))
	require.NoError(t, r.Clear(ctx))

	_, err = r.Load(ctx, KindUsers, &out)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
