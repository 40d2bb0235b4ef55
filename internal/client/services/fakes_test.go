package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
	"github.com/stretchr/testify/require"
)

// fakeClient implements the calls the services make; anything else panics
// through the nil embedded interface.
type fakeClient struct {
	client.Client

	mu sync.Mutex

	session   *models.Session
	loginErr  error
	logoutErr error
	tokens    [2]string

	page       models.Page[models.Model]
	categories []models.Category
	users      []models.User
	favorites  []models.Favorite
	listErr    error

	favErr   error
	favCalls int

	created   *client.CreatedModel
	createReq dto.CreateModelRequest
	deleted   []int64

	commentPages map[int64]models.Page[models.Comment]
}

func (f *fakeClient) SetTokens(a, r string) { f.tokens = [2]string{a, r} }

func (f *fakeClient) Login(context.Context, string, string) (*models.Session, error) {
	return f.session, f.loginErr
}

func (f *fakeClient) Logout(context.Context) error { return f.logoutErr }

func (f *fakeClient) Models(context.Context, int64) (models.Page[models.Model], error) {
	return f.page, f.listErr
}

func (f *fakeClient) Categories(context.Context) ([]models.Category, error) {
	return f.categories, f.listErr
}

func (f *fakeClient) Users(context.Context) ([]models.User, error) { return f.users, f.listErr }

func (f *fakeClient) Favorites(context.Context) ([]models.Favorite, error) {
	return f.favorites, f.listErr
}

func (f *fakeClient) AddFavorite(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favCalls++
	return f.favErr
}

func (f *fakeClient) RemoveFavorite(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favCalls++
	return f.favErr
}

func (f *fakeClient) CreateModel(_ context.Context, req dto.CreateModelRequest) (*client.CreatedModel, error) {
	f.createReq = req
	return f.created, nil
}

func (f *fakeClient) DeleteModel(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) Comments(_ context.Context, _ int64, cursor int64) (models.Page[models.Comment], error) {
	return f.commentPages[cursor], nil
}

func newCache(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
