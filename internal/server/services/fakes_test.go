package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dbx"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/idalloc"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/categories"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/comments"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/sketchmodels"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore backs every fake repository. Failures can be injected per
// method name through fail.
type memStore struct {
	mu sync.Mutex

	roles      []models.Role
	users      map[int64]*models.User
	tokens     map[string]*models.RefreshToken
	categories map[int64]*models.Category
	models     map[int64]*models.Model
	favorites  map[int64]*models.Favorite
	comments   map[int64]*models.Comment
	seq        int64

	fail map[string]error

	// hideFavorites makes Exists report false, as a concurrent request
	// would see it before the other insert commits.
	hideFavorites bool
}

func newMemStore() *memStore {
	return &memStore{
		roles:      []models.Role{{ID: 1, Title: common.RoleAdmin}, {ID: 2, Title: common.RoleUser}},
		users:      map[int64]*models.User{},
		tokens:     map[string]*models.RefreshToken{},
		categories: map[int64]*models.Category{},
		models:     map[int64]*models.Model{},
		favorites:  map[int64]*models.Favorite{},
		comments:   map[int64]*models.Comment{},
		seq:        1000,
		fail:       map[string]error{},
	}
}

func (s *memStore) failed(method string) error { return s.fail[method] }

func (s *memStore) nextID(id int64) int64 {
	if id != 0 {
		return id
	}
	s.seq++
	return s.seq
}

func (s *memStore) roleTitle(id int64) string {
	for _, r := range s.roles {
		if r.ID == id {
			return r.Title
		}
	}
	return ""
}

func (s *memStore) addUser(id int64, role string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Name: fmt.Sprintf("user %d", id), Username: fmt.Sprintf("user%d", id), Email: fmt.Sprintf("u%d@example.com", id)}
	for _, r := range s.roles {
		if r.Title == role {
			u.RoleID = r.ID
		}
	}
	s.users[id] = u
	return u
}

func (s *memStore) addModel(id, authorID int64, categoryID *int64) *models.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &models.Model{ID: id, AuthorID: authorID, CategoryID: categoryID, Title: fmt.Sprintf("model %d", id), FileURL: fmt.Sprintf("users/%d/models/up%d/archive", authorID, id)}
	s.models[id] = m
	return m
}

func (s *memStore) addFavorite(id, userID, modelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites[id] = &models.Favorite{ID: id, UserID: userID, ModelID: modelID}
	s.models[modelID].FavoriteCount++
}

func (s *memStore) favoriteCount(modelID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.models[modelID].FavoriteCount
}

func (s *memStore) favoriteRows(modelID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.favorites {
		if f.ModelID == modelID {
			n++
		}
	}
	return n
}

func keys[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- users ---

type fakeUsers struct {
	users.Repository
	s *memStore
}

func (f *fakeUsers) withRole(u models.User) *models.User {
	u.Role = f.s.roleTitle(u.RoleID)
	return &u
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failed("Users.Create"); err != nil {
		return nil, err
	}
	for _, o := range f.s.users {
		if o.Email == u.Email || o.Username == u.Username || o.ID == u.ID {
			return nil, fmt.Errorf("%w: duplicate user", common.ErrorConflict)
		}
	}
	c := *u
	c.ID = f.s.nextID(u.ID)
	c.CreatedAt = time.Now()
	f.s.users[c.ID] = &c
	return f.withRole(c), nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			return f.withRole(*u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if u, ok := f.s.users[id]; ok {
		return f.withRole(*u), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) List(ctx context.Context) ([]models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.User
	for _, id := range keys(f.s.users) {
		out = append(out, *f.withRole(*f.s.users[id]))
	}
	return out, nil
}

func (f *fakeUsers) UpdateRole(ctx context.Context, id, roleID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.RoleID = roleID
	return nil
}

func (f *fakeUsers) UpdateProfileImage(ctx context.Context, id int64, key string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ProfileImage = &key
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failed("Users.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.users, id)
	// mirrors ON DELETE CASCADE on favorites.user_id, sketch_models.author_id
	// and favorites.model_id
	for mid, m := range f.s.models {
		if m.AuthorID == id {
			delete(f.s.models, mid)
		}
	}
	for fid, fav := range f.s.favorites {
		if _, ok := f.s.models[fav.ModelID]; fav.UserID == id || !ok {
			delete(f.s.favorites, fid)
		}
	}
	return nil
}

func (f *fakeUsers) IDs(ctx context.Context) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return keys(f.s.users), nil
}

func (f *fakeUsers) ListRoles(ctx context.Context) ([]models.Role, error) {
	return append([]models.Role(nil), f.s.roles...), nil
}

func (f *fakeUsers) RoleByTitle(ctx context.Context, title string) (*models.Role, error) {
	for _, r := range f.s.roles {
		if r.Title == title {
			r := r
			return &r, nil
		}
	}
	return nil, common.ErrorNotFound
}

// --- refresh tokens ---

type fakeRefreshTokens struct {
	refreshtokens.Repository
	s *memStore
}

func (f *fakeRefreshTokens) Create(ctx context.Context, userID int64, token string, validity time.Duration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failed("RefreshTokens.Create"); err != nil {
		return err
	}
	f.s.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshTokens) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if t, ok := f.s.tokens[token]; ok {
		c := *t
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRefreshTokens) Delete(ctx context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failed("RefreshTokens.Delete"); err != nil {
		return err
	}
	delete(f.s.tokens, token)
	return nil
}

func (f *fakeRefreshTokens) DeleteByUser(ctx context.Context, userID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for k, t := range f.s.tokens {
		if t.UserID == userID {
			delete(f.s.tokens, k)
		}
	}
	return nil
}

// --- categories ---

type fakeCategories struct {
	categories.Repository
	s *memStore
}

func (f *fakeCategories) List(ctx context.Context) ([]models.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Category
	for _, id := range keys(f.s.categories) {
		out = append(out, *f.s.categories[id])
	}
	return out, nil
}

func (f *fakeCategories) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if c, ok := f.s.categories[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCategories) GetByCode(ctx context.Context, code string) (*models.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.categories {
		if c.Code == code {
			cc := *c
			return &cc, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCategories) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.categories {
		if o.Code == c.Code || o.ID == c.ID {
			return nil, fmt.Errorf("%w: duplicate category", common.ErrorConflict)
		}
	}
	cc := *c
	cc.ID = f.s.nextID(c.ID)
	f.s.categories[cc.ID] = &cc
	out := cc
	return &out, nil
}

func (f *fakeCategories) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.categories[c.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	for _, o := range f.s.categories {
		if o.Code == c.Code && o.ID != c.ID {
			return nil, fmt.Errorf("%w: duplicate code", common.ErrorConflict)
		}
	}
	cc := *c
	f.s.categories[c.ID] = &cc
	out := cc
	return &out, nil
}

func (f *fakeCategories) Delete(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.categories[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.categories, id)
	return nil
}

func (f *fakeCategories) IDs(ctx context.Context) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return keys(f.s.categories), nil
}

// --- models ---

type fakeModels struct {
	sketchmodels.Repository
	s *memStore
}

func (f *fakeModels) full(m models.Model) models.Model {
	if u, ok := f.s.users[m.AuthorID]; ok {
		m.Author = &models.Author{ID: u.ID, Name: u.Name, Username: u.Username, ProfileImage: u.ProfileImage}
	}
	if m.CategoryID != nil {
		if c, ok := f.s.categories[*m.CategoryID]; ok {
			cc := *c
			m.Category = &cc
		}
	}
	return m
}

func (f *fakeModels) List(ctx context.Context, q sketchmodels.ListQuery) ([]models.Model, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ids := keys(f.s.models)
	var out []models.Model
	for i := len(ids) - 1; i >= 0; i-- {
		m := f.s.models[ids[i]]
		if q.Cursor != 0 && m.ID >= q.Cursor {
			continue
		}
		if q.CategoryID != nil && (m.CategoryID == nil || *m.CategoryID != *q.CategoryID) {
			continue
		}
		out = append(out, f.full(*m))
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeModels) Popular(ctx context.Context) ([]models.Model, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Model
	for _, id := range keys(f.s.models) {
		out = append(out, f.full(*f.s.models[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FavoriteCount > out[j].FavoriteCount })
	return out, nil
}

func (f *fakeModels) Search(ctx context.Context, query string) ([]models.Model, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Model
	for _, id := range keys(f.s.models) {
		m := f.s.models[id]
		if strings.Contains(strings.ToLower(m.Title), strings.ToLower(query)) {
			out = append(out, f.full(*m))
		}
	}
	return out, nil
}

func (f *fakeModels) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if m, ok := f.s.models[id]; ok {
		full := f.full(*m)
		return &full, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeModels) Exists(ctx context.Context, id int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failed("Models.Exists"); err != nil {
		return false, err
	}
	_, ok := f.s.models[id]
	return ok, nil
}

func (f *fakeModels) Create(ctx context.Context, m *models.Model) (*models.Model, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.models {
		if o.Title == m.Title || o.ID == m.ID {
			return nil, fmt.Errorf("%w: duplicate model", common.ErrorConflict)
		}
	}
	c := *m
	c.ID = f.s.nextID(m.ID)
	f.s.models[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeModels) Delete(ctx context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.models[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.models, id)
	return nil
}

func (f *fakeModels) IDs(ctx context.Context) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return keys(f.s.models), nil
}

func (f *fakeModels) IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var ids []int64
	for _, id := range keys(f.s.models) {
		if f.s.models[id].AuthorID == authorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeModels) IncrementFavoriteCount(ctx context.Context, id int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failed("Models.IncrementFavoriteCount"); err != nil {
		return 0, err
	}
	m, ok := f.s.models[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	m.FavoriteCount++
	return m.FavoriteCount, nil
}

func (f *fakeModels) DecrementFavoriteCount(ctx context.Context, id int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.models[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	if m.FavoriteCount > 0 {
		m.FavoriteCount--
	}
	return m.FavoriteCount, nil
}

// --- favorites ---

type fakeFavorites struct {
	favorites.Repository
	s *memStore
}

func (f *fakeFavorites) Create(ctx context.Context, fav *models.Favorite) (*models.Favorite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.favorites {
		if o.UserID == fav.UserID && o.ModelID == fav.ModelID {
			return nil, common.ErrorAlreadyFavorited
		}
		if o.ID == fav.ID {
			return nil, fmt.Errorf("%w: favorite id %d is taken", common.ErrorConflict, fav.ID)
		}
	}
	c := *fav
	c.ID = f.s.nextID(fav.ID)
	c.CreatedAt = time.Now()
	f.s.favorites[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeFavorites) Exists(ctx context.Context, userID, modelID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.hideFavorites {
		return false, nil
	}
	for _, o := range f.s.favorites {
		if o.UserID == userID && o.ModelID == modelID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFavorites) Delete(ctx context.Context, userID, modelID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, o := range f.s.favorites {
		if o.UserID == userID && o.ModelID == modelID {
			delete(f.s.favorites, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFavorites) ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Favorite
	ids := keys(f.s.favorites)
	for i := len(ids) - 1; i >= 0; i-- {
		fav := *f.s.favorites[ids[i]]
		if fav.UserID != userID {
			continue
		}
		if m, ok := f.s.models[fav.ModelID]; ok {
			fav.Model = &models.ModelSummary{ID: m.ID, Title: m.Title, PreviewImageURL: m.PreviewImageURL, FavoriteCount: m.FavoriteCount}
		}
		out = append(out, fav)
	}
	return out, nil
}

func (f *fakeFavorites) ModelIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var ids []int64
	for _, id := range keys(f.s.favorites) {
		if fav := f.s.favorites[id]; fav.UserID == userID {
			ids = append(ids, fav.ModelID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeFavorites) IDs(ctx context.Context) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return keys(f.s.favorites), nil
}

// --- comments ---

type fakeComments struct {
	comments.Repository
	s *memStore
}

func (f *fakeComments) ListByModel(ctx context.Context, modelID, cursor int64, limit int) ([]models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Comment
	ids := keys(f.s.comments)
	for i := len(ids) - 1; i >= 0; i-- {
		c := *f.s.comments[ids[i]]
		if c.ModelID != modelID || (cursor != 0 && c.ID >= cursor) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeComments) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cc := *c
	cc.ID = f.s.nextID(c.ID)
	cc.CreatedAt = time.Now()
	f.s.comments[cc.ID] = &cc
	out := cc
	return &out, nil
}

func (f *fakeComments) IDs(ctx context.Context) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return keys(f.s.comments), nil
}

// --- manager, publisher, storage ---

type fakeRepoManager struct {
	s *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository          { return &fakeUsers{s: m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &fakeRefreshTokens{s: m.s}
}
func (m *fakeRepoManager) Categories(dbx.DBTX) categories.Repository { return &fakeCategories{s: m.s} }
func (m *fakeRepoManager) Models(dbx.DBTX) sketchmodels.Repository  { return &fakeModels{s: m.s} }
func (m *fakeRepoManager) Favorites(dbx.DBTX) favorites.Repository  { return &fakeFavorites{s: m.s} }
func (m *fakeRepoManager) Comments(dbx.DBTX) comments.Repository    { return &fakeComments{s: m.s} }

type recordingPublisher struct {
	mu     sync.Mutex
	events []broadcast.ChangeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev broadcast.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []broadcast.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broadcast.ChangeEvent(nil), p.events...)
}

type fakeStorage struct {
	mu         sync.Mutex
	presigned  []string
	deleted    []string
	presignErr error
	deleteErr  error
}

func (f *fakeStorage) PresignPut(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.presigned = append(f.presigned, key)
	return "http://upload/" + key + "?sig=1", nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return "http://download/" + key, nil
}

func (f *fakeStorage) PublicURL(key string) string { return "http://cdn/" + key }

func (f *fakeStorage) DeletePrefix(ctx context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, prefix)
	return f.deleteErr
}

// --- wiring ---

type env struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	store   *memStore
	pub     *recordingPublisher
	storage *fakeStorage
	deps    Deps
}

func newEnv(t *testing.T, strategy string) *env {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	alloc, err := idalloc.New(strategy)
	if err != nil {
		t.Fatalf("idalloc.New error: %v", err)
	}

	e := &env{db: db, mock: mock, store: newMemStore(), pub: &recordingPublisher{}, storage: &fakeStorage{}}
	e.deps = Deps{
		DB:          db,
		Repomanager: &fakeRepoManager{s: e.store},
		IDs:         alloc,
		Publisher:   e.pub,
		Storage:     e.storage,
	}
	return e
}

// expectTx queues the statements of one transaction.
func (e *env) expectTx(commit bool) {
	e.mock.ExpectBegin()
	if commit {
		e.mock.ExpectCommit()
	} else {
		e.mock.ExpectRollback()
	}
}

func (e *env) verify(t *testing.T) {
	t.Helper()
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
