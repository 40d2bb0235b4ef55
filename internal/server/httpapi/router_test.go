package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/auth"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// --- fakes ---

type fakeAuth struct {
	AuthService
	user *models.User
	pair *services.TokenPair
	err  error
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error) {
	return f.user, f.pair, f.err
}

func (f *fakeAuth) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	return f.user, f.err
}

type fakeFavorites struct {
	FavoriteService
	addErr    error
	removeErr error
	status    bool
	calls     []int64
}

func (f *fakeFavorites) Add(ctx context.Context, userID, modelID int64) (*models.Favorite, error) {
	f.calls = append(f.calls, userID)
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.Favorite{ID: 1, UserID: userID, ModelID: modelID}, nil
}

func (f *fakeFavorites) Remove(ctx context.Context, userID, modelID int64) error {
	return f.removeErr
}

func (f *fakeFavorites) Status(ctx context.Context, userID, modelID int64) (bool, error) {
	return f.status, nil
}

type fakeModels struct {
	ModelService
	err error
}

func (f *fakeModels) Search(ctx context.Context, query string) ([]models.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Model{{ID: 1, Title: query}}, nil
}

func (f *fakeModels) List(ctx context.Context, cursor int64) (models.Page[models.Model], error) {
	next := int64(5)
	return models.Page[models.Model]{Data: []models.Model{{ID: cursor + 1}}, NextCursor: &next}, nil
}

func (f *fakeModels) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	return f.err
}

type fakeUsers struct {
	UserService
}

func (f *fakeUsers) List(ctx context.Context) ([]models.User, error) {
	return []models.User{{ID: 1, Role: common.RoleAdmin}}, nil
}

type fakeCategories struct {
	CategoryService
}

func (f *fakeCategories) List(ctx context.Context) ([]models.Category, error) {
	return []models.Category{{ID: 1, Title: "Cars", Code: "cars"}}, nil
}

// --- helpers ---

type testServer struct {
	router *gin.Engine
	fav    *fakeFavorites
	models *fakeModels
	auth   *fakeAuth
	hub    *broadcast.Hub
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ts := &testServer{
		fav:    &fakeFavorites{},
		models: &fakeModels{},
		auth:   &fakeAuth{},
		hub:    broadcast.NewHub(8, logging.Nop(), m),
	}
	opts := Options{
		SecretKey:      secret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Hub:            ts.hub,
		Metrics:        m,
		Gatherer:       reg,
	}
	if mutate != nil {
		mutate(&opts)
	}
	ts.router = NewRouter(Services{
		Auth:       ts.auth,
		Favorites:  ts.fav,
		Models:     ts.models,
		Categories: &fakeCategories{},
		Users:      &fakeUsers{},
	}, opts)
	return ts
}

func token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Identity{UserID: userID, Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, path, tok, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

// --- tests ---

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", common.ErrorNotFound), http.StatusNotFound},
		{common.ErrorConflict, http.StatusBadRequest},
		{common.ErrorAlreadyFavorited, http.StatusBadRequest},
		{fmt.Errorf("remove: %w", common.ErrorNotFavorited), http.StatusBadRequest},
		{common.ErrorBadRequest, http.StatusBadRequest},
		{common.ErrorValidation, http.StatusUnprocessableEntity},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
		{common.ErrorForbidden, http.StatusForbidden},
		{common.ErrorRateLimited, http.StatusTooManyRequests},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/favorites/status/1", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/favorites/status/1", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := auth.GenerateToken(auth.Identity{UserID: 1}, secret, -time.Minute)
	require.NoError(t, err)
	w = ts.do(http.MethodGet, "/api/favorites/status/1", expired, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, common.ErrTokenExpired.Error(), message(t, w))

	w = ts.do(http.MethodGet, "/api/users", token(t, 1, common.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/api/users", token(t, 1, common.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFavoritesEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	tok := token(t, 7, common.RoleUser)

	w := ts.do(http.MethodPost, "/api/favorites", tok, `{"model_id": 42}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Message  string          `json:"message"`
		Favorite models.Favorite `json:"favorite"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(42), created.Favorite.ModelID)
	assert.Equal(t, int64(7), created.Favorite.UserID)

	ts.fav.addErr = fmt.Errorf("error adding favorite: %w", common.ErrorAlreadyFavorited)
	w = ts.do(http.MethodPost, "/api/favorites", tok, `{"model_id": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "this model is already in favorites", message(t, w))

	ts.fav.addErr = fmt.Errorf("model 43: %w", common.ErrorNotFound)
	w = ts.do(http.MethodPost, "/api/favorites", tok, `{"model_id": 43}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.fav.removeErr = fmt.Errorf("error removing favorite: %w", common.ErrorNotFavorited)
	w = ts.do(http.MethodDelete, "/api/favorites/42", tok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "this model is not in favorites", message(t, w))

	ts.fav.status = true
	w = ts.do(http.MethodGet, "/api/favorites/status/42", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isFavorited": true}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/favorites/status/abc", tok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/favorites", tok, `{"model_id": `)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.RateLimitRPS = 0.001
		o.RateLimitBurst = 1
	})

	w := ts.do(http.MethodPost, "/api/favorites", token(t, 7, common.RoleUser), `{"model_id": 1}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodPost, "/api/favorites", token(t, 7, common.RoleUser), `{"model_id": 2}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// other users have their own bucket
	w = ts.do(http.MethodPost, "/api/favorites", token(t, 8, common.RoleUser), `{"model_id": 2}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, []int64{7, 8}, ts.fav.calls)
}

func TestInternalErrorIsHidden(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.models.err = errors.New("pq: connection refused")

	w := ts.do(http.MethodGet, "/api/models/search?query=car", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestModelsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/models?cursor=10", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"id":11,"author_id":0,"category_id":null,"title":"","description":null,"favorite_count":0,"preview_image_url":null,"env_map_url":null,"model_glb_url":null,"file_url":"","created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}],"next_cursor":5}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/models?cursor=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.models.err = fmt.Errorf("%w: search query is required", common.ErrorBadRequest)
	w = ts.do(http.MethodGet, "/api/models/search", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.models.err = fmt.Errorf("%w: only the author", common.ErrorForbidden)
	w = ts.do(http.MethodDelete, "/api/models/3", token(t, 2, common.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginResponse(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.auth.user = &models.User{ID: 3, Name: "Anna", Email: "anna@example.com", Role: common.RoleUser, PasswordHash: "hash"}
	ts.auth.pair = &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}

	w := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"anna@example.com","password":"x"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "acc", body.User["token"])
	assert.Equal(t, "ref", body.User["refresh_token"])
	assert.Equal(t, common.RoleUser, body.User["role"])
	assert.NotContains(t, body.User, "password_hash")

	ts.auth.err = common.ErrorUnauthorized
	w = ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"anna@example.com","password":"y"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthMetricsCategories(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health", "", "").Code)

	w := ts.do(http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"title":"Cars","code":"cars"}]`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = ts.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sketchhub_http_requests_total")
}

func TestWebSocketStream(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/broadcasting/ws?channel=" + common.ChannelModels
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var ack broadcast.Envelope
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, common.EventSubscribed, ack.Event)
	assert.Equal(t, common.ChannelModels, ack.Channel)

	require.Eventually(t, func() bool { return ts.hub.Subscribers(common.ChannelModels) == 1 }, time.Second, 10*time.Millisecond)

	env, err := broadcast.Encode(broadcast.FavoriteCountChanged{ModelID: 42, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, ts.hub.Deliver(context.Background(), env))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got broadcast.Envelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, common.EventFavoriteCount, got.Event)
	assert.JSONEq(t, `{"post_id":42,"favorite_count":2}`, string(got.Data))

	conn.Close()
	require.Eventually(t, func() bool { return ts.hub.Subscribers(common.ChannelModels) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketUnknownChannel(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/broadcasting/ws?channel=private-stuff"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(r))
}
