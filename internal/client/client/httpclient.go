package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
)

// HTTPClient talks to the SketchHub REST API. An access token rejected as
// expired is refreshed once with the stored refresh token and the request
// is replayed.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onTokens     func(access, refresh string)
}

// NewHTTPClient builds a client for baseURL (e.g. http://127.0.0.1:8080).
// onTokens, if set, is called whenever the token pair changes.
func NewHTTPClient(baseURL string, onTokens func(access, refresh string)) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		onTokens: onTokens,
	}
}

func (c *HTTPClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.mu.Unlock()
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) storeTokens(access, refresh string) {
	c.SetTokens(access, refresh)
	if c.onTokens != nil {
		c.onTokens(access, refresh)
	}
}

// apiError maps a non-2xx response onto the shared error taxonomy.
func apiError(status int, body []byte) error {
	var m dto.Message
	_ = json.Unmarshal(body, &m)
	msg := m.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	var kind error
	switch status {
	case http.StatusNotFound:
		kind = common.ErrorNotFound
	case http.StatusBadRequest:
		switch msg {
		case common.ErrorAlreadyFavorited.Error():
			return common.ErrorAlreadyFavorited
		case common.ErrorNotFavorited.Error():
			return common.ErrorNotFavorited
		}
		kind = common.ErrorBadRequest
	case http.StatusUnprocessableEntity:
		kind = common.ErrorValidation
	case http.StatusUnauthorized:
		if msg == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		kind = ErrUnauthorized
	case http.StatusForbidden:
		kind = common.ErrorForbidden
	case http.StatusTooManyRequests:
		kind = common.ErrorRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		kind = ErrUnavailable
	default:
		kind = common.ErrorInternal
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body []byte, auth bool, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		access, _ := c.tokens()
		if access != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+access)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// do sends one API call, refreshing the token pair and retrying once when
// the access token has expired.
func (c *HTTPClient) do(ctx context.Context, method, path string, in any, auth bool, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}

	err := c.send(ctx, method, path, body, auth, out)
	if !auth || !errors.Is(err, common.ErrTokenExpired) {
		return err
	}

	_, refresh := c.tokens()
	if refresh == "" {
		return err
	}
	var pair dto.TokenPair
	if rerr := c.send(ctx, http.MethodPost, "/api/auth/refresh", mustJSON(dto.RefreshRequest{RefreshToken: refresh}), false, &pair); rerr != nil {
		return rerr
	}
	c.storeTokens(pair.Token, pair.RefreshToken)

	return c.send(ctx, method, path, body, auth, out)
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, false, nil)
}

func (c *HTTPClient) Register(ctx context.Context, req dto.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", req, false, nil)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var resp struct {
		User struct {
			models.User
			Token        string `json:"token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", dto.CredentialsRequest{Email: email, Password: password}, false, &resp); err != nil {
		return nil, err
	}
	c.storeTokens(resp.User.Token, resp.User.RefreshToken)
	return &models.Session{User: resp.User.User, AccessToken: resp.User.Token, RefreshToken: resp.User.RefreshToken}, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, true, nil)
	c.storeTokens("", "")
	return err
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func withCursor(path string, cursor int64) string {
	if cursor <= 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "cursor=" + strconv.FormatInt(cursor, 10)
}

func (c *HTTPClient) Models(ctx context.Context, cursor int64) (models.Page[models.Model], error) {
	var p models.Page[models.Model]
	err := c.do(ctx, http.MethodGet, withCursor("/api/models", cursor), nil, false, &p)
	return p, err
}

func (c *HTTPClient) Popular(ctx context.Context) ([]models.Model, error) {
	var items []models.Model
	err := c.do(ctx, http.MethodGet, "/api/models/popular", nil, false, &items)
	return items, err
}

func (c *HTTPClient) Search(ctx context.Context, query string) ([]models.Model, error) {
	var items []models.Model
	err := c.do(ctx, http.MethodGet, "/api/models/search?query="+url.QueryEscape(query), nil, false, &items)
	return items, err
}

func (c *HTTPClient) Model(ctx context.Context, id int64) (*models.Model, error) {
	var m models.Model
	if err := c.do(ctx, http.MethodGet, "/api/models/"+strconv.FormatInt(id, 10), nil, false, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) CreateModel(ctx context.Context, req dto.CreateModelRequest) (*CreatedModel, error) {
	var out CreatedModel
	if err := c.do(ctx, http.MethodPost, "/api/models", req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteModel(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/models/"+strconv.FormatInt(id, 10), nil, true, nil)
}

func (c *HTTPClient) Categories(ctx context.Context) ([]models.Category, error) {
	var items []models.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, false, &items)
	return items, err
}

func (c *HTTPClient) Users(ctx context.Context) ([]models.User, error) {
	var resp struct {
		Data []models.User `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users", nil, true, &resp)
	return resp.Data, err
}

func (c *HTTPClient) AddFavorite(ctx context.Context, modelID int64) error {
	return c.do(ctx, http.MethodPost, "/api/favorites", dto.FavoriteRequest{ModelID: modelID}, true, nil)
}

func (c *HTTPClient) RemoveFavorite(ctx context.Context, modelID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites/"+strconv.FormatInt(modelID, 10), nil, true, nil)
}

func (c *HTTPClient) FavoriteStatus(ctx context.Context, modelID int64) (bool, error) {
	var st dto.FavoriteStatus
	err := c.do(ctx, http.MethodGet, "/api/favorites/status/"+strconv.FormatInt(modelID, 10), nil, true, &st)
	return st.IsFavorited, err
}

func (c *HTTPClient) Favorites(ctx context.Context) ([]models.Favorite, error) {
	var items []models.Favorite
	err := c.do(ctx, http.MethodGet, "/api/favorites", nil, true, &items)
	return items, err
}

func (c *HTTPClient) Comments(ctx context.Context, modelID, cursor int64) (models.Page[models.Comment], error) {
	var p models.Page[models.Comment]
	path := withCursor("/api/comment?model_id="+strconv.FormatInt(modelID, 10), cursor)
	err := c.do(ctx, http.MethodGet, path, nil, false, &p)
	return p, err
}

func (c *HTTPClient) AddComment(ctx context.Context, modelID int64, text string) (*models.Comment, error) {
	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/comment", dto.CommentRequest{ModelID: modelID, Comment: text}, true, &resp); err != nil {
		return nil, err
	}
	return &resp.Comment, nil
}

var _ Client = (*HTTPClient)(nil)
