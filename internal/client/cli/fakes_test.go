package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/client/services"
	"github.com/dmitrijs2005/sketchhub/internal/client/subscriber"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
)

// capturePrintln collects everything the commands print.
func capturePrintln(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(&buf, a...) }
	t.Cleanup(func() { printlnFn = orig })
	return &buf
}

// stubAnswers makes getSimpleText and getMultiline return answers in order.
func stubAnswers(t *testing.T, answers ...string) {
	t.Helper()
	origST, origML := getSimpleText, getMultiline
	next := func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getSimpleText, getMultiline = next, next
	t.Cleanup(func() { getSimpleText, getMultiline = origST, origML })
}

func stubPasswords(t *testing.T, pw, confirmation string) {
	t.Helper()
	origGP, origGC := getPassword, getPasswordConfirmation
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	getPasswordConfirmation = func(io.Writer) ([]byte, error) { return []byte(confirmation), nil }
	t.Cleanup(func() { getPassword, getPasswordConfirmation = origGP, origGC })
}

type fakeAuth struct {
	regReq dto.RegisterRequest
	regErr error

	loginEmail string
	loginPass  string
	session    *models.Session
	loginErr   error

	restored   *models.Session
	restoreErr error

	logoutCalled bool
	logoutErr    error

	pingErr error
}

func (f *fakeAuth) Login(_ context.Context, email string, pw []byte) (*models.Session, error) {
	f.loginEmail, f.loginPass = email, string(pw)
	return f.session, f.loginErr
}

func (f *fakeAuth) Restore(context.Context) (*models.Session, error) {
	return f.restored, f.restoreErr
}

func (f *fakeAuth) Register(_ context.Context, req dto.RegisterRequest) error {
	f.regReq = req
	return f.regErr
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return f.logoutErr
}

func (f *fakeAuth) Ping(context.Context) error { return f.pingErr }

type fakeCatalog struct {
	state      subscriber.State
	liked      map[int64]bool
	applied    []subscriber.Event
	refreshes  int
	withUsers  bool
	refreshErr error
	likesLoads int
	offlineAt  time.Time
	offlineErr error
	toggleErr  error
	forgotten  bool
}

func (f *fakeCatalog) State() subscriber.State { return f.state }

func (f *fakeCatalog) Apply(ev subscriber.Event) {
	f.applied = append(f.applied, ev)
	f.state = subscriber.Apply(f.state, ev)
}

func (f *fakeCatalog) Refresh(_ context.Context, withUsers bool) error {
	f.refreshes++
	f.withUsers = withUsers
	return f.refreshErr
}

func (f *fakeCatalog) LoadLikes(context.Context) error { f.likesLoads++; return nil }
func (f *fakeCatalog) IsLiked(id int64) bool           { return f.liked[id] }
func (f *fakeCatalog) ForgetLikes()                    { f.forgotten = true }

func (f *fakeCatalog) LoadOffline(context.Context) (time.Time, error) {
	return f.offlineAt, f.offlineErr
}

func (f *fakeCatalog) Like(_ context.Context, id int64) error {
	if f.toggleErr != nil {
		return f.toggleErr
	}
	f.Apply(subscriber.FavoriteCountChanged{ModelID: id})
	return nil
}

func (f *fakeCatalog) Unlike(_ context.Context, id int64) error { return f.toggleErr }

type fakeModels struct {
	published *services.NewModel
	model     *models.Model
	list      []models.Model
	favorites []models.Favorite
	comments  []models.Comment
	deleted   int64
	query     string
	text      string
	err       error
}

func (f *fakeModels) Publish(_ context.Context, in services.NewModel) (*models.Model, error) {
	f.published = &in
	return f.model, f.err
}
func (f *fakeModels) Show(context.Context, int64) (*models.Model, error) { return f.model, f.err }
func (f *fakeModels) Search(_ context.Context, q string) ([]models.Model, error) {
	f.query = q
	return f.list, f.err
}
func (f *fakeModels) Popular(context.Context) ([]models.Model, error) { return f.list, f.err }
func (f *fakeModels) Delete(_ context.Context, id int64) error {
	f.deleted = id
	return f.err
}
func (f *fakeModels) Favorites(context.Context) ([]models.Favorite, error) {
	return f.favorites, f.err
}
func (f *fakeModels) Comments(context.Context, int64, int) ([]models.Comment, error) {
	return f.comments, f.err
}
func (f *fakeModels) Comment(_ context.Context, _ int64, text string) (*models.Comment, error) {
	f.text = text
	return &models.Comment{ID: 77, Comment: text}, f.err
}

func newTestApp(auth *fakeAuth, cat *fakeCatalog, ms *fakeModels) *App {
	return &App{
		authService:  auth,
		catalog:      cat,
		modelService: ms,
		reader:       bufio.NewReader(strings.NewReader("")),
		out:          io.Discard,
	}
}
