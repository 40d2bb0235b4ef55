package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/client/config"
	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/sketchhub/internal/client/services"
	"github.com/dmitrijs2005/sketchhub/internal/client/subscriber"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/filex"
	"github.com/dmitrijs2005/sketchhub/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// catalogService is the part of services.CatalogService the commands use.
type catalogService interface {
	State() subscriber.State
	Apply(ev subscriber.Event)
	Refresh(ctx context.Context, withUsers bool) error
	LoadLikes(ctx context.Context) error
	IsLiked(modelID int64) bool
	ForgetLikes()
	LoadOffline(ctx context.Context) (time.Time, error)
	Like(ctx context.Context, modelID int64) error
	Unlike(ctx context.Context, modelID int64) error
}

// modelService is the part of services.ModelService the commands use.
type modelService interface {
	Publish(ctx context.Context, in services.NewModel) (*models.Model, error)
	Show(ctx context.Context, id int64) (*models.Model, error)
	Search(ctx context.Context, q string) ([]models.Model, error)
	Popular(ctx context.Context) ([]models.Model, error)
	Delete(ctx context.Context, id int64) error
	Favorites(ctx context.Context) ([]models.Favorite, error)
	Comments(ctx context.Context, modelID int64, limit int) ([]models.Comment, error)
	Comment(ctx context.Context, modelID int64, text string) (*models.Comment, error)
}

type App struct {
	config       *config.Config
	db           *sql.DB
	logger       logging.Logger
	authService  services.AuthService
	catalog      catalogService
	modelService modelService
	reader       *bufio.Reader
	out          io.Writer

	mu       sync.RWMutex
	user     *models.User
	Mode     Mode
	watching atomic.Bool
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	path, err := filex.EnsureParentDir(c.CachePath)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, path)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	logger, err := logging.New(os.Stderr, "warn", "text")
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerURL, services.TokenSaver(db, func(err error) {
		log.Printf("error caching refreshed tokens: %v", err)
	}))

	return &App{
		config:       c,
		db:           db,
		logger:       logger,
		authService:  services.NewAuthService(apiClient, db),
		catalog:      services.NewCatalogService(apiClient, snapshots.NewSQLiteRepository(db)),
		modelService: services.NewModelService(apiClient),
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Mode
}

func (a *App) setUser(u *models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = u
}

func (a *App) currentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *App) isLoggedIn() bool {
	return a.currentUser() != nil
}

func (a *App) isAdmin() bool {
	u := a.currentUser()
	return u != nil && u.Role == common.RoleAdmin
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()
	a.Root(ctx)
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode between online and offline.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(ctx)
	cancel()

	if err != nil {
		if a.mode() == ModeOnline {
			a.setMode(ModeOffline)
		}
	} else {
		if a.mode() != ModeOnline {
			a.setMode(ModeOnline)
		}
	}
}

// StartBroadcastStream keeps the live catalog in step with the server until
// ctx is done. Every (re)subscription re-fetches the lists because events
// sent while disconnected are lost.
func (a *App) StartBroadcastStream(ctx context.Context) {
	sub := subscriber.New(subscriber.Options{
		URL:               a.config.BroadcastURL(),
		ReconnectInterval: a.config.ReconnectInterval,
		Logger:            a.logger,
		OnSubscribed:      a.resync,
		OnEvent:           a.onEvent,
		OnStatus: func(s subscriber.Status) {
			a.logger.Debug(ctx, "broadcast status", "status", s.String())
		},
	})
	if err := sub.Run(ctx); err != nil {
		log.Printf("broadcast stream stopped: %v", err)
	}
}

func (a *App) resync(ctx context.Context) error {
	a.setMode(ModeOnline)
	if err := a.catalog.Refresh(ctx, a.isAdmin()); err != nil {
		return err
	}
	if a.isLoggedIn() {
		return a.catalog.LoadLikes(ctx)
	}
	return nil
}

func (a *App) onEvent(ev subscriber.Event) {
	a.catalog.Apply(ev)
	if a.watching.Load() {
		printlnFn(describeEvent(ev))
	}
}

func describeEvent(ev subscriber.Event) string {
	switch e := ev.(type) {
	case subscriber.ModelCreated:
		return fmt.Sprintf("* new model #%d %q", e.Model.ID, e.Model.Title)
	case subscriber.ModelDeleted:
		return fmt.Sprintf("* model #%d deleted", e.ID)
	case subscriber.FavoriteCountChanged:
		if e.Count != nil {
			return fmt.Sprintf("* model #%d now has %d favorites", e.ModelID, *e.Count)
		}
		return fmt.Sprintf("* model #%d got a favorite", e.ModelID)
	case subscriber.CategoryChanged:
		return fmt.Sprintf("* category #%d %s", e.Category.ID, e.Action)
	case subscriber.UserChanged:
		return fmt.Sprintf("* user #%d %s", e.User.ID, e.Action)
	}
	return fmt.Sprintf("* %s event", ev.Channel())
}
