// Package server wires the SketchHub backend together: PostgreSQL, object
// storage, the broadcast hub with its optional Redis relay, and the HTTP
// server. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/config"
	"github.com/dmitrijs2005/sketchhub/internal/server/httpapi"
	"github.com/dmitrijs2005/sketchhub/internal/server/idalloc"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/dmitrijs2005/sketchhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sketchhub/internal/server/services"
	"github.com/dmitrijs2005/sketchhub/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	relay  *broadcast.RedisRelay
	http   *http.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	slogger, err := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	logger := logging.Logger(slogger)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	ids, err := idalloc.New(c.IDStrategy)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := broadcast.NewHub(c.SubscriberBuffer, logger, m)

	app := &App{config: c, logger: logger, db: db}

	// Only assign the forwarder when the relay exists; a typed nil would
	// defeat the notifier's nil check.
	var fwd broadcast.Forwarder
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		app.relay = broadcast.NewRedisRelay(app.redis, hub, c.RedisChannelPrefix, logger, m)
		fwd = app.relay
	}

	store, err := storage.NewS3Storage(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	deps := services.Deps{
		DB:          db,
		Repomanager: rm,
		IDs:         ids,
		Publisher:   broadcast.NewNotifier(hub, fwd, logger),
		Storage:     store,
		Logger:      logger,
		Metrics:     m,
	}

	router := httpapi.NewRouter(httpapi.Services{
		Auth:       services.NewAuthService(deps, c),
		Favorites:  services.NewFavoriteService(deps),
		Models:     services.NewModelService(deps),
		Categories: services.NewCategoryService(deps),
		Comments:   services.NewCommentService(deps),
		Users:      services.NewUserService(deps),
	}, httpapi.Options{
		SecretKey:      []byte(c.SecretKey),
		CORSOrigins:    c.CORSOrigins,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		Hub:            hub,
		Logger:         logger,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
	})

	app.http = &http.Server{
		Addr:              c.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.http.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.http.Addr)
	if err := app.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startRelay never stops the server: without Redis, events still reach
// this instance's subscribers.
func (app *App) startRelay(ctx context.Context) {
	app.relay.RunWithRetry(ctx, common.Channels)
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.relay != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startRelay(ctx)
		}()
	}

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "app stopped")
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
}
