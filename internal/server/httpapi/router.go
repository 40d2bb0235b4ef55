// Package httpapi exposes the SketchHub services over REST/JSON under /api
// and streams broadcast envelopes over WebSocket.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/auth"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/dmitrijs2005/sketchhub/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	CheckCredentials(ctx context.Context, email, password string) (*models.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
}

type FavoriteService interface {
	Add(ctx context.Context, userID, modelID int64) (*models.Favorite, error)
	Remove(ctx context.Context, userID, modelID int64) error
	Status(ctx context.Context, userID, modelID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]models.Favorite, error)
}

type ModelService interface {
	List(ctx context.Context, cursor int64) (models.Page[models.Model], error)
	ByCategory(ctx context.Context, code string, cursor int64) (models.Page[models.Model], error)
	Popular(ctx context.Context) ([]models.Model, error)
	Search(ctx context.Context, query string) ([]models.Model, error)
	Get(ctx context.Context, id int64) (*models.Model, error)
	Create(ctx context.Context, authorID int64, in services.CreateModelInput) (*services.CreatedModel, error)
	Delete(ctx context.Context, caller auth.Identity, id int64) error
}

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, title, code string) (*models.Category, error)
	Update(ctx context.Context, id int64, title, code *string) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
}

type CommentService interface {
	List(ctx context.Context, modelID, cursor int64) (models.Page[models.Comment], error)
	Create(ctx context.Context, userID, modelID int64, text string) (*models.Comment, error)
}

type UserService interface {
	Me(ctx context.Context, userID int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Roles(ctx context.Context) ([]models.Role, error)
	ChangeRole(ctx context.Context, userID int64, role string) (*models.User, error)
	Delete(ctx context.Context, callerID, userID int64) error
	UpdateProfileImage(ctx context.Context, userID int64) (*services.ProfileUpload, error)
}

// Services is everything the router dispatches to.
type Services struct {
	Auth       AuthService
	Favorites  FavoriteService
	Models     ModelService
	Categories CategoryService
	Comments   CommentService
	Users      UserService
}

type Options struct {
	SecretKey      []byte
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	Hub            *broadcast.Hub
	Logger         logging.Logger
	Metrics        *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type handler struct {
	svc    Services
	hub    *broadcast.Hub
	logger logging.Logger
	ws     *wsServer
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(svc Services, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("module", "http")

	h := &handler{svc: svc, hub: opts.Hub, logger: logger}
	h.ws = newWSServer(opts.Hub, opts.CORSOrigins, logger, opts.Metrics)

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), observe(opts.Metrics))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	authed := authRequired(opts.SecretKey)
	admin := adminOnly()
	limited := newUserLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware()

	api := r.Group("/api")

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/auth/check-credentials", h.checkCredentials)
	api.POST("/auth/refresh", h.refresh)

	api.GET("/models", h.listModels)
	api.GET("/models/popular", h.popularModels)
	api.GET("/models/search", h.searchModels)
	api.GET("/models/category/:code", h.modelsByCategory)
	api.GET("/models/:id", h.showModel)
	api.GET("/comment", h.listComments)
	api.GET("/categories", h.listCategories)

	api.GET("/broadcasting/ws", h.ws.serve)

	private := api.Group("", authed)
	private.POST("/auth/logout", h.logout)
	private.GET("/user", h.me)
	private.POST("/update/profile", h.updateProfileImage)

	private.GET("/favorites", h.listFavorites)
	private.GET("/favorites/status/:modelId", h.favoriteStatus)
	private.POST("/favorites", limited, h.addFavorite)
	private.DELETE("/favorites/:modelId", limited, h.removeFavorite)
	private.POST("/comment", limited, h.createComment)

	private.POST("/models", h.createModel)
	private.DELETE("/models/:id", h.deleteModel)

	adm := private.Group("", admin)
	adm.GET("/users", h.listUsers)
	adm.PATCH("/users/:id", h.changeRole)
	adm.DELETE("/users/:id", h.deleteUser)
	adm.GET("/roles", h.listRoles)
	adm.POST("/categories", h.createCategory)
	adm.PUT("/categories/:id", h.updateCategory)
	adm.DELETE("/categories/:id", h.deleteCategory)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
