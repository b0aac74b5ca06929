package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/api/secrets"
	"github.com/hushmap/hushmap/internal/api/social"
	"github.com/hushmap/hushmap/internal/api/stories"
	"github.com/hushmap/hushmap/internal/cache"
	"github.com/hushmap/hushmap/internal/db"
	"github.com/hushmap/hushmap/internal/event"
	"github.com/hushmap/hushmap/internal/feed"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/media"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/internal/validate"
	"github.com/hushmap/hushmap/pkg/config"
	"github.com/hushmap/hushmap/pkg/logging"
	"github.com/hushmap/hushmap/pkg/telemetry"
)

// HealthChecker is a dependency that can report its health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the router wires into the RPC methods
type Deps struct {
	DB         *db.DB
	Cache      *cache.Cache
	Feed       *feed.Service
	Candidates secrets.Invalidator
	Stories    *story.Service
	Media      media.Store
	Events     event.Publisher
	Auth       *identity.Authenticator
	Validator  *validate.Validator
	// DocStore is checked by /health when set
	DocStore HealthChecker

	DefaultRadiusMeters float64
	CandidateWindow     int
	MaxUploadSize       int64
	AllowedOrigins      []string
}

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	deps    Deps
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	if deps.Media == nil {
		deps.Media = media.New(&config.MediaConfig{})
	}
	router := &Router{
		handler: NewJSONRPCHandler(deps.Validator),
		deps:    deps,
		logger:  logging.WithComponent("api-router"),
	}

	router.registerMethods()

	return router
}

// Handler returns the JSON-RPC dispatcher
func (r *Router) Handler() *JSONRPCHandler {
	return r.handler
}

// SetupRoutes installs middleware and routes on engine
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(AccessLog())
	engine.Use(cors.New(r.corsConfig()))
	engine.Use(telemetry.Middleware())
	if r.deps.Auth != nil {
		engine.Use(r.deps.Auth.Middleware())
	}

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/media", identity.RequireUser(), r.uploadHandler)

	// JSON-RPC endpoint
	engine.POST("/rpc", r.handler.Handle)
	engine.POST("/", r.handler.Handle)
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(r.deps.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = r.deps.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	repo := db.NewRepository(r.deps.DB.DB)

	secretsAPI := secrets.NewAPI(repo, r.deps.Feed, r.deps.Candidates, r.deps.Events, secrets.Options{
		DefaultRadiusMeters: r.deps.DefaultRadiusMeters,
		Window:              r.deps.CandidateWindow,
	})
	r.handler.RegisterMethod("secrets.create", secretsAPI.Create)
	r.handler.RegisterMethod("secrets.get", secretsAPI.Get)
	r.handler.RegisterMethod("secrets.get_feed", secretsAPI.GetFeed)
	r.handler.RegisterMethod("secrets.toggle_like", secretsAPI.ToggleLike)
	r.handler.RegisterMethod("secrets.add_comment", secretsAPI.AddComment)
	r.handler.RegisterMethod("secrets.list_comments", secretsAPI.ListComments)

	if r.deps.Stories != nil {
		storiesAPI := stories.NewAPI(r.deps.Stories)
		r.handler.RegisterMethod("stories.create", storiesAPI.Create)
		r.handler.RegisterMethod("stories.list_active", storiesAPI.ListActive)
		r.handler.RegisterMethod("stories.view", storiesAPI.View)
		r.handler.RegisterMethod("stories.delete", storiesAPI.Delete)
	}

	socialAPI := social.NewAPI(repo)
	r.handler.RegisterMethod("social.follow", socialAPI.Follow)
	r.handler.RegisterMethod("social.unfollow", socialAPI.Unfollow)
	r.handler.RegisterMethod("social.get_follow_counts", socialAPI.GetFollowCounts)
	r.handler.RegisterMethod("profile.get", socialAPI.GetProfile)
	r.handler.RegisterMethod("profile.update", socialAPI.UpdateProfile)
}

// healthHandler reports the state of every backing store
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	check := func(name string, hc HealthChecker) {
		if err := hc.Health(ctx); err != nil {
			healthy = false
			checks[name] = err.Error()
			r.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			return
		}
		checks[name] = "ok"
	}

	check("database", r.deps.DB)
	if r.deps.Cache != nil {
		if err := r.deps.Cache.Health(ctx); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			healthy = false
			checks["cache"] = err.Error()
		} else if err == nil {
			checks["cache"] = "ok"
		}
	}
	if r.deps.DocStore != nil {
		check("docstore", r.deps.DocStore)
	}

	status := http.StatusOK
	state := "OK"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "hushmap-api",
		"checks":  checks,
	})
}

// uploadHandler accepts a multipart "file" and returns its hosted URL. The
// optional "destination" field selects secrets, stories or avatars; avatars
// also become the caller's profile picture.
func (r *Router) uploadHandler(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := identity.FromContext(ctx)

	destination := c.DefaultPostForm("destination", "secrets")
	switch destination {
	case "secrets", "stories", "avatars":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown destination"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if r.deps.MaxUploadSize > 0 && fh.Size > r.deps.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	url, err := r.deps.Media.Upload(ctx, data, fh.Header.Get("Content-Type"), destination)
	switch {
	case errors.Is(err, media.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case errors.Is(err, media.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case err != nil:
		r.logger.Error("image upload failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}

	if destination == "avatars" {
		if err := db.NewProfileRepository(db.NewRepository(r.deps.DB.DB)).SetAvatar(ctx, userID, url); err != nil {
			r.logger.Error("failed to set avatar", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}
