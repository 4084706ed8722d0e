package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	appsvc "books-api/internal/app"
	"books-api/internal/bootstrap"
	"books-api/internal/config"
	"books-api/internal/pkg/jwtutil"
	"books-api/internal/pkg/pagination"
	"books-api/internal/pkg/password"
	redisClient "books-api/internal/platform/redis"
	"books-api/internal/ratelimit"
	"books-api/internal/transport/http/handler"
	"books-api/internal/transport/http/middleware"
	"books-api/internal/transport/http/response"
)

// Dependencies are the services behind the HTTP surface. A nil AuthLimiter
// disables throttling of the auth routes.
type Dependencies struct {
	Auth        *appsvc.AuthService
	Books       *appsvc.BookService
	Stream      *appsvc.StreamService
	AuthLimiter ratelimit.Limiter
	Health      []handler.HealthCheck
	StartedAt   time.Time
}

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	gin.SetMode(app.Config.App.GinMode)
	cfg := app.Config
	log := app.Logger

	tokens := jwtutil.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL())
	authService := appsvc.NewAuthService(app.Users, password.NewHasher(cfg.Auth.BcryptCost), tokens, log.WithField("component", "auth"))

	var bookCache appsvc.BookCache
	if app.BookCache != nil {
		bookCache = app.BookCache
	}
	var publisher appsvc.BookEventPublisher
	if app.EventPublisher != nil {
		publisher = app.EventPublisher
	}
	bookService := appsvc.NewBookService(
		app.Books,
		bookCache,
		publisher,
		pagination.Bounds{DefaultSize: cfg.Pagination.DefaultSize, MaxSize: cfg.Pagination.MaxSize},
		log.WithField("component", "books"),
	)
	streamService := appsvc.NewStreamService(cfg.StreamInterval(), cfg.StreamTimeout())

	limiter, err := newAuthLimiter(app)
	if err != nil {
		return nil, err
	}

	return NewEngine(cfg, log, Dependencies{
		Auth:        authService,
		Books:       bookService,
		Stream:      streamService,
		AuthLimiter: limiter,
		Health:      healthChecks(app),
		StartedAt:   app.StartedAt,
	}), nil
}

// NewEngine mounts every route on a fresh gin engine.
func NewEngine(cfg *config.Config, log logrus.FieldLogger, deps Dependencies) *gin.Engine {
	registerTagNames()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	// Forwarding headers only count when they come from a configured proxy;
	// the auth throttle keys on the resulting client ip.
	if err := router.SetTrustedProxies(cfg.App.TrustedProxies); err != nil {
		log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log.WithField("component", "http")),
		middleware.Recovery(log),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.MsgNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, response.MsgMethodNotAllowed)
	})

	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, startedAt, deps.Health)
	router.GET("/", healthHandler.Root)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(deps.Auth, log.WithField("component", "auth"))
	bookHandler := handler.NewBookHandler(deps.Books, log.WithField("component", "books"))
	streamHandler := handler.NewStreamHandler(deps.Stream, log.WithField("component", "stream"))

	v1 := router.Group(cfg.App.APIPrefix)

	registerChain := []gin.HandlerFunc{authHandler.Register}
	tokenChain := []gin.HandlerFunc{authHandler.Login}
	if deps.AuthLimiter != nil {
		registerChain = append([]gin.HandlerFunc{middleware.RateLimit(deps.AuthLimiter, "register", log)}, registerChain...)
		tokenChain = append([]gin.HandlerFunc{middleware.RateLimit(deps.AuthLimiter, "token", log)}, tokenChain...)
	}
	v1.POST("/register", registerChain...)
	v1.POST("/token", tokenChain...)

	books := v1.Group("")
	books.Use(middleware.Auth(deps.Auth, log.WithField("component", "auth")))
	books.POST("/", bookHandler.Create)
	books.GET("/", bookHandler.List)
	books.GET("/stream/updates", streamHandler.Updates)
	books.GET("/:id", bookHandler.Get)
	books.PUT("/:id", bookHandler.Update)
	books.DELETE("/:id", bookHandler.Delete)

	return router
}

var tagNamesOnce sync.Once

func registerTagNames() {
	tagNamesOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(response.JSONTagName)
		}
	})
}

func newAuthLimiter(app *bootstrap.App) (ratelimit.Limiter, error) {
	cfg := app.Config
	if cfg.Auth.RateLimitRequests <= 0 {
		return nil, nil
	}
	if app.Redis != nil {
		return ratelimit.NewRedisLimiter(app.Redis, "books:ratelimit", cfg.Auth.RateLimitRequests, cfg.RateLimitWindow())
	}
	return ratelimit.NewMemoryLimiter(cfg.Auth.RateLimitRequests, cfg.RateLimitWindow())
}

func healthChecks(app *bootstrap.App) []handler.HealthCheck {
	checks := []handler.HealthCheck{{Name: "database"}}
	if app.DB != nil {
		checks[0].Check = func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	redisCheck := handler.HealthCheck{Name: "redis"}
	if app.Redis != nil {
		redisCheck.Check = func(ctx context.Context) error {
			return redisClient.Ping(ctx, app.Redis)
		}
	}

	rabbitCheck := handler.HealthCheck{Name: "rabbitmq"}
	if app.MQConn != nil {
		rabbitCheck.Check = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return append(checks, redisCheck, rabbitCheck)
}
