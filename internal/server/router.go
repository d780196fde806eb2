package server

import (
	"net/http"
	"time"

	"github.com/abduss/contactbook/internal/auth"
	"github.com/abduss/contactbook/internal/config"
	"github.com/abduss/contactbook/internal/contact"
	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/metrics"
	"github.com/abduss/contactbook/internal/profile"
	"github.com/abduss/contactbook/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
// Nil services leave their routes unmounted; nil backends skip their readiness check.
type Dependencies struct {
	Config          config.Config
	Logger          *zap.Logger
	DB              dbPinger
	ObjectStore     bucketChecker
	Redis           redisPinger
	AuthService     *auth.Service
	Resolver        *auth.Resolver
	ContactService  *contact.Service
	ProfileService  *profile.Service
	ContactsLimiter ratelimit.Limiter
}

// NewRouter builds a Gin engine with edge middleware and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(deps.Config.HTTP.TrustedProxyCIDRs); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())
	if len(deps.Config.HTTP.CORSOrigins) > 0 {
		router.Use(corsMiddleware(deps.Config.HTTP.CORSOrigins))
	}
	if bans := newBanList(deps.Config.HTTP.BannedIPs, deps.Config.HTTP.BannedUserAgents, log); !bans.empty() {
		router.Use(bans.middleware())
	}

	registerHealthRoutes(router, deps)
	if deps.Config.Metrics.PrometheusPath != "" {
		metrics.Register(router, deps.Config.Metrics.PrometheusPath)
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello World"})
	})

	if deps.AuthService == nil || deps.Resolver == nil {
		return router
	}

	auth.RegisterRoutes(router, deps.AuthService, deps.Resolver)
	auth.RegisterEmailRoutes(router.Group("/api/auth"), deps.AuthService)

	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(deps.Resolver))

	if deps.ContactService != nil {
		var listLimits []gin.HandlerFunc
		if deps.ContactsLimiter != nil {
			window := deps.Config.RateLimit.ContactsWindow
			if window <= 0 {
				window = time.Minute
			}
			listLimits = append(listLimits, ratelimit.Middleware(deps.ContactsLimiter, window))
		}
		contact.RegisterRoutes(protected.Group("/contacts"), deps.ContactService, listLimits...)
	}
	if deps.ProfileService != nil {
		profile.RegisterRoutes(protected.Group("/users"), deps.ProfileService)
	}

	return router
}
