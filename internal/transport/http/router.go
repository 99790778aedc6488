package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/transport/http/middleware"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Handlers struct {
	Handoff *HandoffHandler
	Search  *SearchHandler
	Health  *HealthHandler
	Auth    middleware.TokenValidator
}

func NewRouter(cfg RouterConfig, h Handlers, log logrus.FieldLogger) *gin.Engine {
	errs := NewErrorResponder(log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))

	// Pre-flight for every path, known or not.
	router.OPTIONS("/*path", func(c *gin.Context) {})

	router.GET("/healthz", h.Health.Healthz)

	// Public: the code itself is the capability.
	router.POST("/handoff/redeem", h.Handoff.Redeem)

	authMW := middleware.AuthMiddleware(h.Auth, errs.Write, log)

	protected := router.Group("/")
	protected.Use(authMW)
	{
		protected.POST("/handoff/create", h.Handoff.Create)
		protected.POST("/search", h.Search.Search)
	}

	return router
}
