package handlers

import (
	"malawiexplorer/analytics/middleware"
	"malawiexplorer/analytics/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	FEOrigin    string
	APIKey      string
	Tokens      *utils.TokenIssuer
	RateLimiter *middleware.RateLimiter
	DB          Pinger
	// Warehouse is nil when ClickHouse is disabled.
	Warehouse Pinger

	Auth      *AuthHandlers
	Track     *TrackHandlers
	Analytics *AnalyticsHandlers
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.CORSMiddleware(cfg.FEOrigin))

	r.GET("/health", Health(cfg.DB, cfg.Warehouse))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		track := []gin.HandlerFunc{cfg.Track.TrackPageView}
		if cfg.RateLimiter != nil {
			track = append([]gin.HandlerFunc{cfg.RateLimiter.Middleware()}, track...)
		}
		api.POST("/track", track...)

		api.POST("/login", cfg.Auth.Login)
		api.POST("/logout", cfg.Auth.Logout)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthRequired(cfg.APIKey, cfg.Tokens))
	{
		protected.POST("/signup", cfg.Auth.Signup)
		protected.GET("/profile", cfg.Auth.Profile)

		protected.GET("/analytics/realtime", cfg.Analytics.GetRealTime)
		protected.GET("/analytics/historical", cfg.Analytics.GetHistorical)
		protected.GET("/analytics/sessions", cfg.Analytics.GetSessions)
		protected.GET("/analytics/sessions/:id", cfg.Analytics.GetSession)
		protected.GET("/analytics/top-pages", cfg.Analytics.GetTopPages)
	}
	return r
}
