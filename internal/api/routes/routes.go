package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/ipguard/internal/api/handlers"
	"github.com/Wikid82/ipguard/internal/api/middleware"
	"github.com/Wikid82/ipguard/internal/cerberus"
	"github.com/Wikid82/ipguard/internal/config"
	"github.com/Wikid82/ipguard/internal/geoip"
	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/metrics"
	"github.com/Wikid82/ipguard/internal/services"
)

// Register wires up API routes and returns the anomaly service so the caller
// can own its scheduler lifecycle.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) (*services.AnomalyService, error) {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	denylistService := services.NewDenylistService(db)
	auditService := services.NewAuditService(db)
	findingService := services.NewFindingService(db)

	alerts, err := services.NewAlertService(cfg.Notify.URLs, logger.Component("alerts"))
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	anomalyService, err := services.NewAnomalyService(auditService, findingService, alerts, cfg.Anomaly, logger.Component("anomaly"))
	if err != nil {
		return nil, err
	}

	deps := cerberus.Deps{
		Denylist: denylistService,
		Audit:    auditService,
		Log:      logger.Component("cerberus"),
	}
	// A nil *geoip.Cache must not be stored in the interface.
	if geo := geoip.NewFromConfig(cfg.Geo, logger.Component("geoip")); geo != nil {
		deps.Geo = geo
	}
	cerb := cerberus.New(cfg.Security, deps)

	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if cfg.Security.AdminToken != "" {
		admin := router.Group("/api/v1/admin")
		admin.Use(middleware.AdminAuth(cfg.Security.AdminToken))

		denylistHandler := handlers.NewDenylistHandler(denylistService)
		admin.GET("/denylist", denylistHandler.List)
		admin.POST("/denylist", denylistHandler.Block)
		admin.DELETE("/denylist/:address", denylistHandler.Unblock)

		admin.GET("/audit", handlers.NewAuditHandler(auditService).List)

		findingHandler := handlers.NewFindingHandler(findingService)
		admin.GET("/findings", findingHandler.List)
		admin.POST("/findings/:id/resolve", findingHandler.Resolve)

		admin.POST("/anomaly/run", handlers.NewAnomalyHandler(anomalyService).Run)
	} else {
		logger.Log().Warn("IPGUARD_ADMIN_TOKEN not set; admin API disabled")
	}

	protected := router.Group("/")
	protected.Use(cerb.Middleware())

	clientKey := func(c *gin.Context) string { return cerb.ClientIPFromContext(c) }
	loginLimiter := middleware.NewRateLimiter(cfg.Security.LoginRatePerMinute)
	sensitiveLimiter := middleware.NewRateLimiter(cfg.Security.SensitiveRatePerMinute)

	protected.POST("/login", middleware.RateLimit(loginLimiter, clientKey), handlers.LoginHandler)
	protected.GET("/sensitive-auth", middleware.RateLimit(sensitiveLimiter, clientKey), handlers.SensitiveHandler)

	// Anything else still passes through the pipeline so it is gated and
	// audited before the 404.
	router.NoRoute(cerb.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return anomalyService, nil
}
