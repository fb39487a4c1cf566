package handler

import (
	"consenthub/internal/adapter/http/middleware"
	redisStore "consenthub/internal/adapter/storage/redis"
	"consenthub/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps bundles everything the router needs. Nil optional fields
// disable the corresponding feature (rate limiting, health checks).
type RouterDeps struct {
	PartyHandler      *PartyHandler
	ConsentHandler    *ConsentHandler
	PreferenceHandler *PreferenceHandler
	DSARHandler       *DSARHandler
	AuditHandler      *AuditHandler
	AnalyticsHandler  *AnalyticsHandler
	ComplianceHandler *ComplianceHandler

	TokenService   ports.TokenService
	RateLimitStore *redisStore.RateLimitStore
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	MaxBodyBytes   int64
	Log            zerolog.Logger
}

// SetupRouter wires middleware and routes onto a gin engine.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Log))
	router.Use(middleware.Metrics())
	if deps.MaxBodyBytes > 0 {
		router.Use(middleware.MaxBodySize(deps.MaxBodyBytes))
	}

	router.GET("/health", HealthCheck(deps.HealthCheckers...))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// rl returns a rate limiter for the named group, or a noop when the
	// store is absent.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := deps.RateLimitRules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Log)
	}

	auth := middleware.TokenAuth(deps.TokenService, deps.Log)
	staff := middleware.RequireRole(middleware.RoleCSR, middleware.RoleAdmin)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(auth, rl("api"))

	parties := v1.Group("/parties")
	{
		parties.POST("", staff, deps.PartyHandler.Create)
		parties.GET("", staff, deps.PartyHandler.List)
		parties.GET("/:id", deps.PartyHandler.Get)
		parties.PUT("/:id", staff, deps.PartyHandler.Update)
		parties.DELETE("/:id", staff, deps.PartyHandler.Deactivate)
	}

	consents := v1.Group("/consents")
	{
		consents.POST("", staff, deps.ConsentHandler.Create)
		consents.GET("", staff, deps.ConsentHandler.List)
		consents.GET("/:id", deps.ConsentHandler.Get)
		consents.POST("/:id/grant", staff, deps.ConsentHandler.Grant)
		consents.POST("/:id/revoke", staff, deps.ConsentHandler.Revoke)
		consents.GET("/party/:partyId", deps.ConsentHandler.ListByParty)
	}

	preferences := v1.Group("/preferences")
	{
		preferences.POST("", staff, deps.PreferenceHandler.Create)
		preferences.GET("", staff, deps.PreferenceHandler.List)
		preferences.GET("/:id", deps.PreferenceHandler.Get)
		preferences.PUT("/:id", staff, deps.PreferenceHandler.Update)
		preferences.DELETE("/:id", staff, deps.PreferenceHandler.Delete)
		preferences.GET("/party/:partyId", deps.PreferenceHandler.ListByParty)
	}

	dsar := v1.Group("/dsar")
	{
		// Customers may file and track their own requests.
		dsar.POST("", deps.DSARHandler.Submit)
		dsar.GET("", staff, deps.DSARHandler.List)
		dsar.GET("/overdue", staff, deps.DSARHandler.ListOverdue)
		dsar.GET("/:id", deps.DSARHandler.Get)
		dsar.PUT("/:id/status", staff, deps.DSARHandler.UpdateStatus)
		dsar.GET("/party/:partyId", deps.DSARHandler.ListByParty)
	}

	audit := v1.Group("/audit")
	audit.Use(staff)
	{
		audit.GET("", deps.AuditHandler.Query)
		audit.GET("/statistics", deps.AuditHandler.Statistics)
		audit.GET("/export", admin, rl("audit_export"), deps.AuditHandler.Export)
	}

	analytics := v1.Group("/analytics")
	analytics.Use(admin)
	{
		analytics.GET("/consents", deps.AnalyticsHandler.ListConsents)
		analytics.GET("/dsar", deps.AnalyticsHandler.ListDSAR)
		analytics.POST("/recompute", rl("recompute"), deps.AnalyticsHandler.Recompute)
	}

	compliance := v1.Group("/compliance")
	compliance.Use(admin)
	{
		compliance.POST("/reports", deps.ComplianceHandler.Generate)
		compliance.GET("/reports", deps.ComplianceHandler.List)
		compliance.GET("/reports/:id", deps.ComplianceHandler.Get)
	}

	return router
}
