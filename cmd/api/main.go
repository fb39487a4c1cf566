package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consenthub/config"
	httpHandler "consenthub/internal/adapter/http/handler"
	"consenthub/internal/adapter/http/middleware"
	pgStorage "consenthub/internal/adapter/storage/postgres"
	redisStorage "consenthub/internal/adapter/storage/redis"
	"consenthub/internal/core/ports"
	"consenthub/internal/service"
	"consenthub/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("consenthub-api", cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting ConsentHub API")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories
	partyRepo := pgStorage.NewPartyRepo(pool)
	consentRepo := pgStorage.NewConsentRepo(pool)
	prefRepo := pgStorage.NewPreferenceRepo(pool)
	dsarRepo := pgStorage.NewDSARRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	snapshotRepo := pgStorage.NewSnapshotRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis stores
	statsCache := redisStorage.NewStatsCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Services
	tokenSvc := service.NewJWTTokenService(cfg.Auth.Secret, cfg.Auth.Issuer)
	partySvc := service.NewPartyService(partyRepo, auditRepo, outboxRepo, transactor, log)
	consentSvc := service.NewConsentService(consentRepo, partyRepo, auditRepo, outboxRepo, transactor, log)
	prefSvc := service.NewPreferenceService(prefRepo, partyRepo, auditRepo, outboxRepo, transactor, log)
	dsarSvc := service.NewDSARService(dsarRepo, partyRepo, auditRepo, outboxRepo, transactor, log)
	auditSvc := service.NewAuditService(auditRepo, outboxRepo, statsCache, transactor,
		cfg.Audit.ExportLimit, cfg.Audit.StatsCache, log)
	analyticsSvc := service.NewAnalyticsService(consentRepo, dsarRepo, snapshotRepo, log)
	complianceSvc := service.NewComplianceService(consentRepo, dsarRepo, auditRepo, snapshotRepo, log)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PartyHandler:      httpHandler.NewPartyHandler(partySvc),
		ConsentHandler:    httpHandler.NewConsentHandler(consentSvc),
		PreferenceHandler: httpHandler.NewPreferenceHandler(prefSvc),
		DSARHandler:       httpHandler.NewDSARHandler(dsarSvc),
		AuditHandler:      httpHandler.NewAuditHandler(auditSvc),
		AnalyticsHandler:  httpHandler.NewAnalyticsHandler(analyticsSvc),
		ComplianceHandler: httpHandler.NewComplianceHandler(complianceSvc),
		TokenService:      tokenSvc,
		RateLimitStore:    rateLimitStore,
		RateLimitRules:    middleware.DefaultRateLimitRules(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		HealthCheckers:    []ports.HealthChecker{pgHealth, redisHealth},
		MaxBodyBytes:      maxBodyBytes,
		Log:               log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
