package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-ranking-api/api/swagger"
	"github.com/noah-isme/lms-ranking-api/internal/handler"
	"github.com/noah-isme/lms-ranking-api/internal/middleware"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	"github.com/noah-isme/lms-ranking-api/internal/repository"
	"github.com/noah-isme/lms-ranking-api/internal/scheduler"
	"github.com/noah-isme/lms-ranking-api/internal/service"
	"github.com/noah-isme/lms-ranking-api/pkg/cache"
	"github.com/noah-isme/lms-ranking-api/pkg/config"
	"github.com/noah-isme/lms-ranking-api/pkg/database"
	"github.com/noah-isme/lms-ranking-api/pkg/jobs"
	"github.com/noah-isme/lms-ranking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-ranking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-ranking-api/pkg/middleware/requestid"
)

// @title LMS Ranking API
// @version 1.0.0
// @description Student rankings and gamified leaderboards for the LMS
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and leases", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metricsSvc,
		cfg.Ranking.CacheTTL,
		logr,
		cfg.Ranking.CacheEnabled && redisClient != nil,
	)
	validate := validator.New()

	performanceRepo := repository.NewPerformanceRepository(db)
	rankingRepo := repository.NewRankingRepository(db)
	scopeRepo := repository.NewScopeRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	pointRepo := repository.NewPointRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	leaseRepo := repository.NewLeaseRepository(redisClient)

	tiePolicy := service.ParseTiePolicy(cfg.Ranking.TiePolicy)
	rankingSvc := service.NewRankingService(performanceRepo, rankingRepo, scopeRepo, cacheSvc, metricsSvc, tiePolicy, cfg.Ranking.CacheTTL, logr)
	leaderboardSvc := service.NewLeaderboardService(leaderboardRepo, pointRepo, scopeRepo, cacheSvc, metricsSvc, validate, service.LeaderboardOptions{
		Location:      cfg.Ranking.Location(),
		EntriesPublic: cfg.Ranking.EntriesPublicDefault,
		TiePolicy:     tiePolicy,
		CacheTTL:      cfg.Ranking.CacheTTL,
	}, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, scopeRepo, rankingSvc, validate, metricsSvc, logr)
	ingestSvc := service.NewIngestService(performanceRepo, pointRepo, validate, logr)
	exportSvc := service.NewExportService(rankingSvc, leaderboardSvc, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner := instanceOwner()
	queue := jobs.NewQueue("ranking-jobs",
		scheduler.NewJobHandler(scheduleSvc, leaderboardSvc, scheduler.JobLock{Locker: leaseRepo, Owner: owner, TTL: cfg.Scheduler.LeaseTTL}, logr),
		jobs.QueueConfig{
			Workers:    cfg.Worker.Concurrency,
			MaxRetries: cfg.Worker.Retries,
			RetryDelay: cfg.Worker.RetryDelay,
			Logger:     logr,
		})
	queue.Start(ctx)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(queue, leaseRepo, scheduler.Config{
			RankingSpec:     cfg.Scheduler.RankingCron,
			LeaderboardSpec: cfg.Scheduler.LeaderboardCron,
			LeaseTTL:        cfg.Scheduler.LeaseTTL,
			Owner:           owner,
			Location:        cfg.Ranking.Location(),
		}, logr)
		if err != nil {
			logr.Fatal("failed to configure scheduler", zap.Error(err))
		}
		sched.Start()
	}
	if cfg.Scheduler.RunDueOnStartup {
		if _, err := queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobs.TypeRunDueSchedules, Key: jobs.TypeRunDueSchedules}); err != nil {
			logr.Warn("startup schedule run not queued", zap.Error(err))
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readinessChecks(db, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		tokens:       tokenSvc,
		logger:       logr,
		rankings:     handler.NewRankingHandler(rankingSvc),
		leaderboards: handler.NewLeaderboardHandler(leaderboardSvc, queue),
		schedules:    handler.NewScheduleHandler(scheduleSvc, queue),
		ingest:       handler.NewIngestHandler(ingestSvc),
		exports:      handler.NewExportHandler(exportSvc),
		metrics:      metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	queue.Stop()
}

type routeDeps struct {
	tokens       middleware.TokenValidator
	logger       *zap.Logger
	rankings     *handler.RankingHandler
	leaderboards *handler.LeaderboardHandler
	schedules    *handler.ScheduleHandler
	ingest       *handler.IngestHandler
	exports      *handler.ExportHandler
	metrics      *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	api.Use(middleware.JWT(d.tokens))
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher)
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(d.logger, action) }

	rankings := api.Group("/rankings")
	rankings.GET("", staff, d.rankings.List)
	rankings.GET("/export", staff, d.exports.Rankings)
	rankings.POST("/grade-levels/:gradeLevelId/overall", admin, audit("rankings.generate_overall"), d.rankings.GenerateOverall)
	rankings.POST("/grade-levels/:gradeLevelId/subjects/:subjectId", admin, audit("rankings.generate_subject"), d.rankings.GenerateSubject)
	api.GET("/users/:id/rankings", middleware.RequireSelfOrRoles("id", models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher), d.rankings.UserRankings)

	leaderboards := api.Group("/leaderboards")
	leaderboards.GET("", d.leaderboards.List)
	leaderboards.POST("", admin, audit("leaderboards.create"), d.leaderboards.Create)
	leaderboards.POST("/refresh", admin, audit("leaderboards.refresh_all"), d.leaderboards.RefreshAll)
	leaderboards.GET("/:id", d.leaderboards.Get)
	leaderboards.PUT("/:id", admin, audit("leaderboards.update"), d.leaderboards.Update)
	leaderboards.DELETE("/:id", admin, audit("leaderboards.delete"), d.leaderboards.Delete)
	leaderboards.POST("/:id/refresh", admin, audit("leaderboards.refresh"), d.leaderboards.Refresh)
	leaderboards.GET("/:id/entries", d.leaderboards.Entries)
	leaderboards.GET("/:id/entries/:userId", d.leaderboards.UserStanding)
	leaderboards.GET("/:id/export", d.exports.Leaderboard)

	schedules := api.Group("/ranking-schedules", admin)
	schedules.GET("", d.schedules.List)
	schedules.POST("", audit("schedules.create"), d.schedules.Create)
	schedules.POST("/run-due", audit("schedules.run_due"), d.schedules.RunDue)
	schedules.POST("/:id/run", audit("schedules.run"), d.schedules.RunNow)

	api.POST("/performance-records", admin, d.ingest.RecordPerformance)
	api.POST("/user-points", admin, d.ingest.AwardPoints)

	api.GET("/system/metrics", admin, d.metrics.Summary)
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	return checks
}

func instanceOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "ranking-api"
	}
	return host + "-" + uuid.NewString()[:8]
}
