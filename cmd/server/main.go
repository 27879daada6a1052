package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"hobby_forum/docs"
	_ "hobby_forum/internal/domain/forum"
	"hobby_forum/internal/pkg/config"
	"hobby_forum/internal/pkg/middleware"
	"hobby_forum/internal/pkg/registry"
	"hobby_forum/pkg/cache"
	"hobby_forum/pkg/database"
	"hobby_forum/pkg/logger"
	"hobby_forum/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// @title Hobby Forum API
// @version 1.0
// @description 兴趣社区论坛：投票、热度排序、评论树与 feed 分页
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 配置
	config.LoadConfig()
	cfg := config.GlobalConfig

	// 2. 日志
	zl, err := logger.InitLogger(cfg.Log.Level, cfg.App.Debug)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. 存储与缓存
	var db *gorm.DB
	if cfg.Storage.Driver == "postgres" {
		db, err = database.InitDatabase(cfg.Database, cfg.App.Debug, zl)
		if err != nil {
			zl.Fatal("init database failed", zap.Error(err))
		}
	}

	var rdb *redis.Client
	var pageCache cache.CacheService
	switch cfg.Cache.Driver {
	case "redis":
		rdb, err = database.InitRedis(cfg.Redis, zl)
		if err != nil {
			zl.Fatal("init redis failed", zap.Error(err))
		}
		defer rdb.Close()
		pageCache = cache.NewRedisCache(rdb, "forum:")
	default:
		pageCache, err = cache.NewLocalCache(cfg.Cache.Size)
		if err != nil {
			zl.Fatal("init local cache failed", zap.Error(err))
		}
	}

	// 4. 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetricsCollector(reg)

	// 5. 路由与中间件
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(zl),
		middleware.MetricsMiddleware(m),
		corsMiddleware(cfg.CORS),
	)
	if cfg.Server.RateLimit > 0 {
		limiter, err := middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst, 10000)
		if err != nil {
			zl.Fatal("init rate limiter failed", zap.Error(err))
		}
		r.Use(middleware.RateLimitMiddleware(limiter))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	docs.SwaggerInfo.BasePath = "/api/v1"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 6. 模块
	moduleCtx := &registry.ModuleContext{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Cache:   pageCache,
		Router:  r,
		API:     r.Group("/api/v1"),
		Logger:  zl,
		Metrics: m,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		zl.Fatal("init modules failed", zap.Error(err))
	}

	// 7. 启动与优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	zl.Info("server exited")
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"},
		ExposeHeaders: []string{"X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
