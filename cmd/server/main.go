package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/api"
	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/database"
	"github.com/jengzang/records-timeline-go/internal/handler"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/middleware"
	"github.com/jengzang/records-timeline-go/internal/service"
	"github.com/jengzang/records-timeline-go/internal/timeline"
)

func main() {
	// 加载配置
	cfg, envErr := config.Load(".env")

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Warn("ignoring env file", zap.Error(envErr))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	timelineCfg, err := config.LoadTimelineConfig(cfg.TimelineConfigPath)
	if err != nil {
		logger.Fatal("failed to load timeline config", zap.Error(err))
	}

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath, Logger: logger})
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	processor := timeline.NewStreamProcessor(
		timeline.NewDataGapService(),
		timeline.NewFinalizationService(logger),
		logger,
	)
	timelineService := service.NewTimelineService(db, processor, timelineCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.Run(ctx)

	// 初始化路由
	router := api.SetupRouter(cfg, handler.NewTimelineHandler(timelineService), limiter, logger)

	server := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
