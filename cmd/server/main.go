package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/artwall/internal/config"
	"github.com/artwall/internal/db"
	"github.com/artwall/internal/handler"
	"github.com/artwall/internal/router"
	"github.com/artwall/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	gdb, err := db.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	galleries := service.NewGalleryService(gdb)
	syncer := service.NewSyncService(galleries, cfg.TelegramBotToken, cfg.TelegramChannel, cfg.SyncInterval, logger)

	if cfg.SyncEnabled() {
		if err := syncer.Start(context.Background()); err != nil {
			log.Fatalf("failed to start telegram sync worker: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := syncer.Shutdown(ctx); err != nil {
				logger.Error("telegram sync worker shutdown", "error", err)
			}
		}()
		logger.Info("telegram sync enabled", "channel", cfg.TelegramChannel, "interval", cfg.SyncInterval)
	} else {
		logger.Info("no telegram bot token configured, manual sync only")
	}

	api := handler.NewAPI(gdb, syncer, handler.Options{
		UploadDir:      cfg.UploadDir,
		UploadURLPath:  cfg.UploadURLPath,
		SiteBaseURL:    cfg.SiteBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// 设置并运行 Gin 服务器
	r := router.Setup(api, cfg.UploadDir, cfg.UploadURLPath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
