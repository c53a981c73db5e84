package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr       string
	Port             string
	DatabasePath     string
	GinMode          string
	UploadDir        string
	UploadURLPath    string
	SiteBaseURL      string
	MaxUploadBytes   int64
	TelegramBotToken string
	TelegramChannel  string
	SyncInterval     time.Duration
}

// SyncEnabled reports whether the Telegram ingestion adapter can run.
// Without a bot token only the local submission flow is available.
func (c AppConfig) SyncEnabled() bool {
	return c.TelegramBotToken != ""
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "gallery.db"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	uploadDir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if uploadDir == "" {
		uploadDir = "uploads/submissions"
	}

	uploadURLPath := strings.TrimSpace(os.Getenv("UPLOAD_URL_PATH"))
	if uploadURLPath == "" {
		uploadURLPath = "/uploads"
	}

	siteBaseURL := strings.TrimSpace(os.Getenv("SITE_BASE_URL"))
	if siteBaseURL == "" {
		siteBaseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	maxUploadBytes := int64(5 << 20)
	if raw := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			maxUploadBytes = parsed
		}
	}

	syncInterval := 5 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("SYNC_INTERVAL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			syncInterval = parsed
		}
	}

	return AppConfig{
		ListenAddr:       listenAddr,
		Port:             port,
		DatabasePath:     databasePath,
		GinMode:          ginMode,
		UploadDir:        uploadDir,
		UploadURLPath:    uploadURLPath,
		SiteBaseURL:      strings.TrimRight(siteBaseURL, "/"),
		MaxUploadBytes:   maxUploadBytes,
		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramChannel:  strings.TrimSpace(os.Getenv("TELEGRAM_CHANNEL")),
		SyncInterval:     syncInterval,
	}
}
