package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	// OriginExternal marks items ingested from the Telegram channel.
	OriginExternal = "external"
	// OriginLocal marks items promoted from approved submissions.
	OriginLocal = "local"
)

// GalleryItem 定义公开画廊条目模型。
//
// ExternalID 是频道侧分配的去重键：外部来源条目必须携带，本地来源条目
// 保持 NULL（SQLite 唯一索引允许多个 NULL）。唯一索引本身就是去重机制，
// 应用层不做 check-then-insert。
type GalleryItem struct {
	gorm.Model
	ExternalID   *string `gorm:"uniqueIndex"`
	SubmissionID *uint   `gorm:"index"`
	ImageURL     string  `gorm:"not null"`
	ArtistName   string  `gorm:"not null"`
	ArtistSocial string
	Description  string
	Origin       string `gorm:"default:external"` // external, local
	DisplayedAt  time.Time
}
