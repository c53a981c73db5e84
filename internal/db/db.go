package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 gallery.db。
// TranslateError 打开后，唯一索引冲突会以 gorm.ErrDuplicatedKey 形式返回，
// 这是外部标识去重的唯一裁决点。
func Init(databasePath string) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "gallery.db"
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// 自动迁移模式，为核心模型创建表
	if err = gdb.AutoMigrate(
		&Submission{},
		&SubmissionFile{},
		&GalleryItem{},
	); err != nil {
		return nil, err
	}

	if err := seedSampleArt(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// seedSampleArt inserts the starter gallery rows on first boot. Reruns are
// no-ops thanks to the external_id unique index.
func seedSampleArt(gdb *gorm.DB) error {
	now := time.Now()
	samples := []GalleryItem{
		{
			ExternalID:  strPtr("sample1"),
			ImageURL:    "https://i.postimg.cc/vcdNBfRV/file-00000000847861f9a26eb77000b75bbb.png",
			ArtistName:  "OGbongo Team",
			Description: "Original Bongo Character",
			Origin:      OriginExternal,
			DisplayedAt: now,
		},
		{
			ExternalID:  strPtr("sample2"),
			ImageURL:    "https://i.postimg.cc/ThvzyZg1/20250806-131538.jpg",
			ArtistName:  "OGbongo Team",
			Description: "Bongo Evolution",
			Origin:      OriginExternal,
			DisplayedAt: now,
		},
	}

	for i := range samples {
		err := gdb.Create(&samples[i]).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
