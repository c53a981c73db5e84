package handler

import (
	"strings"

	"github.com/artwall/internal/service"
	"gorm.io/gorm"
)

// Options carries the deployment-specific knobs handlers need.
type Options struct {
	UploadDir      string
	UploadURLPath  string
	SiteBaseURL    string
	MaxUploadBytes int64
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	submissions *service.SubmissionService
	galleries   *service.GalleryService
	syncer      *service.SyncService
	uploadDir   string
	uploadURL   string
	siteBaseURL string
	maxUpload   int64
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, syncer *service.SyncService, opts Options) *API {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}

	return &API{
		db:          gdb,
		submissions: service.NewSubmissionService(gdb, opts.UploadURLPath),
		galleries:   service.NewGalleryService(gdb),
		syncer:      syncer,
		uploadDir:   opts.UploadDir,
		uploadURL:   strings.TrimRight(opts.UploadURLPath, "/"),
		siteBaseURL: strings.TrimRight(opts.SiteBaseURL, "/"),
		maxUpload:   maxUpload,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
