package service

import (
	"errors"
	"strings"
	"time"

	"github.com/artwall/internal/db"
	"gorm.io/gorm"
)

var (
	ErrDuplicateItem     = errors.New("gallery item already recorded for this external id")
	ErrItemImageMissing  = errors.New("gallery item image is required")
	ErrItemArtistMissing = errors.New("gallery item artist name is required")
)

// GalleryService owns the public gallery collection. It is the single write
// path for gallery items regardless of origin.
type GalleryService struct {
	db *gorm.DB
}

// GalleryItemInput represents fields accepted when recording a gallery item.
type GalleryItemInput struct {
	ExternalID   string // channel-assigned dedup key; empty for local art
	SubmissionID *uint
	ImageURL     string
	ArtistName   string
	ArtistSocial string
	Description  string
	Origin       string
	DisplayedAt  time.Time
}

// NewGalleryService creates a GalleryService instance.
func NewGalleryService(gdb *gorm.DB) *GalleryService {
	return &GalleryService{db: gdb}
}

// Add records one gallery item with a single constrained insert. A clash on
// the external identifier returns ErrDuplicateItem, which callers on the
// ingestion path treat as a benign skip. There is no pre-check: the unique
// index is the dedup decision.
func (s *GalleryService) Add(input GalleryItemInput) (*db.GalleryItem, error) {
	if strings.TrimSpace(input.ImageURL) == "" {
		return nil, ErrItemImageMissing
	}
	if strings.TrimSpace(input.ArtistName) == "" {
		return nil, ErrItemArtistMissing
	}

	item := db.GalleryItem{
		SubmissionID: input.SubmissionID,
		ImageURL:     strings.TrimSpace(input.ImageURL),
		ArtistName:   strings.TrimSpace(input.ArtistName),
		ArtistSocial: strings.TrimSpace(input.ArtistSocial),
		Description:  strings.TrimSpace(input.Description),
		Origin:       normalizeOrigin(input.Origin),
		DisplayedAt:  input.DisplayedAt,
	}
	if external := strings.TrimSpace(input.ExternalID); external != "" {
		item.ExternalID = &external
	}
	if item.DisplayedAt.IsZero() {
		item.DisplayedAt = time.Now()
	}

	if err := s.db.Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateItem
		}
		return nil, err
	}
	return &item, nil
}

// Feed returns every gallery item, newest first. Equal timestamps fall back
// to id order so the feed is stable across reads.
func (s *GalleryService) Feed() ([]db.GalleryItem, error) {
	var items []db.GalleryItem
	if err := s.db.Order("displayed_at desc").Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeOrigin(origin string) string {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if origin == db.OriginLocal {
		return db.OriginLocal
	}
	return db.OriginExternal
}
