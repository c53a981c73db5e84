package service

import (
	"errors"
	"strings"
	"time"

	"github.com/artwall/internal/db"
	"gorm.io/gorm"
)

var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrSubmissionNotPending = errors.New("submission is not pending review")
	ErrArtistNameMissing    = errors.New("artist name is required")
	ErrNoFilesAttached      = errors.New("at least one image is required")
)

const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// SubmissionService governs the moderation lifecycle of locally submitted
// artwork. Submissions are never deleted; approved and rejected are terminal.
type SubmissionService struct {
	db            *gorm.DB
	uploadURLPath string
}

// SubmissionFileInput describes one stored upload attached to a submission.
type SubmissionFileInput struct {
	Filename         string
	OriginalFilename string
	Width            int
	Height           int
}

// SubmissionInput represents fields accepted when creating a submission.
type SubmissionInput struct {
	ArtistName   string
	ArtistSocial string
	Description  string
	Files        []SubmissionFileInput
}

// ApproveOptions carries the optional channel reference an admin may attach
// at approval time. Local art does not need one; when present it lands in
// the same unique column as ingested identifiers and is dedup-checked.
type ApproveOptions struct {
	ExternalID string
	ImageURL   string
}

// NewSubmissionService creates a SubmissionService instance.
func NewSubmissionService(gdb *gorm.DB, uploadURLPath string) *SubmissionService {
	return &SubmissionService{db: gdb, uploadURLPath: strings.TrimRight(uploadURLPath, "/")}
}

// Submit creates a pending submission.
func (s *SubmissionService) Submit(input SubmissionInput) (*db.Submission, error) {
	if strings.TrimSpace(input.ArtistName) == "" {
		return nil, ErrArtistNameMissing
	}
	if len(input.Files) == 0 {
		return nil, ErrNoFilesAttached
	}

	sub := db.Submission{
		ArtistName:   strings.TrimSpace(input.ArtistName),
		ArtistSocial: strings.TrimSpace(input.ArtistSocial),
		Description:  strings.TrimSpace(input.Description),
		Status:       SubmissionStatusPending,
	}
	for _, file := range input.Files {
		sub.Files = append(sub.Files, db.SubmissionFile{
			Filename:         file.Filename,
			OriginalFilename: file.OriginalFilename,
			Width:            file.Width,
			Height:           file.Height,
		})
	}

	if err := s.db.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListPending returns submissions awaiting review, newest first.
func (s *SubmissionService) ListPending() ([]db.Submission, error) {
	var subs []db.Submission
	if err := s.db.Preload("Files").
		Where("status = ?", SubmissionStatusPending).
		Order("created_at desc").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// Approve moves a pending submission to approved and publishes one gallery
// item per attached file, all inside one transaction. A failure anywhere,
// including a duplicate external reference, rolls the status change back,
// so a submission can never end up approved without its gallery items.
func (s *SubmissionService) Approve(id uint, opts ApproveOptions) (*db.Submission, []db.GalleryItem, error) {
	var sub db.Submission
	var created []db.GalleryItem

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Files").First(&sub, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if sub.Status != SubmissionStatusPending {
			return ErrSubmissionNotPending
		}
		if err := tx.Model(&sub).Update("status", SubmissionStatusApproved).Error; err != nil {
			return err
		}

		now := time.Now()
		for i, file := range sub.Files {
			item := db.GalleryItem{
				SubmissionID: &sub.ID,
				ImageURL:     s.fileURL(file.Filename),
				ArtistName:   sub.ArtistName,
				ArtistSocial: sub.ArtistSocial,
				Description:  sub.Description,
				Origin:       db.OriginLocal,
				DisplayedAt:  now,
			}
			if i == 0 {
				if external := strings.TrimSpace(opts.ExternalID); external != "" {
					item.ExternalID = &external
				}
				if override := strings.TrimSpace(opts.ImageURL); override != "" {
					item.ImageURL = override
				}
			}
			if err := tx.Create(&item).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateItem
				}
				return err
			}
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &sub, created, nil
}

// Reject moves a pending submission to rejected.
func (s *SubmissionService) Reject(id uint) (*db.Submission, error) {
	var sub db.Submission

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if sub.Status != SubmissionStatusPending {
			return ErrSubmissionNotPending
		}
		return tx.Model(&sub).Update("status", SubmissionStatusRejected).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubmissionService) fileURL(filename string) string {
	return s.uploadURLPath + "/" + filename
}
