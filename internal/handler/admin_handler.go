package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/artwall/internal/db"
	"github.com/artwall/internal/service"
	"github.com/gin-gonic/gin"
)

type submissionFileView struct {
	ID               uint   `json:"id"`
	ImageURL         string `json:"image_url"`
	OriginalFilename string `json:"original_filename"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
}

type submissionView struct {
	ID           uint                 `json:"id"`
	ArtistName   string               `json:"artist_name"`
	ArtistSocial string               `json:"artist_social,omitempty"`
	Description  string               `json:"art_description,omitempty"`
	Status       string               `json:"status"`
	SubmittedAt  time.Time            `json:"submission_date"`
	Images       []submissionFileView `json:"images"`
}

// GetPendingSubmissions returns submissions awaiting review with resolved
// image URLs.
func (a *API) GetPendingSubmissions(c *gin.Context) {
	subs, err := a.submissions.ListPending()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	views := make([]submissionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, a.newSubmissionView(sub))
	}
	c.JSON(http.StatusOK, views)
}

func (a *API) newSubmissionView(sub db.Submission) submissionView {
	view := submissionView{
		ID:           sub.ID,
		ArtistName:   sub.ArtistName,
		ArtistSocial: sub.ArtistSocial,
		Description:  sub.Description,
		Status:       sub.Status,
		SubmittedAt:  sub.CreatedAt,
	}
	for _, file := range sub.Files {
		view.Images = append(view.Images, submissionFileView{
			ID:               file.ID,
			ImageURL:         absoluteURL(a.siteBaseURL, a.uploadURL+"/"+file.Filename),
			OriginalFilename: file.OriginalFilename,
			Width:            file.Width,
			Height:           file.Height,
		})
	}
	return view
}

type approvePayload struct {
	TelegramMessageID string `json:"telegram_message_id"`
	ImageURL          string `json:"image_url"`
}

// ApproveSubmission moves a pending submission to approved and publishes it.
// The JSON body is optional; it may attach a Telegram reference.
func (a *API) ApproveSubmission(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid submission id")
		return
	}

	var payload approvePayload
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, items, err := a.submissions.Approve(id, service.ApproveOptions{
		ExternalID: payload.TelegramMessageID,
		ImageURL:   payload.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			respondError(c, http.StatusNotFound, "Submission not found")
		case errors.Is(err, service.ErrSubmissionNotPending):
			respondError(c, http.StatusConflict, "Submission has already been reviewed")
		case errors.Is(err, service.ErrDuplicateItem):
			respondError(c, http.StatusConflict, "This Telegram message is already synced")
		default:
			respondError(c, http.StatusInternalServerError, "Failed to approve submission")
		}
		return
	}

	approvedIDs := make([]uint, 0, len(items))
	for _, item := range items {
		approvedIDs = append(approvedIDs, item.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Submission approved successfully",
		"approved_ids": approvedIDs,
	})
}

// RejectSubmission moves a pending submission to rejected.
func (a *API) RejectSubmission(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid submission id")
		return
	}

	if _, err := a.submissions.Reject(id); err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			respondError(c, http.StatusNotFound, "Submission not found")
		case errors.Is(err, service.ErrSubmissionNotPending):
			respondError(c, http.StatusConflict, "Submission has already been reviewed")
		default:
			respondError(c, http.StatusInternalServerError, "Failed to reject submission")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Submission rejected"})
}

type telegramAddPayload struct {
	TelegramMessageID string `json:"telegram_message_id"`
	ImageURL          string `json:"image_url"`
	ArtistName        string `json:"artist_name"`
	ArtistSocial      string `json:"artist_social"`
	ArtDescription    string `json:"art_description"`
}

// AddFromTelegram manually records one channel item. It goes through the
// same dedup check as automatic ingestion.
func (a *API) AddFromTelegram(c *gin.Context) {
	var payload telegramAddPayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}
	if payload.TelegramMessageID == "" || payload.ImageURL == "" || payload.ArtistName == "" {
		respondError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	item, err := a.galleries.Add(service.GalleryItemInput{
		ExternalID:   payload.TelegramMessageID,
		ImageURL:     payload.ImageURL,
		ArtistName:   payload.ArtistName,
		ArtistSocial: payload.ArtistSocial,
		Description:  payload.ArtDescription,
		Origin:       db.OriginExternal,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateItem):
			respondError(c, http.StatusConflict, "This Telegram message is already synced")
		case errors.Is(err, service.ErrItemImageMissing), errors.Is(err, service.ErrItemArtistMissing):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "Failed to add artwork")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Artwork added successfully",
		"id":      item.ID,
	})
}

// TriggerTelegramSync manually runs one ingestion cycle.
func (a *API) TriggerTelegramSync(c *gin.Context) {
	result, err := a.syncer.SyncNow(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSyncDisabled):
			respondError(c, http.StatusServiceUnavailable,
				"Telegram auto-sync requires a bot token. Use manual add via the admin panel.")
		case errors.Is(err, service.ErrSyncBusy):
			respondError(c, http.StatusConflict, "A sync cycle is already running")
		default:
			respondError(c, http.StatusInternalServerError, "Telegram sync failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"fetched": result.Fetched,
		"added":   result.Added,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	})
}

// GetTelegramStatus reports the sync adapter configuration and last outcome.
func (a *API) GetTelegramStatus(c *gin.Context) {
	status := a.syncer.Status()

	payload := gin.H{
		"channel":               status.Channel,
		"bot_configured":        status.BotConfigured,
		"auto_sync_available":   status.BotConfigured,
		"manual_sync_available": true,
		"last_offset":           status.LastOffset,
	}
	if !status.LastSyncAt.IsZero() {
		payload["last_sync_at"] = status.LastSyncAt
	}
	if status.LastError != "" {
		payload["last_error"] = status.LastError
	}
	c.JSON(http.StatusOK, payload)
}
