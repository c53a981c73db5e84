package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/artwall/internal/db"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type galleryItemView struct {
	ID              uint      `json:"id"`
	ExternalID      string    `json:"telegram_message_id,omitempty"`
	SubmissionID    *uint     `json:"submission_id,omitempty"`
	ImageURL        string    `json:"image_url"`
	ArtistName      string    `json:"artist_name"`
	ArtistSocial    string    `json:"artist_social,omitempty"`
	Description     string    `json:"art_description,omitempty"`
	DescriptionHTML string    `json:"description_html,omitempty"`
	Origin          string    `json:"origin"`
	DisplayedAt     time.Time `json:"displayed_at"`
}

// GetGallery returns the merged public feed, newest first.
func (a *API) GetGallery(c *gin.Context) {
	items, err := a.galleries.Feed()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	views := make([]galleryItemView, 0, len(items))
	for _, item := range items {
		views = append(views, a.newGalleryItemView(item))
	}
	c.JSON(http.StatusOK, views)
}

func (a *API) newGalleryItemView(item db.GalleryItem) galleryItemView {
	view := galleryItemView{
		ID:           item.ID,
		SubmissionID: item.SubmissionID,
		ImageURL:     absoluteURL(a.siteBaseURL, item.ImageURL),
		ArtistName:   item.ArtistName,
		ArtistSocial: item.ArtistSocial,
		Description:  item.Description,
		Origin:       item.Origin,
		DisplayedAt:  item.DisplayedAt,
	}
	if item.ExternalID != nil {
		view.ExternalID = *item.ExternalID
	}
	if item.Description != "" {
		view.DescriptionHTML = renderDescription(item.Description)
	}
	return view
}

// renderDescription converts a Markdown description to sanitized HTML.
func renderDescription(markdown string) string {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return template.HTMLEscapeString(markdown)
	}
	return sanitizer.Sanitize(buf.String())
}
