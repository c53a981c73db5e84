package handler

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/artwall/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxSubmissionImages = 5

// SubmitArt handles the public multipart submission form.
func (a *API) SubmitArt(c *gin.Context) {
	artistName := strings.TrimSpace(c.PostForm("artist_name"))
	artistSocial := strings.TrimSpace(c.PostForm("artist_social"))
	description := strings.TrimSpace(c.PostForm("art_description"))

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	files := form.File["images"]
	if artistName == "" || len(files) == 0 {
		respondError(c, http.StatusBadRequest, "Artist name and at least one image are required")
		return
	}
	if len(files) > maxSubmissionImages {
		respondError(c, http.StatusBadRequest,
			fmt.Sprintf("At most %d images per submission", maxSubmissionImages))
		return
	}

	// Validate the whole batch before anything is written so a rejected file
	// never leaves a partial submission behind.
	for _, file := range files {
		if file.Size > a.maxUpload {
			respondError(c, http.StatusBadRequest,
				fmt.Sprintf("File %s is too large. Maximum size is %dMB.", file.Filename, a.maxUpload>>20))
			return
		}
		if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
			respondError(c, http.StatusBadRequest,
				fmt.Sprintf("File %s is not an image. Only image files are allowed.", file.Filename))
			return
		}
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to store uploaded images")
		return
	}

	inputs := make([]service.SubmissionFileInput, 0, len(files))
	for _, file := range files {
		ext := filepath.Ext(file.Filename)
		storedName := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
		if err := c.SaveUploadedFile(file, filepath.Join(a.uploadDir, storedName)); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to store uploaded images")
			return
		}

		width, height := probeImageSize(filepath.Join(a.uploadDir, storedName))
		inputs = append(inputs, service.SubmissionFileInput{
			Filename:         storedName,
			OriginalFilename: file.Filename,
			Width:            width,
			Height:           height,
		})
	}

	if _, err := a.submissions.Submit(service.SubmissionInput{
		ArtistName:   artistName,
		ArtistSocial: artistSocial,
		Description:  description,
		Files:        inputs,
	}); err != nil {
		switch {
		case errors.Is(err, service.ErrArtistNameMissing), errors.Is(err, service.ErrNoFilesAttached):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "Failed to submit artwork")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Artwork submitted successfully! It will be reviewed soon.",
		"submissionCount": len(files),
	})
}

// probeImageSize reads the image header for pixel dimensions. Formats the
// decoders cannot identify simply record zero; nothing depends on it.
func probeImageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
