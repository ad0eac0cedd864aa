package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/artmarket/curator/internal/service"
)

// ArtworkHandler manages artwork ingestion and analysis.
type ArtworkHandler struct {
	artworks *service.ArtworkService
}

func NewArtworkHandler(artworks *service.ArtworkService) *ArtworkHandler {
	return &ArtworkHandler{artworks: artworks}
}

// Submit handles POST /api/v1/artworks. The image arrives as multipart form
// data alongside the metadata fields.
func (h *ArtworkHandler) Submit(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return
	}

	artistID := c.PostForm("artist_id")
	if artistID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "artist_id is required"})
		return
	}

	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	artwork, err := h.artworks.Submit(c.Request.Context(), &service.SubmitInput{
		ArtistID:    artistID,
		Title:       c.PostForm("title"),
		Category:    c.PostForm("category"),
		Style:       c.PostForm("style"),
		Tags:        tags,
		ContentType: header.Header.Get("Content-Type"),
		IsPublic:    c.PostForm("is_public") != "false",
		IsPortfolio: c.PostForm("is_portfolio") == "true",
	}, imageData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, artwork)
}

// Analyze handles POST /api/v1/artworks/:id/analyze. It runs feature
// extraction and indexing synchronously and activates the artwork.
func (h *ArtworkHandler) Analyze(c *gin.Context) {
	artwork, err := h.artworks.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artwork)
}

// Hide handles DELETE /api/v1/artworks/:id. The artwork leaves circulation
// but its interaction history stays.
func (h *ArtworkHandler) Hide(c *gin.Context) {
	if err := h.artworks.Hide(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
