package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediastream/streaming-app/internal/domain"
	"mediastream/streaming-app/internal/ratelimit"
	"mediastream/streaming-app/internal/service"
)

// MediaHandler holds the media service dependency.
type MediaHandler struct {
	mediaService service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// --- Response Structs ---

type StreamURLResponse struct {
	StreamURL string `json:"stream_url"`
	ExpiresAt int64  `json:"expires_at"`
}

type ViewLoggedResponse struct {
	Message string `json:"message"`
	MediaID string `json:"media_id"`
}

// --- Handler Methods ---

// Upload accepts a multipart form (title, type, file) and creates a
// media asset.
func (h *MediaHandler) Upload(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		abortWithError(c, http.StatusBadRequest, "title is required")
		return
	}

	mediaType := domain.MediaType(c.PostForm("type"))
	if !mediaType.IsValid() {
		abortWithError(c, http.StatusUnprocessableEntity, "type must be 'video' or 'audio'")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "file is required")
		return
	}

	uploaderID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	asset, err := h.mediaService.Upload(c.Request.Context(), title, mediaType, fileHeader.Filename, contentType, fileHeader.Size, file, uploaderID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to store media")
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// GetMedia returns asset metadata.
func (h *MediaHandler) GetMedia(c *gin.Context) {
	id, ok := mediaIDParam(c)
	if !ok {
		return
	}

	asset, err := h.mediaService.GetMedia(c.Request.Context(), id)
	if err != nil {
		h.handleMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

// GetStreamURL issues a presigned, expiring stream link for an asset.
func (h *MediaHandler) GetStreamURL(c *gin.Context) {
	id, ok := mediaIDParam(c)
	if !ok {
		return
	}

	var ttl time.Duration
	if raw := c.Query("expires_in"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			abortWithError(c, http.StatusBadRequest, "expires_in must be a positive number of seconds")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	url, expiresAt, err := h.mediaService.IssueStreamURL(c.Request.Context(), id, ttl)
	if err != nil {
		h.handleMediaError(c, err)
		return
	}

	c.JSON(http.StatusOK, StreamURLResponse{StreamURL: url, ExpiresAt: expiresAt})
}

// Stream serves a media file gated by a presigned token. This endpoint
// is deliberately unauthenticated: the signed (media_id, exp, sig)
// tuple is the whole credential.
func (h *MediaHandler) Stream(c *gin.Context) {
	mediaID := c.Query("media_id")
	sig := c.Query("sig")
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if mediaID == "" || sig == "" || err != nil {
		abortWithError(c, http.StatusBadRequest, "media_id, exp, and sig are required")
		return
	}

	content, err := h.mediaService.Stream(c.Request.Context(), mediaID, exp, sig, c.ClientIP())
	if err != nil {
		h.handleMediaError(c, err)
		return
	}
	defer content.Body.Close()

	c.DataFromReader(http.StatusOK, content.Size, content.ContentType, content.Body, nil)
}

// RecordView logs one view via the explicit, rate-limited endpoint.
func (h *MediaHandler) RecordView(c *gin.Context) {
	id, ok := mediaIDParam(c)
	if !ok {
		return
	}

	if err := h.mediaService.RecordView(c.Request.Context(), id, c.ClientIP()); err != nil {
		h.handleMediaError(c, err)
		return
	}

	c.JSON(http.StatusOK, ViewLoggedResponse{Message: "View logged", MediaID: id.Hex()})
}

// Analytics returns aggregated view statistics for an asset.
func (h *MediaHandler) Analytics(c *gin.Context) {
	id, ok := mediaIDParam(c)
	if !ok {
		return
	}

	result, err := h.mediaService.Analytics(c.Request.Context(), id)
	if err != nil {
		h.handleMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Helpers ---

// mediaIDParam parses the :id path parameter, aborting with 404 on a
// malformed ID (indistinguishable from a missing asset to the caller).
func mediaIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "Media not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (primitive.ObjectID, error) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(idStr)
}

// handleMediaError maps service errors to HTTP responses.
func (h *MediaHandler) handleMediaError(c *gin.Context, err error) {
	var rlErr *ratelimit.Error
	switch {
	case errors.Is(err, service.ErrLinkExpired):
		abortWithError(c, http.StatusForbidden, "Link expired")
	case errors.Is(err, service.ErrInvalidSignature):
		abortWithError(c, http.StatusForbidden, "Invalid signature")
	case errors.Is(err, service.ErrMediaNotFound):
		abortWithError(c, http.StatusNotFound, "Media not found")
	case errors.Is(err, service.ErrFileMissing):
		abortWithError(c, http.StatusNotFound, "File missing on server")
	case errors.As(err, &rlErr):
		abortWithError(c, http.StatusTooManyRequests, rlErr.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
