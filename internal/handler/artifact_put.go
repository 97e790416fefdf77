package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/apierror"
	"github.com/kevingruber/turbo-cache/internal/artifact"
)

type putResponse struct {
	URLs []string `json:"urls"`
}

// Put handles PUT requests to upload an artifact.
// Turborepo expects: 2xx with the artifact location, 413 if too large.
func (h *ArtifactHandler) Put(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	// Check Content-Length header for size validation
	contentLength := c.Request.ContentLength
	if contentLength > h.maxEntrySize {
		h.logger.Warn().
			Str("artifact_id", id).
			Int64("size", contentLength).
			Int64("max_size", h.maxEntrySize).
			Msg("artifact too large")
		apierror.Abort(c, http.StatusRequestEntityTooLarge, "Artifact too large")
		return
	}

	// Chunked uploads carry no length, so read one byte past the limit to
	// detect oversize bodies.
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxEntrySize+1))
	if err != nil {
		h.logger.Error().Err(err).Str("artifact_id", id).Msg("failed to read request body")
		apierror.Abort(c, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if int64(len(data)) > h.maxEntrySize {
		apierror.Abort(c, http.StatusRequestEntityTooLarge, "Artifact too large")
		return
	}

	key, err := h.service.Put(ctx, id, teamCandidates(c), data)
	if err != nil {
		if errors.Is(err, artifact.ErrMissingTeam) {
			apierror.Abort(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("artifact_id", id).Msg("failed to store artifact")
		c.Error(err)
		apierror.Abort(c, http.StatusInternalServerError, "Failed to store artifact")
		return
	}

	h.metrics.Uploads.Add(ctx, 1)
	h.metrics.ArtifactSize.Record(ctx, int64(len(data)))
	c.JSON(http.StatusOK, putResponse{URLs: []string{key.String()}})
}
