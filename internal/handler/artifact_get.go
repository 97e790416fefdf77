package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/apierror"
	"github.com/kevingruber/turbo-cache/internal/artifact"
)

// Get handles GET requests to download an artifact.
// Turborepo expects: 200 with body on hit, 404 on miss.
func (h *ArtifactHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	data, err := h.service.Get(ctx, id, teamCandidates(c))
	if err != nil {
		switch {
		case errors.Is(err, artifact.ErrMissingTeam):
			apierror.Abort(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, artifact.ErrNotFound):
			h.metrics.ArtifactMisses.Add(ctx, 1)
			apierror.Abort(c, http.StatusNotFound, "Artifact not found")
		default:
			h.logger.Error().Err(err).Str("artifact_id", id).Msg("failed to get artifact")
			c.Error(err)
			apierror.Abort(c, http.StatusInternalServerError, "Failed to retrieve artifact")
		}
		return
	}

	h.metrics.ArtifactHits.Add(ctx, 1)
	h.metrics.ArtifactSize.Record(ctx, int64(len(data)))
	c.Data(http.StatusOK, "application/octet-stream", data)
}
