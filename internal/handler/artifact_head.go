package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/apierror"
)

// Head handles HEAD requests to check artifact existence.
func (h *ArtifactHandler) Head(c *gin.Context) {
	ctx := c.Request.Context()
	exists, err := h.service.Head(ctx, c.Param("id"), teamCandidates(c))
	if err != nil {
		apierror.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	if !exists {
		h.metrics.ArtifactMisses.Add(ctx, 1)
		apierror.Abort(c, http.StatusNotFound, "Artifact not found")
		return
	}

	c.Status(http.StatusOK)
}
