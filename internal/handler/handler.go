package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/artifact"
	"github.com/rs/zerolog"
)

// ArtifactHandler handles the Turborepo remote cache artifact endpoints.
type ArtifactHandler struct {
	service      *artifact.Service
	maxEntrySize int64
	logger       zerolog.Logger
	metrics      *Metrics
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(service *artifact.Service, maxEntrySize int64, logger zerolog.Logger) (*ArtifactHandler, error) {
	metrics, err := NewMetrics()
	if err != nil {
		return nil, err
	}

	return &ArtifactHandler{
		service:      service,
		maxEntrySize: maxEntrySize,
		logger:       logger.With().Str("component", "handler").Logger(),
		metrics:      metrics,
	}, nil
}

func teamCandidates(c *gin.Context) artifact.TeamCandidates {
	return artifact.CandidatesFromQuery(c.GetQuery)
}

// Status reports that remote caching is enabled.
func (h *ArtifactHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "enabled"})
}

// Events accepts usage events from the client and drops them.
func (h *ArtifactHandler) Events(c *gin.Context) {
	n, err := io.Copy(io.Discard, io.LimitReader(c.Request.Body, h.maxEntrySize))
	if err != nil {
		h.logger.Debug().Err(err).Msg("failed to drain events body")
	}
	h.logger.Debug().Int64("size", n).Msg("artifact events received")
	c.JSON(http.StatusOK, gin.H{})
}
