package handler

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ArtifactHits   metric.Int64Counter
	ArtifactMisses metric.Int64Counter
	Uploads        metric.Int64Counter
	ArtifactSize   metric.Int64Histogram
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("turbo-cache")

	hits, err := meter.Int64Counter(
		"turbo_cache.artifact_hits",
		metric.WithDescription("Total number of artifact downloads served from the cache"))
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"turbo_cache.artifact_misses",
		metric.WithDescription("Total number of artifact lookups that found nothing"))
	if err != nil {
		return nil, err
	}

	uploads, err := meter.Int64Counter(
		"turbo_cache.artifact_uploads",
		metric.WithDescription("Total number of artifacts stored"))
	if err != nil {
		return nil, err
	}

	size, err := meter.Int64Histogram(
		"turbo_cache.artifact_size_bytes",
		metric.WithDescription("Size of uploaded and downloaded artifacts"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(
			1<<10, 16<<10, 256<<10, 1<<20, 4<<20, 16<<20, 64<<20, 100<<20,
		),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ArtifactHits:   hits,
		ArtifactMisses: misses,
		Uploads:        uploads,
		ArtifactSize:   size,
	}, nil
}
