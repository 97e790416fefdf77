package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevingruber/turbo-cache/internal/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// StorageError wraps a failure reported by the storage backend.
type StorageError struct {
	Op  string
	Key Key
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Service implements the artifact operations. It holds no state of its own
// and is safe for concurrent use as long as the backend is.
type Service struct {
	store  storage.Storage
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewService creates a service on top of store.
func NewService(store storage.Storage, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "artifact").Logger(),
		tracer: otel.Tracer("github.com/kevingruber/turbo-cache/internal/artifact"),
	}
}

func (s *Service) start(ctx context.Context, op, id string, c TeamCandidates) (context.Context, trace.Span, Key, error) {
	ctx, span := s.tracer.Start(ctx, "artifact."+op, trace.WithAttributes(
		attribute.String("artifact.id", id),
	))

	key, err := ResolveKey(id, c)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ctx, span, "", err
	}
	span.SetAttributes(attribute.String("artifact.key", key.String()))
	return ctx, span, key, nil
}

// Head reports whether the artifact exists. The only error is ErrMissingTeam.
func (s *Service) Head(ctx context.Context, id string, c TeamCandidates) (bool, error) {
	ctx, span, key, err := s.start(ctx, "head", id, c)
	defer span.End()
	if err != nil {
		return false, err
	}

	exists := s.store.Exists(ctx, key.String())
	span.SetAttributes(attribute.Bool("artifact.exists", exists))
	s.logger.Debug().Str("key", key.String()).Bool("exists", exists).Msg("artifact head")
	return exists, nil
}

// Get returns the artifact content. The existence check and the read are two
// separate backend calls, so an artifact that disappears in between surfaces
// as a *StorageError rather than ErrNotFound.
func (s *Service) Get(ctx context.Context, id string, c TeamCandidates) ([]byte, error) {
	ctx, span, key, err := s.start(ctx, "get", id, c)
	defer span.End()
	if err != nil {
		return nil, err
	}

	if !s.store.Exists(ctx, key.String()) {
		s.logger.Debug().Str("key", key.String()).Msg("artifact not found")
		return nil, ErrNotFound
	}

	data, err := s.store.Get(ctx, key.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage get failed")
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}

	span.SetAttributes(attribute.Int("artifact.size", len(data)))
	s.logger.Debug().Str("key", key.String()).Int("size", len(data)).Msg("artifact retrieved")
	return data, nil
}

// Put stores data and returns the key it was stored under.
func (s *Service) Put(ctx context.Context, id string, c TeamCandidates, data []byte) (Key, error) {
	ctx, span, key, err := s.start(ctx, "put", id, c)
	defer span.End()
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.Int("artifact.size", len(data)))
	if err := s.store.Put(ctx, key.String(), data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage put failed")
		return "", &StorageError{Op: "put", Key: key, Err: err}
	}

	s.logger.Debug().Str("key", key.String()).Int("size", len(data)).Msg("artifact stored")
	return key, nil
}
