package port

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

// MediaResolver turns a media source into bytes, downloading remote sources.
type MediaResolver interface {
	Resolve(ctx context.Context, src model.MediaSource, itemID uuid.UUID) (*model.ResolvedMedia, error)
}

// MediaTransformer optionally rewrites media before upload and extracts metadata.
type MediaTransformer interface {
	Transform(in *model.ResolvedMedia) (*model.ResolvedMedia, error)
	Inspect(mimeType string, data []byte) model.Metadata
}

// KeyBuilder computes object-store keys.
type KeyBuilder interface {
	BuildKey(parentID int64, kind model.MediaKind, filename string, itemID uuid.UUID) string
}
