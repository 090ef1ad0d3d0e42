package api_context

import (
	"context"

	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

type ctxKey string

const (
	PropertyIDKey ctxKey = "propertyID"
	MediaIDKey    ctxKey = "mediaID"
	AuthUserIDKey ctxKey = "authUserID"
	AuthRolesKey  ctxKey = "authRoles"
)

func WithPropertyID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, PropertyIDKey, id)
}

func PropertyIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(PropertyIDKey).(int64)
	return id, ok
}

func WithMediaID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, MediaIDKey, id)
}

func MediaIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(MediaIDKey).(uuid.UUID)
	return id, ok
}

func AuthUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AuthUserIDKey).(string)
	return id, ok && id != ""
}

func AuthRolesFromContext(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(AuthRolesKey).([]string)
	return roles, ok
}
