package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/handler/api"
	"github.com/go-chi/chi/v5"
)

// WithPropertyID parses the numeric {id} route param into the request context.
func WithPropertyID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, "id")
			if raw == "" {
				api.WriteError(w, http.StatusBadRequest, "ID is required", nil)
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("ID %q is not a valid property id", raw), nil)
				return
			}

			ctx := api_context.WithPropertyID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
