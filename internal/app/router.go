package app

import (
	"context"
	"net/http"

	"github.com/fhuszti/property-media-ms-go/internal/handler/api"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	cMiddleware "github.com/fhuszti/property-media-ms-go/internal/middleware"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Saver  port.MultimediaSaver
	Status port.StatusGetter
	Retry  port.RetryTrigger
	Store  port.ObjectStore
	Limits api.UploadLimits

	// JWTPublicKey guards the property routes; empty disables auth.
	JWTPublicKey string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

func NewRouter(ctx context.Context, s Services) *chi.Mux {
	logger.Info(ctx, "initialising router...")

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.NotFound(api.NotFoundHandler())
	r.MethodNotAllowed(api.MethodNotAllowedHandler())

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	r.Get("/properties/service-status", api.ServiceStatusHandler(s.Store))

	r.Group(func(r chi.Router) {
		r.Use(cMiddleware.WithDSTAuth(s.JWTPublicKey))
		r.Route("/properties/{id}", func(r chi.Router) {
			r.Use(cMiddleware.WithPropertyID())
			r.Post("/save-multimedia", api.SaveMultimediaHandler(s.Saver, s.Limits))
			r.Get("/upload-status", api.UploadStatusHandler(s.Status))
			r.Post("/retry-uploads", api.RetryUploadsHandler(s.Retry))
		})
	})

	return r
}
