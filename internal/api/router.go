package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AayuseX11/Ydlcoredownload/internal/api/handler"
	mw "github.com/AayuseX11/Ydlcoredownload/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
// metricsHandler may be nil to leave /metrics unrouted.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	healthHandler *handler.HealthHandler,
	usageHandler *handler.UsageHandler,
	metricsHandler http.Handler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware. No request timeout: downloads stream for as long as they take.
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS)
	r.Use(middleware.GetHead)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.NotFound)

	r.Get("/", usageHandler.Index)
	r.Get("/health", healthHandler.Live)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Get("/{videoID}/type={mediaType}", downloadHandler.Download)

	return r
}
