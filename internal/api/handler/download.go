package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
	"github.com/AayuseX11/Ydlcoredownload/internal/downloader"
	"github.com/AayuseX11/Ydlcoredownload/internal/metrics"
	"github.com/AayuseX11/Ydlcoredownload/internal/relay"
)

// DownloadHandler validates download requests, extracts media and relays it.
type DownloadHandler struct {
	extractor downloader.Extractor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(extractor downloader.Extractor, m *metrics.Metrics, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		extractor: extractor,
		metrics:   m,
		logger:    logger,
	}
}

// Download handles GET /{videoID}/type={mediaType}
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	engine := h.extractor.Name()

	req, err := domain.NewDownloadRequest(pathParam(r, "videoID"), pathParam(r, "mediaType"))
	if err != nil {
		h.metrics.RecordDownload(engine, "unknown", metrics.StatusInvalid)
		switch {
		case errors.Is(err, domain.ErrInvalidVideoID):
			writeError(w, http.StatusBadRequest, "Invalid YouTube video ID")
		default:
			writeError(w, http.StatusBadRequest, `Type must be either "audio" or "video"`)
		}
		return
	}

	mediaType := req.MediaType.String()
	logger := h.logger.With(
		"video_id", req.VideoID,
		"type", mediaType,
		"engine", engine,
		"request_id", chimw.GetReqID(r.Context()),
	)

	done := h.metrics.Start(engine)
	defer done()

	start := time.Now()
	media, err := h.extractor.Extract(r.Context(), req)
	if err != nil {
		h.metrics.RecordDownload(engine, mediaType, metrics.StatusExtractError)
		logger.Error("extraction failed", "error", err, "duration", time.Since(start))
		h.writeExtractError(w, err)
		return
	}
	h.metrics.ObserveExtract(engine, mediaType, time.Since(start))

	defer func() {
		if err := media.Close(); err != nil {
			logger.Warn("failed to release media", "error", err)
		}
	}()

	res, err := relay.Relay(w, media)
	h.metrics.AddRelayedBytes(mediaType, res.Written)
	if err != nil {
		h.metrics.RecordDownload(engine, mediaType, metrics.StatusStreamError)
		if !res.HeadersSent {
			logger.Error("stream failed before first byte", "error", err)
			writeError(w, http.StatusInternalServerError, "Error streaming content")
			return
		}
		if r.Context().Err() != nil {
			logger.Warn("client disconnected", "bytes", res.Written)
		} else {
			logger.Error("stream interrupted", "error", err, "bytes", res.Written)
		}
		panic(http.ErrAbortHandler)
	}

	h.metrics.RecordDownload(engine, mediaType, metrics.StatusSuccess)
	logger.Info("download complete",
		"title", media.Title,
		"bytes", res.Written,
		"duration", time.Since(start),
	)
}

// pathParam returns the decoded value of a route parameter. chi matches
// against the escaped path, so %XX sequences are still present.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (h *DownloadHandler) writeExtractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrArtifactNotFound):
		writeError(w, http.StatusInternalServerError, "Downloaded file not found")
	case errors.Is(err, domain.ErrStorageFull):
		writeErrorDetail(w, http.StatusInternalServerError, "Failed to download video", domain.ErrStorageFull.Error())
	default:
		writeErrorDetail(w, http.StatusInternalServerError, "Failed to download video", err.Error())
	}
}
