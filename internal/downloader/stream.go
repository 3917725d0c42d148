package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/AayuseX11/Ydlcoredownload/internal/config"
	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
	"github.com/AayuseX11/Ydlcoredownload/pkg/filename"
)

// youtubeClient is the subset of youtube.Client used by StreamExtractor.
type youtubeClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// AudioTranscoder converts an audio stream to MP3.
type AudioTranscoder interface {
	ToMP3(ctx context.Context, src io.Reader) (io.ReadCloser, error)
}

// StreamExtractor extracts media in-process with the youtube library and
// hands back a live stream. Nothing touches the filesystem.
type StreamExtractor struct {
	client          youtubeClient
	transcoder      AudioTranscoder
	metadataTimeout time.Duration
	logger          *slog.Logger
}

// NewStreamExtractor creates a new in-process streaming extractor.
// transcoder may be nil, in which case audio is relayed in its source container.
func NewStreamExtractor(cfg config.StreamConfig, transcoder AudioTranscoder, logger *slog.Logger) *StreamExtractor {
	timeout := cfg.MetadataTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StreamExtractor{
		client:          &youtube.Client{},
		transcoder:      transcoder,
		metadataTimeout: timeout,
		logger:          logger,
	}
}

// Name implements Extractor.
func (e *StreamExtractor) Name() string {
	return config.EngineStream
}

// Extract implements Extractor.
func (e *StreamExtractor) Extract(ctx context.Context, req domain.DownloadRequest) (*Media, error) {
	metaCtx, cancel := context.WithTimeout(ctx, e.metadataTimeout)
	video, err := e.client.GetVideoContext(metaCtx, req.VideoID.WatchURL())
	cancel()
	if err != nil {
		return nil, domain.NewDownloadError(req.VideoID, "fetch metadata", extractionError(err))
	}

	opts := OptionsFor(req.MediaType)
	format, err := SelectFormat(video.Formats, opts)
	if err != nil {
		return nil, domain.NewDownloadError(req.VideoID, "select format", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err))
	}

	e.logger.Debug("selected format",
		"video_id", req.VideoID,
		"type", req.MediaType,
		"itag", format.ItagNo,
		"mime_type", format.MimeType,
		"bitrate", format.Bitrate,
	)

	stream, _, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, domain.NewDownloadError(req.VideoID, "open stream", extractionError(err))
	}

	var body io.ReadCloser = stream
	if req.MediaType == domain.MediaTypeAudio && e.transcoder != nil && !isMP3(format) {
		mp3, err := e.transcoder.ToMP3(ctx, stream)
		if err != nil {
			stream.Close()
			return nil, domain.NewDownloadError(req.VideoID, "transcode", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err))
		}
		// The source closes first so ffmpeg's stdin copier is released.
		body = &chainedBody{Reader: mp3, closers: []io.Closer{stream, mp3}}
	}

	return &Media{
		Body:        body,
		Title:       video.Title,
		Filename:    filename.OrDefault(filename.SanitizeLight(video.Title), req.VideoID.String()),
		Extension:   req.MediaType.Extension(),
		ContentType: req.MediaType.ContentType(),
		Size:        -1,
	}, nil
}

// SelectFormat picks the best format of the list satisfying opts.
func SelectFormat(formats youtube.FormatList, opts Options) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !matchesFilter(f, opts.Filter) {
			continue
		}
		if best == nil || better(f, best, opts.Quality) {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w for filter %q", domain.ErrNoMatchingFormat, opts.Filter)
	}
	return best, nil
}

func matchesFilter(f *youtube.Format, filter string) bool {
	switch filter {
	case FilterAudioOnly:
		return strings.HasPrefix(f.MimeType, "audio/")
	case FilterMuxedMP4:
		return strings.HasPrefix(f.MimeType, "video/mp4") && f.AudioChannels > 0 && f.Height > 0
	}
	return false
}

// better reports whether a ranks above b for the quality hint.
func better(a, b *youtube.Format, quality string) bool {
	if quality == QualityHighestAudio {
		return audioBitrate(a) > audioBitrate(b)
	}
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Bitrate > b.Bitrate
}

func audioBitrate(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func isMP3(f *youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, "audio/mpeg")
}

func extractionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrExtractionTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
}

// chainedBody reads from Reader and closes every closer in order.
type chainedBody struct {
	io.Reader
	closers []io.Closer
}

func (c *chainedBody) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
