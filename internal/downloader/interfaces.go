package downloader

import (
	"context"
	"io"

	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
)

// Extractor resolves a download request to media bytes.
type Extractor interface {
	// Name identifies the engine in health output, logs and metrics.
	Name() string

	// Extract fetches media for the request. Caller is responsible for
	// closing the returned Media.
	Extract(ctx context.Context, req domain.DownloadRequest) (*Media, error)
}

// Media is an extracted byte source plus the metadata the relay needs.
type Media struct {
	Body        io.ReadCloser
	Title       string
	Filename    string // sanitized, without extension
	Extension   string
	ContentType string
	Size        int64 // -1 when unknown ahead of streaming
}

// Read reads from the media body.
func (m *Media) Read(p []byte) (int, error) {
	return m.Body.Read(p)
}

// Close releases the body and any resources backing it.
func (m *Media) Close() error {
	return m.Body.Close()
}

// AttachmentName returns the filename offered to the client.
func (m *Media) AttachmentName() string {
	return m.Filename + "." + m.Extension
}

// Options are the extraction options derived from a media type.
type Options struct {
	Filter  string // audioonly or muxed-mp4
	Quality string // highestaudio or highest
	Format  string // target container
}

// Filters and qualities understood by the engines.
const (
	FilterAudioOnly = "audioonly"
	FilterMuxedMP4  = "audioandvideo/mp4"

	QualityHighestAudio = "highestaudio"
	QualityHighest      = "highest"
)

// OptionsFor returns the extraction options for a media type.
func OptionsFor(t domain.MediaType) Options {
	if t == domain.MediaTypeAudio {
		return Options{
			Filter:  FilterAudioOnly,
			Quality: QualityHighestAudio,
			Format:  "mp3",
		}
	}
	return Options{
		Filter:  FilterMuxedMP4,
		Quality: QualityHighest,
		Format:  "mp4",
	}
}
