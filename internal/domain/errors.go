package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidVideoID is returned when the identifier is not 11 characters of [A-Za-z0-9_-].
	ErrInvalidVideoID = errors.New("invalid video ID")

	// ErrInvalidMediaType is returned when the type is neither audio nor video.
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrExtractionFailed is returned when the engine could not produce media.
	ErrExtractionFailed = errors.New("media extraction failed")

	// ErrExtractionTimeout is returned when the engine exceeded its time limit.
	ErrExtractionTimeout = errors.New("media extraction timed out")

	// ErrArtifactNotFound is returned when the downloader succeeded but left no output file.
	ErrArtifactNotFound = errors.New("downloaded file not found")

	// ErrStorageFull is returned when there is insufficient space for temp artifacts.
	ErrStorageFull = errors.New("insufficient storage space")

	// ErrStreamFailed is returned when relaying bytes to the client fails.
	ErrStreamFailed = errors.New("error streaming content")

	// ErrNoMatchingFormat is returned when no format satisfies the media type filter.
	ErrNoMatchingFormat = errors.New("no matching format")
)

// DownloadError wraps an error with video context.
type DownloadError struct {
	VideoID VideoID
	Op      string
	Err     error
}

func (e *DownloadError) Error() string {
	if e.VideoID != "" {
		return e.Op + " [" + e.VideoID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(videoID VideoID, op string, err error) *DownloadError {
	return &DownloadError{
		VideoID: videoID,
		Op:      op,
		Err:     err,
	}
}

// IsExtractionFailure reports whether err means the engine could not produce media.
func IsExtractionFailure(err error) bool {
	return errors.Is(err, ErrExtractionFailed) || errors.Is(err, ErrExtractionTimeout)
}
