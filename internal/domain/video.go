package domain

import (
	"regexp"
)

// WatchBaseURL is the page URL extraction engines resolve identifiers against.
const WatchBaseURL = "https://www.youtube.com/watch?v="

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID is the platform-assigned 11-character identifier of a video.
type VideoID string

// String returns the string representation of the VideoID.
func (id VideoID) String() string {
	return string(id)
}

// WatchURL returns the watch page URL for the video.
func (id VideoID) WatchURL() string {
	return WatchBaseURL + string(id)
}

// ParseVideoID validates s and returns it as a VideoID.
func ParseVideoID(s string) (VideoID, error) {
	if !videoIDPattern.MatchString(s) {
		return "", ErrInvalidVideoID
	}
	return VideoID(s), nil
}

// MediaType is the requested output kind.
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// ParseMediaType validates s and returns it as a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaTypeAudio, MediaTypeVideo:
		return MediaType(s), nil
	}
	return "", ErrInvalidMediaType
}

// String returns the string representation of the MediaType.
func (t MediaType) String() string {
	return string(t)
}

// Extension returns the file extension delivered for the media type.
func (t MediaType) Extension() string {
	if t == MediaTypeAudio {
		return "mp3"
	}
	return "mp4"
}

// ContentType returns the MIME type delivered for the media type.
func (t MediaType) ContentType() string {
	if t == MediaTypeAudio {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// DownloadRequest is a validated request for one media item.
type DownloadRequest struct {
	VideoID   VideoID
	MediaType MediaType
}

// NewDownloadRequest validates the raw identifier and type, identifier first.
func NewDownloadRequest(videoID, mediaType string) (DownloadRequest, error) {
	id, err := ParseVideoID(videoID)
	if err != nil {
		return DownloadRequest{}, err
	}
	mt, err := ParseMediaType(mediaType)
	if err != nil {
		return DownloadRequest{}, err
	}
	return DownloadRequest{VideoID: id, MediaType: mt}, nil
}
