package downloader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kkdai/youtube/v2"

	"github.com/AayuseX11/Ydlcoredownload/internal/config"
	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeYouTube is a test implementation of youtubeClient.
type fakeYouTube struct {
	video     *youtube.Video
	videoErr  error
	streamErr error
	body      string

	gotURL    string
	gotFormat *youtube.Format
	closed    bool
}

func (f *fakeYouTube) GetVideoContext(ctx context.Context, url string) (*youtube.Video, error) {
	f.gotURL = url
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.video, nil
}

func (f *fakeYouTube) GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	f.gotFormat = format
	if f.streamErr != nil {
		return nil, 0, f.streamErr
	}
	return &trackingCloser{Reader: strings.NewReader(f.body), closed: &f.closed}, int64(len(f.body)), nil
}

type trackingCloser struct {
	io.Reader
	closed *bool
}

func (t *trackingCloser) Close() error {
	*t.closed = true
	return nil
}

// upperTranscoder stands in for ffmpeg by upper-casing the stream.
type upperTranscoder struct {
	err    error
	called bool
}

func (u *upperTranscoder) ToMP3(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
	u.called = true
	if u.err != nil {
		return nil, u.err
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(strings.ToUpper(string(data)))), nil
}

func sampleFormats() youtube.FormatList {
	return youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, Bitrate: 500000, AudioChannels: 2},
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Height: 720, Bitrate: 1500000, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080, Bitrate: 4000000},
		{ItagNo: 43, MimeType: `video/webm; codecs="vp8.0, vorbis"`, Height: 1080, Bitrate: 900000, AudioChannels: 2},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AverageBitrate: 129000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AverageBitrate: 140000, AudioChannels: 2},
		{ItagNo: 249, MimeType: `audio/webm; codecs="opus"`, Bitrate: 60000, AverageBitrate: 50000, AudioChannels: 2},
	}
}

func newTestStreamExtractor(client youtubeClient, tr AudioTranscoder) *StreamExtractor {
	e := NewStreamExtractor(config.StreamConfig{}, tr, testLogger())
	e.client = client
	return e
}

func TestOptionsFor(t *testing.T) {
	audio := OptionsFor(domain.MediaTypeAudio)
	if audio.Filter != FilterAudioOnly || audio.Quality != QualityHighestAudio || audio.Format != "mp3" {
		t.Errorf("audio options = %+v", audio)
	}

	video := OptionsFor(domain.MediaTypeVideo)
	if video.Filter != FilterMuxedMP4 || video.Quality != QualityHighest || video.Format != "mp4" {
		t.Errorf("video options = %+v", video)
	}
}

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantItag int
	}{
		{"highest audio", OptionsFor(domain.MediaTypeAudio), 251},
		{"highest muxed mp4", OptionsFor(domain.MediaTypeVideo), 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := SelectFormat(sampleFormats(), tt.opts)
			if err != nil {
				t.Fatalf("SelectFormat: %v", err)
			}
			if f.ItagNo != tt.wantItag {
				t.Errorf("itag = %d, want %d", f.ItagNo, tt.wantItag)
			}
		})
	}
}

func TestSelectFormat_NoMatch(t *testing.T) {
	onlyAudio := youtube.FormatList{
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000},
	}

	_, err := SelectFormat(onlyAudio, OptionsFor(domain.MediaTypeVideo))
	if !errors.Is(err, domain.ErrNoMatchingFormat) {
		t.Errorf("error = %v, want ErrNoMatchingFormat", err)
	}

	_, err = SelectFormat(nil, OptionsFor(domain.MediaTypeAudio))
	if !errors.Is(err, domain.ErrNoMatchingFormat) {
		t.Errorf("error = %v, want ErrNoMatchingFormat", err)
	}
}

func TestSelectFormat_AudioFallsBackToBitrate(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 1, MimeType: "audio/mp4", Bitrate: 64000},
		{ItagNo: 2, MimeType: "audio/mp4", Bitrate: 128000},
	}
	f, err := SelectFormat(formats, OptionsFor(domain.MediaTypeAudio))
	if err != nil {
		t.Fatalf("SelectFormat: %v", err)
	}
	if f.ItagNo != 2 {
		t.Errorf("itag = %d, want 2", f.ItagNo)
	}
}

func TestStreamExtractor_Name(t *testing.T) {
	e := newTestStreamExtractor(&fakeYouTube{}, nil)
	if e.Name() != "stream" {
		t.Errorf("Name() = %q, want stream", e.Name())
	}
}

func TestStreamExtractor_Extract_Video(t *testing.T) {
	client := &fakeYouTube{
		video: &youtube.Video{ID: "dQw4w9WgXcQ", Title: "Never Gonna: Give You Up!", Formats: sampleFormats()},
		body:  "mp4-bytes",
	}
	tr := &upperTranscoder{}
	e := newTestStreamExtractor(client, tr)

	media, err := e.Extract(context.Background(), domain.DownloadRequest{VideoID: "dQw4w9WgXcQ", MediaType: domain.MediaTypeVideo})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer media.Close()

	if client.gotURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("url = %q", client.gotURL)
	}
	if client.gotFormat == nil || client.gotFormat.ItagNo != 22 {
		t.Errorf("format = %+v, want itag 22", client.gotFormat)
	}
	if tr.called {
		t.Error("video must not be transcoded")
	}
	if media.ContentType != "video/mp4" {
		t.Errorf("ContentType = %q", media.ContentType)
	}
	if media.AttachmentName() != "Never Gonna Give You Up.mp4" {
		t.Errorf("AttachmentName() = %q", media.AttachmentName())
	}
	if media.Size != -1 {
		t.Errorf("Size = %d, want -1", media.Size)
	}

	data, _ := io.ReadAll(media)
	if string(data) != "mp4-bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestStreamExtractor_Extract_AudioTranscoded(t *testing.T) {
	client := &fakeYouTube{
		video: &youtube.Video{ID: "dQw4w9WgXcQ", Title: "Song", Formats: sampleFormats()},
		body:  "opus-bytes",
	}
	tr := &upperTranscoder{}
	e := newTestStreamExtractor(client, tr)

	media, err := e.Extract(context.Background(), domain.DownloadRequest{VideoID: "dQw4w9WgXcQ", MediaType: domain.MediaTypeAudio})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !tr.called {
		t.Error("audio should be transcoded")
	}
	if media.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %q", media.ContentType)
	}
	if media.AttachmentName() != "Song.mp3" {
		t.Errorf("AttachmentName() = %q", media.AttachmentName())
	}

	data, _ := io.ReadAll(media)
	if string(data) != "OPUS-BYTES" {
		t.Errorf("body = %q", data)
	}

	if err := media.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed {
		t.Error("source stream should be closed")
	}
}

func TestStreamExtractor_Extract_AudioWithoutTranscoder(t *testing.T) {
	client := &fakeYouTube{
		video: &youtube.Video{ID: "dQw4w9WgXcQ", Title: "Song", Formats: sampleFormats()},
		body:  "opus-bytes",
	}
	e := newTestStreamExtractor(client, nil)

	media, err := e.Extract(context.Background(), domain.DownloadRequest{VideoID: "dQw4w9WgXcQ", MediaType: domain.MediaTypeAudio})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer media.Close()

	data, _ := io.ReadAll(media)
	if string(data) != "opus-bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestStreamExtractor_Extract_EmptyTitleFallsBackToID(t *testing.T) {
	client := &fakeYouTube{
		video: &youtube.Video{ID: "dQw4w9WgXcQ", Title: "!!!", Formats: sampleFormats()},
	}
	e := newTestStreamExtractor(client, nil)

	media, err := e.Extract(context.Background(), domain.DownloadRequest{VideoID: "dQw4w9WgXcQ", MediaType: domain.MediaTypeVideo})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer media.Close()

	if media.Filename != "dQw4w9WgXcQ" {
		t.Errorf("Filename = %q, want dQw4w9WgXcQ", media.Filename)
	}
}

func TestStreamExtractor_Extract_Errors(t *testing.T) {
	req := domain.DownloadRequest{VideoID: "dQw4w9WgXcQ", MediaType: domain.MediaTypeVideo}

	tests := []struct {
		name    string
		client  *fakeYouTube
		tr      AudioTranscoder
		mtype   domain.MediaType
		wantErr error
	}{
		{
			name:    "metadata failure",
			client:  &fakeYouTube{videoErr: errors.New("video is private")},
			wantErr: domain.ErrExtractionFailed,
		},
		{
			name:    "metadata timeout",
			client:  &fakeYouTube{videoErr: context.DeadlineExceeded},
			wantErr: domain.ErrExtractionTimeout,
		},
		{
			name:    "no muxed format",
			client:  &fakeYouTube{video: &youtube.Video{Formats: youtube.FormatList{{MimeType: "audio/mp4"}}}},
			wantErr: domain.ErrNoMatchingFormat,
		},
		{
			name:    "stream failure",
			client:  &fakeYouTube{video: &youtube.Video{Formats: sampleFormats()}, streamErr: errors.New("403")},
			wantErr: domain.ErrExtractionFailed,
		},
		{
			name:    "transcoder failure",
			client:  &fakeYouTube{video: &youtube.Video{Formats: sampleFormats()}},
			tr:      &upperTranscoder{err: errors.New("exec failed")},
			mtype:   domain.MediaTypeAudio,
			wantErr: domain.ErrExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req
			if tt.mtype != "" {
				r.MediaType = tt.mtype
			}
			e := newTestStreamExtractor(tt.client, tt.tr)
			media, err := e.Extract(context.Background(), r)
			if media != nil {
				t.Error("media should be nil on error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			var de *domain.DownloadError
			if !errors.As(err, &de) || de.VideoID != "dQw4w9WgXcQ" {
				t.Errorf("error should be a DownloadError for the video, got %v", err)
			}
		})
	}
}

func TestStreamExtractor_Extract_TranscoderFailureClosesStream(t *testing.T) {
	client := &fakeYouTube{video: &youtube.Video{Formats: sampleFormats()}}
	e := newTestStreamExtractor(client, &upperTranscoder{err: errors.New("boom")})

	_, err := e.Extract(context.Background(), domain.DownloadRequest{VideoID: "dQw4w9WgXcQ", MediaType: domain.MediaTypeAudio})
	if err == nil {
		t.Fatal("expected error")
	}
	if !client.closed {
		t.Error("stream should be closed when transcoding cannot start")
	}
}
