package handler

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
	"github.com/AayuseX11/Ydlcoredownload/internal/downloader"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExtractor is a test implementation of downloader.Extractor.
type fakeExtractor struct {
	mu      sync.Mutex
	name    string
	newBody func() io.ReadCloser
	size    int64
	title   string
	err     error
	calls   int
	lastReq domain.DownloadRequest
	bodies  []*trackedBody
}

func newFakeExtractor(content string) *fakeExtractor {
	return &fakeExtractor{
		name:    "fake",
		newBody: func() io.ReadCloser { return io.NopCloser(strings.NewReader(content)) },
		size:    int64(len(content)),
		title:   "Never Gonna Give You Up",
	}
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(ctx context.Context, req domain.DownloadRequest) (*downloader.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}

	body := &trackedBody{ReadCloser: f.newBody()}
	f.bodies = append(f.bodies, body)
	return &downloader.Media{
		Body:        body,
		Title:       f.title,
		Filename:    f.title,
		Extension:   req.MediaType.Extension(),
		ContentType: req.MediaType.ContentType(),
		Size:        f.size,
	}, nil
}

func (f *fakeExtractor) allClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bodies {
		if !b.closed {
			return false
		}
	}
	return true
}

// trackedBody records whether it was closed.
type trackedBody struct {
	io.ReadCloser
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return b.ReadCloser.Close()
}

// failingReader returns data once, then err.
type failingReader struct {
	data string
	err  error
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent && r.data != "" {
		r.sent = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func (r *failingReader) Close() error { return nil }
