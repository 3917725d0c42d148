// Package relay copies extracted media to an HTTP client as an attachment.
package relay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
	"github.com/AayuseX11/Ydlcoredownload/internal/downloader"
)

const bufferSize = 32 * 1024

// Result describes how far a relay got.
type Result struct {
	Written     int64
	HeadersSent bool
}

// Relay writes media to w. The first bytes are read before any header is
// written, so a source that fails immediately leaves the response untouched
// and the caller can still send an error body. Once HeadersSent is true the
// only remaining option for the caller is to abort the connection.
func Relay(w http.ResponseWriter, m *downloader.Media) (Result, error) {
	br := bufio.NewReaderSize(m, bufferSize)
	if _, err := br.Peek(1); err != nil && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrStreamFailed, err)
	}

	h := w.Header()
	if m.Size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(m.Size, 10))
	}
	h.Set("Content-Type", m.ContentType)
	h.Set("Content-Disposition", ContentDisposition(m.AttachmentName()))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, br)
	res := Result{Written: n, HeadersSent: true}
	if err != nil {
		return res, fmt.Errorf("%w after %d bytes: %w", domain.ErrStreamFailed, n, err)
	}
	return res, nil
}

// ContentDisposition returns an attachment disposition for name.
func ContentDisposition(name string) string {
	return `attachment; filename="` + name + `"`
}
