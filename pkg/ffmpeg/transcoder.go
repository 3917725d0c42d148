package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long Close waits for ffmpeg's pipes after killing it.
const waitDelay = 5 * time.Second

// Transcoder converts media streams with ffmpeg.
type Transcoder struct {
	ffmpegPath string
}

// NewTranscoder creates a new transcoder.
// The binary is resolved through PATH unless an absolute path is given.
func NewTranscoder(path string) (*Transcoder, error) {
	if path == "" {
		path = "ffmpeg"
	}
	ffmpegPath, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &Transcoder{ffmpegPath: ffmpegPath}, nil
}

// Path returns the resolved ffmpeg executable.
func (t *Transcoder) Path() string {
	return t.ffmpegPath
}

// ToMP3 starts ffmpeg reading src from stdin and returns its MP3 output.
// The returned reader reports ffmpeg failures as a read error at end of
// output. Closing it kills ffmpeg if it is still running; it does not
// close src.
func (t *Transcoder) ToMP3(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "0",
		"-f", "mp3",
		"pipe:1",
	)
	cmd.Stdin = src
	cmd.WaitDelay = waitDelay

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &processReader{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// processReader streams a running command's stdout.
type processReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer

	once    sync.Once
	waitErr error
}

func (p *processReader) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (p *processReader) Close() error {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		p.cmd.Wait()
	})
	return nil
}

func (p *processReader) wait() error {
	p.once.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			msg := strings.TrimSpace(p.stderr.String())
			p.waitErr = fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
	})
	return p.waitErr
}
