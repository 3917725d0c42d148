package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/AayuseX11/Ydlcoredownload/internal/config"
	"github.com/AayuseX11/Ydlcoredownload/internal/domain"
	"github.com/AayuseX11/Ydlcoredownload/pkg/filename"
)

// Format selectors passed to yt-dlp.
const (
	audioFormatSelector = "bestaudio/best"
	videoFormatSelector = "best[ext=mp4]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best"
)

// YTDLPExtractor runs the yt-dlp executable into a request-scoped temp
// directory and hands back the resulting file. Each request gets its own
// directory so concurrent downloads of the same video never see each
// other's artifacts.
type YTDLPExtractor struct {
	binary       string
	tempDir      string
	timeout      time.Duration
	minFreeBytes int64
	freeSpace    func(path string) int64
	logger       *slog.Logger
}

// NewYTDLPExtractor creates a new yt-dlp backed extractor.
func NewYTDLPExtractor(cfg config.YTDLPConfig, logger *slog.Logger) *YTDLPExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &YTDLPExtractor{
		binary:       cfg.Path,
		tempDir:      cfg.TempDir,
		timeout:      timeout,
		minFreeBytes: cfg.MinFreeBytes,
		freeSpace:    freeDiskSpace,
		logger:       logger,
	}
}

// Name implements Extractor.
func (e *YTDLPExtractor) Name() string {
	return config.EngineYTDLP
}

// TempDir returns the root under which request directories are created.
func (e *YTDLPExtractor) TempDir() string {
	return e.tempDir
}

// Prepare ensures the temp root exists.
func (e *YTDLPExtractor) Prepare() error {
	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	return nil
}

// Extract implements Extractor.
func (e *YTDLPExtractor) Extract(ctx context.Context, req domain.DownloadRequest) (*Media, error) {
	if err := e.Prepare(); err != nil {
		return nil, domain.NewDownloadError(req.VideoID, "prepare", err)
	}

	if e.minFreeBytes > 0 {
		if free := e.freeSpace(e.tempDir); free >= 0 && free < e.minFreeBytes {
			return nil, domain.NewDownloadError(req.VideoID, "check storage", domain.ErrStorageFull)
		}
	}

	workDir := filepath.Join(e.tempDir, uuid.NewString())
	if err := os.Mkdir(workDir, 0755); err != nil {
		return nil, domain.NewDownloadError(req.VideoID, "prepare", fmt.Errorf("create request dir: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	template := filepath.Join(workDir, req.VideoID.String()+".%(ext)s")
	start := time.Now()

	// Killing yt-dlp does not kill the ffmpeg it spawned, and Run waits for
	// every holder of its output pipes. Wait on the context instead and let
	// the run clean up after itself whenever it returns.
	done := make(chan runOutcome, 1)
	go func() {
		result, err := e.command(req.MediaType, template).Run(runCtx, req.VideoID.WatchURL())
		done <- runOutcome{result: result, err: err}
	}()

	var out runOutcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		go func() {
			<-done
			e.removeWorkDir(workDir)
		}()
		return nil, e.runError(runCtx, req.VideoID, runCtx.Err())
	}

	if out.err != nil {
		e.removeWorkDir(workDir)
		return nil, e.runError(runCtx, req.VideoID, out.err)
	}
	result := out.result

	e.logger.Debug("yt-dlp finished",
		"video_id", req.VideoID,
		"type", req.MediaType,
		"duration", time.Since(start),
	)

	path, err := findArtifact(workDir, req.VideoID)
	if err != nil {
		e.removeWorkDir(workDir)
		return nil, domain.NewDownloadError(req.VideoID, "find artifact", err)
	}

	f, err := os.Open(path)
	if err != nil {
		e.removeWorkDir(workDir)
		return nil, domain.NewDownloadError(req.VideoID, "open artifact", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		e.removeWorkDir(workDir)
		return nil, domain.NewDownloadError(req.VideoID, "stat artifact", err)
	}

	title := parseTitle(result.Stdout)

	return &Media{
		Body:        &artifact{File: f, dir: workDir},
		Title:       title,
		Filename:    filename.OrDefault(filename.Sanitize(title), req.VideoID.String()),
		Extension:   req.MediaType.Extension(),
		ContentType: req.MediaType.ContentType(),
		Size:        info.Size(),
	}, nil
}

type runOutcome struct {
	result *ytdlp.Result
	err    error
}

func (e *YTDLPExtractor) runError(runCtx context.Context, id domain.VideoID, err error) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return domain.NewDownloadError(id, "run yt-dlp",
			fmt.Errorf("%w after %s: %w", domain.ErrExtractionTimeout, e.timeout, err))
	}
	return domain.NewDownloadError(id, "run yt-dlp",
		fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err))
}

func (e *YTDLPExtractor) command(t domain.MediaType, template string) *ytdlp.Command {
	cmd := ytdlp.New().
		SetExecutable(e.binary).
		SetSeparateProcessGroup(true).
		NoPlaylist().
		NoProgress().
		PrintJSON().
		Output(template)

	if t == domain.MediaTypeAudio {
		return cmd.
			Format(audioFormatSelector).
			ExtractAudio().
			AudioFormat("mp3").
			AudioQuality("0")
	}
	return cmd.
		Format(videoFormatSelector).
		MergeOutputFormat("mp4")
}

func (e *YTDLPExtractor) removeWorkDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove request dir", "dir", dir, "error", err)
	}
}

// findArtifact returns the first finished file in dir named after the video.
func findArtifact(dir string, id domain.VideoID) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrArtifactNotFound, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, id.String()) || strings.HasSuffix(name, ".part") {
			continue
		}
		return filepath.Join(dir, name), nil
	}
	return "", domain.ErrArtifactNotFound
}

// parseTitle returns the title from yt-dlp's --print-json output.
func parseTitle(stdout string) string {
	var title string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal([]byte(line), &info); err == nil && info.Title != "" {
			title = info.Title
		}
	}
	return title
}

// artifact is a downloaded file whose request directory is removed on Close.
type artifact struct {
	*os.File
	dir string
}

func (a *artifact) Close() error {
	closeErr := a.File.Close()
	if err := os.RemoveAll(a.dir); err != nil {
		return errors.Join(closeErr, fmt.Errorf("remove request dir: %w", err))
	}
	return closeErr
}
