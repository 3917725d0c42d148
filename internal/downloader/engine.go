package downloader

import (
	"fmt"
	"log/slog"

	"github.com/AayuseX11/Ydlcoredownload/internal/config"
	"github.com/AayuseX11/Ydlcoredownload/pkg/ffmpeg"
)

// New builds the extractor selected by cfg.Extractor.Engine.
func New(cfg *config.Config, logger *slog.Logger) (Extractor, error) {
	switch cfg.Extractor.Engine {
	case config.EngineYTDLP:
		e := NewYTDLPExtractor(cfg.YTDLP, logger)
		if err := e.Prepare(); err != nil {
			return nil, err
		}
		return e, nil

	case config.EngineStream:
		var transcoder AudioTranscoder
		if cfg.Stream.TranscodeAudio {
			t, err := ffmpeg.NewTranscoder(cfg.Stream.FFmpegPath)
			if err != nil {
				logger.Warn("audio transcoding disabled", "error", err)
			} else {
				transcoder = t
			}
		}
		return NewStreamExtractor(cfg.Stream, transcoder, logger), nil
	}
	return nil, fmt.Errorf("unknown extractor engine %q", cfg.Extractor.Engine)
}
