package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kikiluvv/slideforge/pkg/util"
)

// ExportOptions defines final muxing parameters
type ExportOptions struct {
	// Video is the fully composed, already encoded video timeline.
	Video string
	// Audio is the pre-rendered audio file muxed alongside the video.
	// Empty means the output carries no audio stream.
	Audio  string
	Output string
	// FPS stamps the container frame rate; the streams themselves were
	// already conformed during composition.
	FPS float64
	// Duration is the expected output length, used for progress reporting.
	Duration     float64
	ProgressFunc ProgressFunc
}

// Export muxes the composed video and the pre-rendered audio file into the
// final output. Writing audio to its own file first and muxing here avoids
// the mid-write stream ordering failures seen when encoding both at once.
func (e *Executor) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Video == "" {
		return fmt.Errorf("video path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	if dir := filepath.Dir(opts.Output); dir != "" && dir != "." {
		if err := util.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	e.logger.Info().
		Str("video", opts.Video).
		Str("audio", opts.Audio).
		Str("output", opts.Output).
		Float64("fps", opts.FPS).
		Msg("exporting final video")

	args := []string{"-i", opts.Video}

	if opts.Audio != "" {
		args = append(args,
			"-i", opts.Audio,
			"-map", "0:v",
			"-map", "1:a",
			"-c:a", "copy",
		)
	} else {
		args = append(args, "-map", "0:v")
	}

	// The video stream was encoded at the plan frame rate during
	// composition; the export is a copy-mux only.
	args = append(args, "-c:v", "copy", "-movflags", "+faststart", opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler:      e.debugLogHandler("export"),
		Duration:        opts.Duration,
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("export complete")
	return nil
}
