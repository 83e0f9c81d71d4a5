package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SlideshowOptions defines slideshow assembly parameters
type SlideshowOptions struct {
	// Images in presentation order, already standardized to the target
	// resolution. The sequence is repeated as often as needed.
	Images []string
	// ImageDuration is the per-image display time in seconds.
	ImageDuration float64
	// TargetDuration is the exact output duration in seconds; the repeated
	// sequence is truncated to it.
	TargetDuration float64
	// Repeats is how many times the full sequence is listed. Callers compute
	// ceil(TargetDuration / sequence duration).
	Repeats int
	FPS     float64
	Width   int
	Height  int
	Output  string
	Encoding
	ProgressFunc ProgressFunc
}

// BuildSlideshow encodes a silent video track that loops the image sequence
// and truncates it to exactly the target duration. The concat demuxer reads
// a generated script listing every still with its display duration.
func (e *Executor) BuildSlideshow(ctx context.Context, opts SlideshowOptions) error {
	if len(opts.Images) == 0 {
		return fmt.Errorf("no images provided")
	}
	if opts.ImageDuration <= 0 {
		return fmt.Errorf("image duration must be positive")
	}
	if opts.TargetDuration <= 0 {
		return fmt.Errorf("target duration must be positive")
	}
	if opts.Repeats < 1 {
		opts.Repeats = 1
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("images", len(opts.Images)).
		Int("repeats", opts.Repeats).
		Float64("target_duration", opts.TargetDuration).
		Float64("fps", opts.FPS).
		Msg("assembling slideshow")

	script, err := e.writeSlideshowScript(opts.Images, opts.ImageDuration, opts.Repeats)
	if err != nil {
		return fmt.Errorf("failed to create slideshow script: %w", err)
	}
	defer os.Remove(script)

	filter := fmt.Sprintf("scale=%d:%d,fps=%.2f,format=yuv420p", opts.Width, opts.Height, opts.FPS)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", script,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", opts.TargetDuration),
		"-c:v", opts.videoCodec(),
		"-crf", fmt.Sprintf("%d", opts.crf()),
		"-preset", opts.preset(),
		"-an",
		opts.Output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler:      e.debugLogHandler("slideshow assembly"),
		Duration:        opts.TargetDuration,
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("slideshow assembly failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("slideshow assembled")
	return nil
}

// writeSlideshowScript generates the concat demuxer script for the repeated
// image sequence. The final entry repeats the last image without a duration
// so the demuxer honors the preceding duration directive.
func (e *Executor) writeSlideshowScript(images []string, imageDuration float64, repeats int) (string, error) {
	tmpFile, err := os.CreateTemp("", "slideforge-slides-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	var last string
	for i := 0; i < repeats; i++ {
		for _, img := range images {
			absPath, err := filepath.Abs(img)
			if err != nil {
				return "", err
			}
			if _, err := fmt.Fprintf(tmpFile, "file '%s'\nduration %.3f\n", absPath, imageDuration); err != nil {
				return "", err
			}
			last = absPath
		}
	}
	if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", last); err != nil {
		return "", err
	}

	return tmpFile.Name(), nil
}
