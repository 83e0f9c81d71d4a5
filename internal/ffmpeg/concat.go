package ffmpeg

import (
	"context"
	"fmt"
	"os"
)

// ConcatOptions defines video concatenation parameters
type ConcatOptions struct {
	Inputs []string
	Output string
	// ReEncode forces a re-encode; without it streams are copied, which
	// requires all inputs to share codec, resolution and frame rate.
	ReEncode bool
	FPS      float64
	Encoding
	ProgressFunc ProgressFunc
}

// Concat merges multiple video files into one timeline, in input order
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating videos")

	script, err := e.createConcatScript(opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat script: %w", err)
	}
	defer os.Remove(script)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", script,
	}

	if opts.ReEncode {
		args = append(args,
			"-c:v", opts.videoCodec(),
			"-crf", fmt.Sprintf("%d", opts.crf()),
			"-preset", opts.preset(),
		)
		if opts.FPS > 0 {
			args = append(args, "-r", fmt.Sprintf("%.2f", opts.FPS))
		}
	} else {
		args = append(args, "-c", "copy")
	}

	args = append(args, "-an", opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler:      e.debugLogHandler("video concat"),
	}

	return e.Run(ctx, runOpts)
}

// NormalizeOptions configures conforming a clip to the project geometry
type NormalizeOptions struct {
	Input  string
	Output string
	Width  int
	Height int
	FPS    float64
	// Duration is the probed input length, used only for progress reporting.
	Duration float64
	Encoding
	ProgressFunc ProgressFunc
}

// NormalizeVideo re-encodes a clip to the project resolution and frame rate,
// dropping its audio stream. The append video passes through here before
// concatenation so the final timeline is uniform.
func (e *Executor) NormalizeVideo(ctx context.Context, opts NormalizeOptions) error {
	if opts.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid target resolution %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("fps must be positive")
	}

	e.logger.Info().
		Str("input", opts.Input).
		Int("width", opts.Width).
		Int("height", opts.Height).
		Float64("fps", opts.FPS).
		Msg("normalizing video geometry")

	filter := fmt.Sprintf("scale=%d:%d,fps=%.2f,format=yuv420p", opts.Width, opts.Height, opts.FPS)

	args := []string{
		"-i", opts.Input,
		"-vf", filter,
		"-c:v", opts.videoCodec(),
		"-crf", fmt.Sprintf("%d", opts.crf()),
		"-preset", opts.preset(),
		"-an",
		opts.Output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler:      e.debugLogHandler("video normalize"),
		Duration:        opts.Duration,
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("video normalize failed: %w", err)
	}
	return nil
}
