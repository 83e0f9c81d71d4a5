package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ConcatAudio joins the given audio files into one continuous aac track.
// Inputs may have mixed codecs and sample rates; everything is resampled to
// the standard 44.1kHz output.
func (e *Executor) ConcatAudio(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("tracks", len(inputs)).
		Str("output", output).
		Msg("concatenating audio tracks")

	script, err := e.createConcatScript(inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat script: %w", err)
	}
	defer os.Remove(script)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", script,
		"-vn",
		"-c:a", DefaultAudioCodec,
		"-ar", fmt.Sprintf("%d", AudioSampleRate),
		output,
	}

	runOpts := RunOptions{
		Args:       args,
		LogHandler: e.debugLogHandler("audio concat"),
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("audio concat failed: %w", err)
	}
	return nil
}

// AudioCanvasOptions configures the silent-canvas compositing step.
type AudioCanvasOptions struct {
	// Music is the concatenated background track laid over the canvas.
	Music string
	// TargetDuration is the exact output duration in seconds; the silent
	// canvas pins the result to it regardless of music length drift.
	TargetDuration float64
	// AudioEnd is where audible music stops; the gap to TargetDuration
	// stays silent.
	AudioEnd float64
	// FadeSeconds is the fade-out length ending at AudioEnd. Zero disables
	// the fade filter.
	FadeSeconds float64
	Output      string
}

// ComposeAudioCanvas lays the music track over a full-length silent canvas:
// the music is trimmed to AudioEnd, faded out, and mixed onto generated
// silence of exactly TargetDuration seconds. The canvas guarantees the final
// duration is exact no matter how the trim and fade round.
func (e *Executor) ComposeAudioCanvas(ctx context.Context, opts AudioCanvasOptions) error {
	if opts.Music == "" {
		return fmt.Errorf("music path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.TargetDuration <= 0 {
		return fmt.Errorf("target duration must be positive")
	}

	filter := buildCanvasFilter(opts.AudioEnd, opts.FadeSeconds)

	e.logger.Info().
		Float64("target_duration", opts.TargetDuration).
		Float64("audio_end", opts.AudioEnd).
		Float64("fade", opts.FadeSeconds).
		Msg("compositing audio onto silent canvas")

	args := []string{
		"-f", "lavfi",
		"-t", fmt.Sprintf("%.3f", opts.TargetDuration),
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", AudioSampleRate),
		"-i", opts.Music,
		"-filter_complex", filter,
		"-map", "[out]",
		"-t", fmt.Sprintf("%.3f", opts.TargetDuration),
		"-c:a", DefaultAudioCodec,
		"-ar", fmt.Sprintf("%d", AudioSampleRate),
		opts.Output,
	}

	runOpts := RunOptions{
		Args:       args,
		LogHandler: e.debugLogHandler("audio canvas"),
		Duration:   opts.TargetDuration,
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("audio canvas composition failed: %w", err)
	}
	return nil
}

// buildCanvasFilter assembles the filtergraph for the canvas mix. The music
// chain trims to audioEnd and optionally fades; the amix keeps the canvas
// duration authoritative.
func buildCanvasFilter(audioEnd, fadeSeconds float64) string {
	chain := fmt.Sprintf("[1:a]atrim=0:%.3f,asetpts=PTS-STARTPTS", audioEnd)
	if fadeSeconds > 0 {
		fadeStart := audioEnd - fadeSeconds
		if fadeStart < 0 {
			fadeStart = 0
		}
		chain += fmt.Sprintf(",afade=t=out:st=%.3f:d=%.3f", fadeStart, fadeSeconds)
	}
	chain += "[music]"
	// normalize=0 keeps the music at source level; amix would otherwise
	// scale each input by 1/2.
	return chain + ";[0:a][music]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[out]"
}

// RenderSilence writes a zero-amplitude stereo track of the given duration.
// Used when no music library is configured so video and audio stay aligned.
func (e *Executor) RenderSilence(ctx context.Context, duration float64, output string) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	args := []string{
		"-f", "lavfi",
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", AudioSampleRate),
		"-c:a", DefaultAudioCodec,
		output,
	}

	runOpts := RunOptions{
		Args:       args,
		LogHandler: e.debugLogHandler("silence render"),
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("silence render failed: %w", err)
	}
	return nil
}

// ExtractAudio extracts a file's audio stream as aac at the standard sample rate
func (e *Executor) ExtractAudio(ctx context.Context, input, output string) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Msg("extracting audio")

	args := []string{
		"-i", input,
		"-vn",
		"-c:a", DefaultAudioCodec,
		"-ar", fmt.Sprintf("%d", AudioSampleRate),
		output,
	}

	runOpts := RunOptions{
		Args:       args,
		LogHandler: e.debugLogHandler("audio extraction"),
	}

	return e.Run(ctx, runOpts)
}

// createConcatScript generates a temporary file list for ffmpeg's concat demuxer
func (e *Executor) createConcatScript(inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "slideforge-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", absPath); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}
