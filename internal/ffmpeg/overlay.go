package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// BurnFilters re-encodes the input with the given video filter chain burned
// in. The chain is written to a filter script file instead of being passed on
// the command line: a countdown timer contributes one drawtext per second,
// and long videos would otherwise overflow the argument list.
func (e *Executor) BurnFilters(ctx context.Context, input, output string, filters []string, enc Encoding, progressFunc ProgressFunc) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}
	if len(filters) == 0 {
		return fmt.Errorf("filter chain cannot be empty")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Int("filters", len(filters)).
		Msg("burning overlay filters")

	script, err := e.writeFilterScript(filters)
	if err != nil {
		return fmt.Errorf("failed to create filter script: %w", err)
	}
	defer os.Remove(script)

	args := []string{
		"-i", input,
		"-filter_script:v", script,
		"-c:v", enc.videoCodec(),
		"-crf", fmt.Sprintf("%d", enc.crf()),
		"-preset", enc.preset(),
		"-an",
		output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler:      e.debugLogHandler("overlay burn"),
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("overlay burn failed: %w", err)
	}

	e.logger.Info().Str("output", output).Msg("overlays burned")
	return nil
}

func (e *Executor) writeFilterScript(filters []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "slideforge-filters-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(strings.Join(filters, ",\n")); err != nil {
		return "", err
	}

	return tmpFile.Name(), nil
}

// EscapeDrawtext escapes text for use inside a drawtext filter argument
func EscapeDrawtext(text string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"'", "\\'",
		":", "\\:",
		"%", "\\%",
		",", "\\,",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(text)
}
