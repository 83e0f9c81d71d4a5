// Package overlay generates the drawbox/drawtext filter chains burned into
// the composed video: the countdown timer and the music attribution
// captions. Filters are returned as strings so the encoder can write them to
// a filter script and apply them in a single pass.
package overlay

import (
	"fmt"
	"strings"

	"github.com/kikiluvv/slideforge/internal/ffmpeg"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// Timer placement options.
const (
	PositionTopMiddle   = "top-middle"
	PositionBottomRight = "bottom-right"
)

const (
	timerBoxWidth  = 260
	timerBoxHeight = 110
	timerBoxAlpha  = 0.4
	timerMargin    = 50
	timerFontSize  = 72

	captionFontSize  = 28
	captionMargin    = 40
	captionLineStep  = 36
	captionCharWidth = 0.55 // rough glyph width as a fraction of font size
)

// TimerOptions configures the countdown overlay. Minutes is a lookback: the
// timer appears Minutes*60 seconds before the end of the video and counts
// down to zero at the final frame.
type TimerOptions struct {
	Minutes       int
	VideoDuration float64
	Width         int
	Height        int
	Position      string
}

// Caption is one attribution to display, starting at Start seconds into the
// video.
type Caption struct {
	Text  string
	Start float64
}

// TimerFilters returns the filter chain for the countdown, one drawtext per
// displayed second, reaching 00:00 at the end of the video. The chain is
// empty when the lookback or the video duration is not positive.
func TimerFilters(opts TimerOptions) []string {
	total := int(opts.VideoDuration)
	start := total - opts.Minutes*60
	if start < 0 {
		start = 0
	}
	if opts.Minutes <= 0 || total <= start {
		return nil
	}

	boxX, boxY := timerBoxPosition(opts)
	filters := make([]string, 0, total-start+1)
	filters = append(filters, fmt.Sprintf(
		"drawbox=x=%d:y=%d:w=%d:h=%d:color=black@%.1f:t=fill:enable='between(t,%d,%d)'",
		boxX, boxY, timerBoxWidth, timerBoxHeight, timerBoxAlpha, start, total,
	))

	// Each one-second window shows the time remaining at its end, so the
	// final window reads 00:00 as the video closes out.
	for s := start; s < total; s++ {
		remaining := total - s - 1
		text := ffmpeg.EscapeDrawtext(util.FormatClock(remaining))
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontsize=%d:fontcolor=white:x=%d+(%d-text_w)/2:y=%d+(%d-text_h)/2:enable='between(t,%d,%d)'",
			text, timerFontSize, boxX, timerBoxWidth, boxY, timerBoxHeight, s, s+1,
		))
	}

	return filters
}

func timerBoxPosition(opts TimerOptions) (x, y int) {
	switch opts.Position {
	case PositionBottomRight:
		return opts.Width - timerBoxWidth - timerMargin,
			opts.Height - timerBoxHeight - timerMargin
	default:
		return (opts.Width - timerBoxWidth) / 2, timerMargin
	}
}

// AttributionFilters returns the filter chain showing each caption in the
// bottom-right corner for displaySeconds, or until the video ends if that
// comes first. Captions starting at or past the video end are dropped. Text
// wraps to at most a third of the frame width, one drawtext per line.
func AttributionFilters(captions []Caption, width, height int, videoDuration, displaySeconds float64) []string {
	maxChars := int(float64(width) / 3 / (captionFontSize * captionCharWidth))
	if maxChars < 8 {
		maxChars = 8
	}

	var filters []string
	for _, c := range captions {
		visible := displaySeconds
		if rest := videoDuration - c.Start; rest < visible {
			visible = rest
		}
		if visible <= 0 {
			continue
		}

		lines := wrapText(c.Text, maxChars)
		for i, line := range lines {
			y := height - captionMargin - (len(lines)-i)*captionLineStep
			filters = append(filters, fmt.Sprintf(
				"drawtext=text='%s':fontsize=%d:fontcolor=white:box=1:boxcolor=black@%.1f:boxborderw=6:x=w-text_w-%d:y=%d:enable='between(t,%.3f,%.3f)'",
				ffmpeg.EscapeDrawtext(line), captionFontSize, timerBoxAlpha,
				captionMargin, y, c.Start, c.Start+visible,
			))
		}
	}

	return filters
}

// wrapText greedily wraps words to lines of at most maxChars characters.
// Words longer than a line get a line of their own.
func wrapText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) <= maxChars {
			current += " " + w
		} else {
			lines = append(lines, current)
			current = w
		}
	}
	return append(lines, current)
}
