package overlay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerFiltersCountdown(t *testing.T) {
	filters := TimerFilters(TimerOptions{
		Minutes:       1,
		VideoDuration: 600,
		Width:         1920,
		Height:        1080,
		Position:      PositionTopMiddle,
	})

	// One drawbox plus one drawtext per second of the final minute
	require.Len(t, filters, 61)

	assert.Contains(t, filters[0], "drawbox=x=830:y=50:w=260:h=110")
	assert.Contains(t, filters[0], "color=black@0.4")
	assert.Contains(t, filters[0], "enable='between(t,540,600)'")

	// Each window shows the time left at its end: the countdown reaches
	// 00:00 during the final second
	assert.Contains(t, filters[1], `text='00\:59'`)
	assert.Contains(t, filters[1], "enable='between(t,540,541)'")
	assert.Contains(t, filters[60], `text='00\:00'`)
	assert.Contains(t, filters[60], "enable='between(t,599,600)'")
}

func TestTimerFiltersLookbackLongerThanVideo(t *testing.T) {
	filters := TimerFilters(TimerOptions{
		Minutes:       10,
		VideoDuration: 90,
		Width:         1920,
		Height:        1080,
	})

	// The timer clamps to the start of the video and counts its whole length
	require.Len(t, filters, 91)
	assert.Contains(t, filters[1], `text='01\:29'`)
	assert.Contains(t, filters[1], "enable='between(t,0,1)'")
	assert.Contains(t, filters[90], `text='00\:00'`)
}

func TestTimerFiltersBottomRight(t *testing.T) {
	filters := TimerFilters(TimerOptions{
		Minutes:       1,
		VideoDuration: 600,
		Width:         1920,
		Height:        1080,
		Position:      PositionBottomRight,
	})
	require.NotEmpty(t, filters)
	assert.Contains(t, filters[0], "drawbox=x=1610:y=920")
}

func TestTimerFiltersDisabled(t *testing.T) {
	assert.Empty(t, TimerFilters(TimerOptions{Minutes: 0, VideoDuration: 600, Width: 1920, Height: 1080}))
	assert.Empty(t, TimerFilters(TimerOptions{Minutes: 1, VideoDuration: 0, Width: 1920, Height: 1080}))
}

func TestAttributionFiltersClampToVideoEnd(t *testing.T) {
	captions := []Caption{
		{Text: "Early", Start: 0},
		{Text: "Late", Start: 590},
		{Text: "Past", Start: 610},
	}

	filters := AttributionFilters(captions, 1920, 1080, 600, 30)
	joined := strings.Join(filters, "\n")

	assert.Contains(t, joined, "enable='between(t,0.000,30.000)'")
	// Only 10s of video remain after 590
	assert.Contains(t, joined, "enable='between(t,590.000,600.000)'")
	assert.NotContains(t, joined, "Past", "captions past the video end must be dropped")
}

func TestAttributionFiltersWrapLongText(t *testing.T) {
	long := strings.Repeat("word ", 20)
	filters := AttributionFilters([]Caption{{Text: long, Start: 0}}, 1920, 1080, 600, 30)
	require.Greater(t, len(filters), 1, "long attribution should wrap onto multiple lines")

	for _, f := range filters {
		assert.Contains(t, f, "x=w-text_w-40")
	}
}

func TestAttributionFiltersEscapeText(t *testing.T) {
	filters := AttributionFilters([]Caption{{Text: "Artist: Song 100%", Start: 0}}, 1920, 1080, 600, 30)
	require.Len(t, filters, 1)
	assert.Contains(t, filters[0], `Artist\:`)
	assert.Contains(t, filters[0], `100\%`)
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 9)
	assert.Equal(t, []string{"one two", "three", "four"}, lines)

	assert.Nil(t, wrapText("   ", 10))
	assert.Equal(t, []string{"supercalifragilistic"}, wrapText("supercalifragilistic", 5))
}
