package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatClock renders whole seconds as MM:SS for on-screen countdowns
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// ClampFrameRate clamps fps into [min, max] and rounds to two decimals.
// Used to derive a writable project frame rate from probed media.
func ClampFrameRate(fps, min, max float64) float64 {
	clamped := math.Max(min, math.Min(max, fps))
	return math.Round(clamped*100) / 100
}
