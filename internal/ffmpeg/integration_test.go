package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), 0)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

func writeStill(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create still: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("failed to encode still: %v", err)
	}
}

func renderTone(t *testing.T, e *Executor, path string, seconds float64) {
	t.Helper()
	err := e.Run(context.Background(), RunOptions{
		Args: []string{
			"-f", "lavfi",
			"-t", fmt.Sprintf("%.3f", seconds),
			"-i", fmt.Sprintf("sine=frequency=440:sample_rate=%d", AudioSampleRate),
			path,
		},
	})
	if err != nil {
		t.Fatalf("failed to render tone: %v", err)
	}
}

// measureMaxVolume runs volumedetect over a window of the file and returns
// the reported peak in dB.
func measureMaxVolume(t *testing.T, e *Executor, path string, start, length float64) float64 {
	t.Helper()

	maxVolume := 0.0
	found := false
	err := e.Run(context.Background(), RunOptions{
		Args: []string{
			"-ss", fmt.Sprintf("%.3f", start),
			"-t", fmt.Sprintf("%.3f", length),
			"-i", path,
			"-af", "volumedetect",
			"-f", "null", "-",
		},
		LogHandler: func(line string) {
			idx := strings.Index(line, "max_volume:")
			if idx < 0 {
				return
			}
			field := strings.TrimSpace(strings.TrimSuffix(line[idx+len("max_volume:"):], "dB"))
			field = strings.TrimSpace(strings.TrimSuffix(field, " dB"))
			if v, err := strconv.ParseFloat(strings.Fields(field)[0], 64); err == nil {
				maxVolume = v
				found = true
			}
		},
	})
	if err != nil {
		t.Fatalf("volumedetect failed: %v", err)
	}
	if !found {
		t.Fatal("volumedetect produced no max_volume line")
	}
	return maxVolume
}

func TestBuildSlideshowDurationMatchesTarget(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()

	stills := []string{filepath.Join(dir, "1.jpg"), filepath.Join(dir, "2.jpg")}
	writeStill(t, stills[0], color.RGBA{R: 200, A: 255})
	writeStill(t, stills[1], color.RGBA{B: 200, A: 255})

	// A 4s sequence truncated to a 3s target
	output := filepath.Join(dir, "slideshow.mp4")
	err := e.BuildSlideshow(context.Background(), SlideshowOptions{
		Images:         stills,
		ImageDuration:  2,
		TargetDuration: 3,
		Repeats:        1,
		FPS:            5,
		Width:          64,
		Height:         64,
		Output:         output,
		Encoding:       Encoding{Preset: "ultrafast"},
	})
	if err != nil {
		t.Fatalf("BuildSlideshow failed: %v", err)
	}

	dur, err := e.ProbeDuration(context.Background(), output)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	// Duration must match the target within one frame interval (1/fps)
	if diff := dur - 3; diff < -0.21 || diff > 0.21 {
		t.Errorf("slideshow duration %.3fs, want 3s within 0.2s", dur)
	}
}

func TestComposeAudioCanvasExactDuration(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()

	tone := filepath.Join(dir, "tone.wav")
	renderTone(t, e, tone, 10)

	// 8s target with music stopping at 3s: the last 5s stay silent
	output := filepath.Join(dir, "canvas.m4a")
	err := e.ComposeAudioCanvas(context.Background(), AudioCanvasOptions{
		Music:          tone,
		TargetDuration: 8,
		AudioEnd:       3,
		FadeSeconds:    2,
		Output:         output,
	})
	if err != nil {
		t.Fatalf("ComposeAudioCanvas failed: %v", err)
	}

	dur, err := e.ProbeDuration(context.Background(), output)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if diff := dur - 8; diff < -0.1 || diff > 0.1 {
		t.Errorf("canvas duration %.3fs, want 8s exactly", dur)
	}

	// The window before the cutoff carries the tone, the tail is silence
	if v := measureMaxVolume(t, e, output, 0.5, 1.5); v < -40 {
		t.Errorf("expected audible music before the cutoff, peak %.1f dB", v)
	}
	if v := measureMaxVolume(t, e, output, 3.2, 4.5); v > -50 {
		t.Errorf("expected silence after the cutoff, peak %.1f dB", v)
	}
}

func TestExportMuxesAudioAndVideo(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()

	still := filepath.Join(dir, "1.jpg")
	writeStill(t, still, color.RGBA{G: 200, A: 255})

	video := filepath.Join(dir, "video.mp4")
	err := e.BuildSlideshow(context.Background(), SlideshowOptions{
		Images:         []string{still},
		ImageDuration:  2,
		TargetDuration: 2,
		Repeats:        1,
		FPS:            5,
		Width:          64,
		Height:         64,
		Output:         video,
		Encoding:       Encoding{Preset: "ultrafast"},
	})
	if err != nil {
		t.Fatalf("BuildSlideshow failed: %v", err)
	}

	sound := filepath.Join(dir, "sound.m4a")
	if err := e.RenderSilence(context.Background(), 2, sound); err != nil {
		t.Fatalf("RenderSilence failed: %v", err)
	}

	output := filepath.Join(dir, "final.mp4")
	err = e.Export(context.Background(), ExportOptions{
		Video:    video,
		Audio:    sound,
		Output:   output,
		FPS:      5,
		Duration: 2,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	info, err := e.ProbeMedia(context.Background(), output)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("export must carry both streams, got video=%v audio=%v", info.HasVideo, info.HasAudio)
	}
	if diff := info.Duration.Seconds() - 2; diff < -0.25 || diff > 0.25 {
		t.Errorf("export duration %.3fs, want 2s", info.Duration.Seconds())
	}
}
