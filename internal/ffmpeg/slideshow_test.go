package ffmpeg

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWriteSlideshowScript(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}

	images := []string{"/tmp/1.jpg", "/tmp/2.jpg"}
	script, err := e.writeSlideshowScript(images, 10, 3)
	if err != nil {
		t.Fatalf("writeSlideshowScript failed: %v", err)
	}
	defer os.Remove(script)

	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("failed to read script: %v", err)
	}
	content := string(data)

	if got := strings.Count(content, "file '/tmp/1.jpg'"); got != 3 {
		t.Errorf("expected first image listed 3 times, got %d", got)
	}
	// Last image appears once per repeat plus the trailing sentinel line
	if got := strings.Count(content, "file '/tmp/2.jpg'"); got != 4 {
		t.Errorf("expected last image listed 4 times, got %d", got)
	}
	if got := strings.Count(content, "duration 10.000"); got != 6 {
		t.Errorf("expected 6 duration directives, got %d", got)
	}
	if !strings.HasSuffix(strings.TrimSpace(content), "file '/tmp/2.jpg'") {
		t.Error("script must end with a bare file line for the last still")
	}
}

func TestBuildSlideshowValidation(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	ctx := context.Background()

	cases := []struct {
		name string
		opts SlideshowOptions
	}{
		{"no images", SlideshowOptions{ImageDuration: 10, TargetDuration: 60, Output: "out.mp4"}},
		{"zero image duration", SlideshowOptions{Images: []string{"a.jpg"}, TargetDuration: 60, Output: "out.mp4"}},
		{"zero target", SlideshowOptions{Images: []string{"a.jpg"}, ImageDuration: 10, Output: "out.mp4"}},
		{"no output", SlideshowOptions{Images: []string{"a.jpg"}, ImageDuration: 10, TargetDuration: 60}},
	}
	for _, c := range cases {
		if err := e.BuildSlideshow(ctx, c.opts); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}
