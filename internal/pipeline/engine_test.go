package pipeline

import (
	"context"
	"os/exec"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/slideforge/internal/audio"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func TestComposeAudioSilentFallback(t *testing.T) {
	skipIfNoFFmpeg(t)

	exe, err := ffmpeg.New(zerolog.Nop(), 0)
	require.NoError(t, err)

	e := &Engine{
		logger:   zerolog.Nop(),
		exec:     exe,
		composer: audio.NewComposer(zerolog.Nop(), exe, 10, 5),
	}

	plan := &Plan{SlideshowDuration: 2}
	path, attributions, err := e.composeAudio(context.Background(), plan, nil, t.TempDir())
	require.NoError(t, err)

	// Empty music library without an append video still yields a track
	require.NotEmpty(t, path, "output must carry an audio stream")
	assert.Empty(t, attributions)

	dur, err := exe.ProbeDuration(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, dur, 0.25)
}
