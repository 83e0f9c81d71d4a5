package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, 10, cfg.Slideshow.ImageDuration)
	assert.Equal(t, 600, cfg.Slideshow.TargetDuration)
	assert.Equal(t, 1920, cfg.Slideshow.Width)
	assert.Equal(t, 1080, cfg.Slideshow.Height)
	assert.Equal(t, 10, cfg.Music.FadeSeconds)
	assert.Equal(t, 5, cfg.Music.TrailingSilence)
	assert.Equal(t, 5.0, cfg.FFmpeg.DefaultFPS)
	assert.Equal(t, "top-middle", cfg.Overlays.TimerPosition)
	assert.Equal(t, "0 1 * * 5", cfg.Schedule.CronSchedule)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := defaultConfig()
	cfg.Slideshow.ImageDuration = 7
	cfg.Output.FilePath = "out/slideshow.mp4"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Slideshow.ImageDuration)
	assert.Equal(t, "out/slideshow.mp4", loaded.Output.FilePath)
}

func TestEnvLayerOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := defaultConfig()
	cfg.Slideshow.ImageDuration = 7
	cfg.Output.FilePath = "out/slideshow.mp4"
	require.NoError(t, cfg.Save(path))

	t.Setenv("IMAGE_DURATION", "12")

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Slideshow.ImageDuration)
}

func TestOverridesWinOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := defaultConfig()
	cfg.Output.FilePath = "out/slideshow.mp4"
	require.NoError(t, cfg.Save(path))

	t.Setenv("IMAGE_DURATION", "12")

	loaded, err := Load(path, map[string]string{"IMAGE_DURATION": "20"})
	require.NoError(t, err)
	assert.Equal(t, 20, loaded.Slideshow.ImageDuration)
}

func TestOverrideRejectsUnknownKey(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.applyOverrides(map[string]string{"BOGUS_KEY": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOGUS_KEY")
}

func TestOverrideRejectsBadValue(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.applyOverrides(map[string]string{"IMAGE_DURATION": "soon"})
	require.Error(t, err)
}

func TestValidateRequiresOutput(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err, "neither file_path nor upload_path set")

	cfg.Output.FilePath = "out.mp4"
	require.NoError(t, cfg.Validate())
}

func TestValidateUploadRequiresRemote(t *testing.T) {
	cfg := defaultConfig()
	cfg.Output.UploadPath = "Videos/slideshow.mp4"
	require.Error(t, cfg.Validate())

	cfg.Remote.Bucket = "media"
	cfg.Remote.Region = "eu-central-1"
	require.NoError(t, cfg.Validate())
}

func TestOverridableKeysAllApply(t *testing.T) {
	cfg := defaultConfig()
	values := map[string]string{
		"IMAGE_DURATION":        "5",
		"TARGET_VIDEO_DURATION": "300",
		"IMAGE_SOURCE":          "remote",
		"IMAGE_FOLDER":          "pics/",
		"REMOTE_IMAGE_PATH":     "Photos/Slideshow",
		"MUSIC_SOURCE":          "remote",
		"MUSIC_FOLDER":          "music/",
		"APPEND_VIDEO_SOURCE":   "remote",
		"APPEND_VIDEO_PATH":     "Videos/outro.mp4",
		"UPLOAD_REMOTE_PATH":    "Videos/slideshow.mp4",
		"ENABLE_TIMER":          "true",
		"TIMER_MINUTES":         "5",
		"TIMER_POSITION":        "bottom-right",
		"ENABLE_ATTRIBUTIONS":   "false",
		"ENABLE_NTFY":           "false",
		"NTFY_TOPIC":            "slideshow",
		"CRON_SCHEDULE":         "0 2 * * 1",
		"ENABLE_HEARTBEAT":      "false",
	}
	for _, key := range OverridableKeys() {
		v, ok := values[key]
		require.True(t, ok, "test value missing for %s", key)
		require.NoError(t, cfg.applyOverride(key, v), "override %s", key)
	}
}
