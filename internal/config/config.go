// Package config assembles the run configuration from four layers, resolved
// once at startup into an immutable value: persisted runtime overrides, then
// environment variables, then the yaml config file, then built-in defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Source names for asset retrieval.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Config holds all application configuration
type Config struct {
	// Slideshow settings
	Slideshow SlideshowConfig `yaml:"slideshow"`

	// Music settings
	Music MusicConfig `yaml:"music"`

	// Append video settings
	AppendVideo AppendVideoConfig `yaml:"append_video"`

	// Overlay settings
	Overlays OverlayConfig `yaml:"overlays"`

	// Output settings
	Output OutputConfig `yaml:"output"`

	// Remote store settings
	Remote RemoteConfig `yaml:"remote"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Notification settings
	Ntfy NtfyConfig `yaml:"ntfy"`

	// Scheduling settings
	Schedule ScheduleConfig `yaml:"schedule"`

	// Settings store location
	SettingsPath string `yaml:"settings_path" env:"SETTINGS_PATH"`
}

type SlideshowConfig struct {
	ImageDuration  int    `yaml:"image_duration" env:"IMAGE_DURATION" validate:"gt=0"`
	TargetDuration int    `yaml:"target_duration" env:"TARGET_VIDEO_DURATION" validate:"gt=0"`
	Width          int    `yaml:"width" env:"VIDEO_WIDTH" validate:"gt=0"`
	Height         int    `yaml:"height" env:"VIDEO_HEIGHT" validate:"gt=0"`
	ImageSource    string `yaml:"image_source" env:"IMAGE_SOURCE" validate:"oneof=local remote"`
	ImageFolder    string `yaml:"image_folder" env:"IMAGE_FOLDER"`
	RemotePath     string `yaml:"remote_path" env:"REMOTE_IMAGE_PATH"`
}

type MusicConfig struct {
	Source          string `yaml:"source" env:"MUSIC_SOURCE" validate:"oneof=local remote"`
	Folder          string `yaml:"folder" env:"MUSIC_FOLDER"`
	FadeSeconds     int    `yaml:"fade_seconds" env:"MUSIC_FADE_SECONDS" validate:"gte=0"`
	TrailingSilence int    `yaml:"trailing_silence" env:"MUSIC_TRAILING_SILENCE" validate:"gte=0"`
}

type AppendVideoConfig struct {
	Source string `yaml:"source" env:"APPEND_VIDEO_SOURCE" validate:"oneof=local remote"`
	Path   string `yaml:"path" env:"APPEND_VIDEO_PATH"`
}

type OverlayConfig struct {
	TimerEnabled        bool   `yaml:"timer_enabled" env:"ENABLE_TIMER"`
	TimerMinutes        int    `yaml:"timer_minutes" env:"TIMER_MINUTES" validate:"gte=0"`
	TimerPosition       string `yaml:"timer_position" env:"TIMER_POSITION" validate:"oneof=top-middle bottom-right"`
	AttributionsEnabled bool   `yaml:"attributions_enabled" env:"ENABLE_ATTRIBUTIONS"`
	AttributionSeconds  int    `yaml:"attribution_seconds" env:"ATTRIBUTION_SECONDS" validate:"gt=0"`
}

type OutputConfig struct {
	FilePath   string `yaml:"file_path" env:"OUTPUT_FILEPATH"`
	UploadPath string `yaml:"upload_path" env:"UPLOAD_REMOTE_PATH"`
}

type RemoteConfig struct {
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	Region          string `yaml:"region" env:"S3_REGION"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
}

type FFmpegConfig struct {
	Threads    int     `yaml:"threads" env:"FFMPEG_THREADS" validate:"gte=0"`
	Preset     string  `yaml:"preset" env:"FFMPEG_PRESET"`
	CRF        int     `yaml:"crf" env:"FFMPEG_CRF" validate:"gte=0,lte=51"`
	DefaultFPS float64 `yaml:"default_fps" env:"DEFAULT_FPS" validate:"gt=0"`
	MinFPS     float64 `yaml:"min_fps" env:"MIN_FPS" validate:"gt=0"`
	MaxFPS     float64 `yaml:"max_fps" env:"MAX_FPS" validate:"gt=0"`
}

type NtfyConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLE_NTFY"`
	URL     string `yaml:"url" env:"NTFY_URL"`
	Topic   string `yaml:"topic" env:"NTFY_TOPIC"`
	Token   string `yaml:"token" env:"NTFY_TOKEN"`
}

type ScheduleConfig struct {
	CronSchedule    string `yaml:"cron_schedule" env:"CRON_SCHEDULE"`
	EnableHeartbeat bool   `yaml:"enable_heartbeat" env:"ENABLE_HEARTBEAT"`
	HeartbeatFile   string `yaml:"heartbeat_file" env:"HEARTBEAT_FILE"`
}

// RemoteEnabled reports whether the remote store is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.Bucket != "" && c.Remote.Region != ""
}

// Load builds the configuration: defaults, then the yaml file (discovered if
// path is empty), then environment variables, then persisted overrides.
func Load(path string, overrides map[string]string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.applyOverrides(overrides); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Output.FilePath == "" && c.Output.UploadPath == "" {
		return fmt.Errorf("invalid configuration: output file_path or upload_path must be set")
	}
	if c.Output.UploadPath != "" && !c.RemoteEnabled() {
		return fmt.Errorf("invalid configuration: upload_path requires remote bucket and region")
	}
	if c.FFmpeg.MinFPS > c.FFmpeg.MaxFPS {
		return fmt.Errorf("invalid configuration: min_fps exceeds max_fps")
	}
	return nil
}

// Save writes the configuration to a yaml file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// OverridableKeys lists the settings the override store may carry, in
// display order.
func OverridableKeys() []string {
	return []string{
		"IMAGE_DURATION",
		"TARGET_VIDEO_DURATION",
		"IMAGE_SOURCE",
		"IMAGE_FOLDER",
		"REMOTE_IMAGE_PATH",
		"MUSIC_SOURCE",
		"MUSIC_FOLDER",
		"APPEND_VIDEO_SOURCE",
		"APPEND_VIDEO_PATH",
		"UPLOAD_REMOTE_PATH",
		"ENABLE_TIMER",
		"TIMER_MINUTES",
		"TIMER_POSITION",
		"ENABLE_ATTRIBUTIONS",
		"ENABLE_NTFY",
		"NTFY_TOPIC",
		"CRON_SCHEDULE",
		"ENABLE_HEARTBEAT",
	}
}

// applyOverrides layers persisted runtime overrides on top of the resolved
// configuration. Unknown keys are rejected so stale store entries surface.
func (c *Config) applyOverrides(overrides map[string]string) error {
	for key, value := range overrides {
		if err := c.applyOverride(key, value); err != nil {
			return fmt.Errorf("override %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) applyOverride(key, value string) error {
	switch key {
	case "IMAGE_DURATION":
		return setInt(&c.Slideshow.ImageDuration, value)
	case "TARGET_VIDEO_DURATION":
		return setInt(&c.Slideshow.TargetDuration, value)
	case "IMAGE_SOURCE":
		c.Slideshow.ImageSource = value
	case "IMAGE_FOLDER":
		c.Slideshow.ImageFolder = value
	case "REMOTE_IMAGE_PATH":
		c.Slideshow.RemotePath = value
	case "MUSIC_SOURCE":
		c.Music.Source = value
	case "MUSIC_FOLDER":
		c.Music.Folder = value
	case "APPEND_VIDEO_SOURCE":
		c.AppendVideo.Source = value
	case "APPEND_VIDEO_PATH":
		c.AppendVideo.Path = value
	case "UPLOAD_REMOTE_PATH":
		c.Output.UploadPath = value
	case "ENABLE_TIMER":
		return setBool(&c.Overlays.TimerEnabled, value)
	case "TIMER_MINUTES":
		return setInt(&c.Overlays.TimerMinutes, value)
	case "TIMER_POSITION":
		c.Overlays.TimerPosition = value
	case "ENABLE_ATTRIBUTIONS":
		return setBool(&c.Overlays.AttributionsEnabled, value)
	case "ENABLE_NTFY":
		return setBool(&c.Ntfy.Enabled, value)
	case "NTFY_TOPIC":
		c.Ntfy.Topic = value
	case "CRON_SCHEDULE":
		c.Schedule.CronSchedule = value
	case "ENABLE_HEARTBEAT":
		return setBool(&c.Schedule.EnableHeartbeat, value)
	default:
		return fmt.Errorf("not a configurable setting")
	}
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("expected integer, got %q", value)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("expected boolean, got %q", value)
	}
	*dst = b
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Slideshow: SlideshowConfig{
			ImageDuration:  10,
			TargetDuration: 600,
			Width:          1920,
			Height:         1080,
			ImageSource:    SourceLocal,
			ImageFolder:    "images/",
		},
		Music: MusicConfig{
			Source:          SourceLocal,
			FadeSeconds:     10,
			TrailingSilence: 5,
		},
		AppendVideo: AppendVideoConfig{
			Source: SourceLocal,
		},
		Overlays: OverlayConfig{
			TimerPosition:       "top-middle",
			AttributionsEnabled: true,
			AttributionSeconds:  30,
		},
		FFmpeg: FFmpegConfig{
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
			DefaultFPS: 5,
			MinFPS:     5,
			MaxFPS:     30,
		},
		Schedule: ScheduleConfig{
			CronSchedule:    "0 1 * * 5",
			EnableHeartbeat: true,
			HeartbeatFile:   "/tmp/heartbeat",
		},
		SettingsPath: "data/settings.yaml",
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".slideforge", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
