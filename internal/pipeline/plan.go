// Package pipeline orchestrates a full composition run: resolve assets,
// derive the composition plan, encode the timeline, compose the soundtrack,
// burn overlays and export. The plan is computed up front so every stage
// agrees on geometry, frame rate and durations.
package pipeline

import (
	"errors"
	"math"

	"github.com/kikiluvv/slideforge/internal/config"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// Sentinel errors callers can match on.
var (
	// ErrNoAssetsFound means the image source yielded nothing to compose.
	ErrNoAssetsFound = errors.New("no images found to compose")
	// ErrNoVideoContent means the plan resolves to an empty timeline.
	ErrNoVideoContent = errors.New("plan contains no video content")
	// ErrRunInProgress means another composition run is already executing.
	ErrRunInProgress = errors.New("a composition run is already in progress")
)

// Plan is the resolved shape of one composition run. All durations are in
// seconds.
type Plan struct {
	Images        []string
	ImageDuration float64
	Width         int
	Height        int
	FPS           float64

	// TargetDuration is the length of the final video. SlideshowDuration
	// is the portion filled by stills; the remainder belongs to the
	// append video.
	TargetDuration    float64
	SlideshowDuration float64
	Repeats           int

	AppendVideo    string
	AppendDuration float64
	AppendHasAudio bool
}

// TotalDuration is the actual length of the composed video. It matches
// TargetDuration unless the append video alone runs longer.
func (p *Plan) TotalDuration() float64 {
	return p.SlideshowDuration + p.AppendDuration
}

// BuildPlan derives the composition plan from the configuration, the
// resolved image sequence and the probed append video (nil when none is
// configured).
//
// The frame rate follows the append video, clamped to the configured range,
// so the slideshow and the appended footage concatenate without a re-encode.
// Without an append video the default frame rate applies; stills do not
// benefit from more.
func BuildPlan(cfg *config.Config, images []string, appendPath string, appendInfo *ffmpeg.MediaInfo) (*Plan, error) {
	if len(images) == 0 {
		return nil, ErrNoAssetsFound
	}

	p := &Plan{
		Images:         images,
		ImageDuration:  float64(cfg.Slideshow.ImageDuration),
		Width:          cfg.Slideshow.Width,
		Height:         cfg.Slideshow.Height,
		FPS:            cfg.FFmpeg.DefaultFPS,
		TargetDuration: float64(cfg.Slideshow.TargetDuration),
	}

	if appendInfo != nil {
		p.AppendVideo = appendPath
		p.AppendDuration = appendInfo.Duration.Seconds()
		p.AppendHasAudio = appendInfo.HasAudio
		if appendInfo.FPS > 0 {
			p.FPS = util.ClampFrameRate(appendInfo.FPS, cfg.FFmpeg.MinFPS, cfg.FFmpeg.MaxFPS)
		}
	}

	p.SlideshowDuration = p.TargetDuration - p.AppendDuration
	if p.SlideshowDuration < 0 {
		p.SlideshowDuration = 0
	}
	if p.SlideshowDuration == 0 && p.AppendVideo == "" {
		return nil, ErrNoVideoContent
	}

	sequence := float64(len(p.Images)) * p.ImageDuration
	p.Repeats = int(math.Ceil(p.SlideshowDuration / sequence))
	if p.Repeats < 1 {
		p.Repeats = 1
	}

	return p, nil
}
