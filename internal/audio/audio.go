// Package audio assembles the soundtrack for a composition: it picks music
// from the library until the target duration is covered, concatenates the
// picks, and mixes them over a silent canvas so the track always comes out
// at exactly the target length.
package audio

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/assets"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
)

// poolMargin is how far past the target the playlist accumulates. The canvas
// trims the overshoot, so running slightly long is free while running short
// would leave dead air before the trailing silence.
const poolMargin = 30.0

// Attribution records which track became audible at which offset into the
// final video. Only tracks that start before the video ends are recorded.
type Attribution struct {
	Text   string
	Offset float64
}

// Result is the composed soundtrack.
type Result struct {
	Path         string
	Attributions []Attribution
}

// Composer builds the soundtrack for one composition run.
type Composer struct {
	logger          zerolog.Logger
	exec            *ffmpeg.Executor
	rng             *rand.Rand
	fadeSeconds     float64
	trailingSilence float64
}

// NewComposer creates an audio composer. fadeSeconds is the length of the
// fade-out; trailingSilence is how much silence precedes the end of the
// video.
func NewComposer(logger zerolog.Logger, exec *ffmpeg.Executor, fadeSeconds, trailingSilence float64) *Composer {
	return &Composer{
		logger:          logger.With().Str("component", "audio").Logger(),
		exec:            exec,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		fadeSeconds:     fadeSeconds,
		trailingSilence: trailingSilence,
	}
}

// Compose builds a soundtrack of exactly targetDuration seconds from the
// music library, writing intermediates into workDir. An empty library (or
// one where nothing is playable) yields a nil result and no error; the
// caller exports without audio in that case.
func (c *Composer) Compose(ctx context.Context, tracks []assets.MusicTrack, targetDuration float64, workDir string) (*Result, error) {
	if len(tracks) == 0 {
		c.logger.Info().Msg("music library is empty, composing without soundtrack")
		return nil, nil
	}

	pool := c.probePool(ctx, tracks)
	if len(pool) == 0 {
		c.logger.Warn().Msg("no playable tracks in music library, composing without soundtrack")
		return nil, nil
	}

	playlist, attributions := buildPlaylist(c.rng, pool, targetDuration)

	inputs := make([]string, len(playlist))
	for i, p := range playlist {
		inputs[i] = p.track.Path
	}

	concatPath := filepath.Join(workDir, "music_concat.m4a")
	if err := c.exec.ConcatAudio(ctx, inputs, concatPath); err != nil {
		return nil, fmt.Errorf("concatenate music: %w", err)
	}

	audioEnd := targetDuration - c.trailingSilence
	if audioEnd < 0 {
		audioEnd = 0
	}

	canvasPath := filepath.Join(workDir, "soundtrack.m4a")
	opts := ffmpeg.AudioCanvasOptions{
		Music:          concatPath,
		TargetDuration: targetDuration,
		AudioEnd:       audioEnd,
		FadeSeconds:    c.fadeSeconds,
		Output:         canvasPath,
	}
	if err := c.exec.ComposeAudioCanvas(ctx, opts); err != nil {
		c.logger.Warn().Err(err).Msg("fade-out mix failed, retrying without fade")
		opts.FadeSeconds = 0
		if err := c.exec.ComposeAudioCanvas(ctx, opts); err != nil {
			return nil, fmt.Errorf("compose audio canvas: %w", err)
		}
	}

	c.logger.Info().
		Int("tracks", len(playlist)).
		Int("attributions", len(attributions)).
		Float64("duration", targetDuration).
		Msg("composed soundtrack")
	return &Result{Path: canvasPath, Attributions: attributions}, nil
}

type pooledTrack struct {
	track    assets.MusicTrack
	duration float64
}

// probePool measures each library track once. Tracks that cannot be probed
// or report a non-positive duration are dropped from the pool.
func (c *Composer) probePool(ctx context.Context, tracks []assets.MusicTrack) []pooledTrack {
	pool := make([]pooledTrack, 0, len(tracks))
	for _, t := range tracks {
		d, err := c.exec.ProbeDuration(ctx, t.Path)
		if err != nil || d <= 0 {
			c.logger.Warn().Err(err).Str("track", t.Path).Msg("dropping unplayable track")
			continue
		}
		pool = append(pool, pooledTrack{track: t, duration: d})
	}
	return pool
}

// buildPlaylist accumulates tracks until the running total covers the target
// plus margin. Each pass through the pool is a fresh shuffle, so no track
// repeats until every other track has played. Attributions are recorded for
// tracks that start before the target and carry metadata.
func buildPlaylist(rng *rand.Rand, pool []pooledTrack, targetDuration float64) ([]pooledTrack, []Attribution) {
	var playlist []pooledTrack
	var attributions []Attribution

	offset := 0.0
	needed := targetDuration + poolMargin
	for offset < needed {
		pass := make([]pooledTrack, len(pool))
		copy(pass, pool)
		rng.Shuffle(len(pass), func(i, j int) {
			pass[i], pass[j] = pass[j], pass[i]
		})

		for _, p := range pass {
			if offset >= needed {
				break
			}
			playlist = append(playlist, p)
			if offset < targetDuration && p.track.Metadata != "" {
				attributions = append(attributions, Attribution{
					Text:   p.track.Metadata,
					Offset: offset,
				})
			}
			offset += p.duration
		}
	}

	return playlist, attributions
}
