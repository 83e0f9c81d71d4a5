package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/assets"
	"github.com/kikiluvv/slideforge/internal/audio"
	"github.com/kikiluvv/slideforge/internal/config"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
	"github.com/kikiluvv/slideforge/internal/health"
	"github.com/kikiluvv/slideforge/internal/imaging"
	"github.com/kikiluvv/slideforge/internal/notify"
	"github.com/kikiluvv/slideforge/internal/overlay"
	"github.com/kikiluvv/slideforge/internal/storage"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// Engine runs the composition pipeline end to end.
type Engine struct {
	logger       zerolog.Logger
	cfg          *config.Config
	exec         *ffmpeg.Executor
	loader       *assets.Loader
	standardizer *imaging.Standardizer
	composer     *audio.Composer
	remote       *storage.S3Store
	health       *health.Tracker
	notify       notify.Sink
}

// New wires up an engine from the resolved configuration.
func New(logger zerolog.Logger, cfg *config.Config, tracker *health.Tracker, sink notify.Sink) (*Engine, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("initialize ffmpeg: %w", err)
	}

	var remote *storage.S3Store
	if cfg.RemoteEnabled() {
		remote, err = storage.NewS3Store(logger, storage.Config{
			Bucket:          cfg.Remote.Bucket,
			Region:          cfg.Remote.Region,
			Endpoint:        cfg.Remote.Endpoint,
			AccessKeyID:     cfg.Remote.AccessKeyID,
			SecretAccessKey: cfg.Remote.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize remote store: %w", err)
		}
	}

	if sink == nil {
		sink = notify.Nop{}
	}

	return &Engine{
		logger:       logger.With().Str("component", "pipeline").Logger(),
		cfg:          cfg,
		exec:         exec,
		loader:       assets.NewLoader(logger),
		standardizer: imaging.NewStandardizer(logger, cfg.Slideshow.Width, cfg.Slideshow.Height),
		composer: audio.NewComposer(logger, exec,
			float64(cfg.Music.FadeSeconds), float64(cfg.Music.TrailingSilence)),
		remote: remote,
		health: tracker,
		notify: sink,
	}, nil
}

// Run executes one composition. Concurrent calls are refused with
// ErrRunInProgress; the scheduler and any manual trigger share this guard.
func (e *Engine) Run(ctx context.Context) error {
	if !e.health.BeginRun() {
		return ErrRunInProgress
	}
	defer e.health.EndRun()

	err := e.run(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("composition run failed")
		e.sendNotification(ctx, notify.Message{
			Title:    "Composition failed",
			Body:     err.Error(),
			Priority: "high",
			Tags:     []string{"x"},
		})
		return err
	}

	e.health.MarkSuccess()
	e.sendNotification(ctx, notify.Message{
		Title: "Composition complete",
		Body: fmt.Sprintf("%s video exported",
			util.FormatClock(e.cfg.Slideshow.TargetDuration)),
		Tags: []string{"white_check_mark"},
	})
	return nil
}

func (e *Engine) run(ctx context.Context) (err error) {
	workDir, err := os.MkdirTemp("", "slideforge-run-")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	tempDirs := []string{workDir}
	defer func() { util.CleanupDirs(tempDirs...) }()

	// Stage 1: resolve assets
	e.health.SetStage("resolving assets")

	imageSrc, imageLoc, err := e.sourceFor(e.cfg.Slideshow.ImageSource, e.imageLocation())
	if err != nil {
		return err
	}
	images, dir, err := e.loader.ListImages(ctx, imageSrc, imageLoc)
	tempDirs = appendDir(tempDirs, dir)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	if len(images) == 0 {
		return ErrNoAssetsFound
	}

	var tracks []assets.MusicTrack
	if e.cfg.Music.Folder != "" {
		musicSrc, musicLoc, err := e.sourceFor(e.cfg.Music.Source, e.cfg.Music.Folder)
		if err != nil {
			return err
		}
		tracks, dir, err = e.loader.LoadMusicLibrary(ctx, musicSrc, musicLoc)
		tempDirs = appendDir(tempDirs, dir)
		if err != nil {
			return fmt.Errorf("load music library: %w", err)
		}
	}

	// A broken append video degrades to a stills-only run; the outro is an
	// accessory, not the product.
	var appendPath string
	var appendInfo *ffmpeg.MediaInfo
	if e.cfg.AppendVideo.Path != "" {
		appendSrc, appendLoc, err := e.sourceFor(e.cfg.AppendVideo.Source, e.cfg.AppendVideo.Path)
		if err != nil {
			return err
		}
		appendPath, dir, err = e.loader.FetchAppendVideo(ctx, appendSrc, appendLoc)
		tempDirs = appendDir(tempDirs, dir)
		if err != nil {
			e.logger.Warn().Err(err).Msg("append video unavailable, continuing without it")
			appendPath = ""
		} else if appendInfo, err = e.exec.ProbeMedia(ctx, appendPath); err != nil {
			e.logger.Warn().Err(err).Msg("append video unreadable, continuing without it")
			appendPath = ""
			appendInfo = nil
		}
	}

	// Stage 2: derive the plan
	plan, err := BuildPlan(e.cfg, images, appendPath, appendInfo)
	if err != nil {
		return err
	}
	e.logger.Info().
		Int("images", len(plan.Images)).
		Int("repeats", plan.Repeats).
		Float64("fps", plan.FPS).
		Float64("slideshow_duration", plan.SlideshowDuration).
		Float64("append_duration", plan.AppendDuration).
		Msg("composition plan resolved")

	// Stage 3: standardize stills
	e.health.SetStage("standardizing images")
	plan.Images, err = e.standardizer.StandardizeAll(plan.Images, filepath.Join(workDir, "frames"))
	if err != nil {
		return fmt.Errorf("standardize images: %w", err)
	}

	// Stage 4: encode the video timeline
	video, err := e.composeVideo(ctx, plan, workDir)
	if err != nil {
		return err
	}

	// Stage 5: soundtrack
	e.health.SetStage("composing soundtrack")
	soundtrack, attributions, err := e.composeAudio(ctx, plan, tracks, workDir)
	if err != nil {
		return err
	}

	// Stage 6: overlays
	video, err = e.burnOverlays(ctx, plan, video, attributions, workDir)
	if err != nil {
		return err
	}

	// Stage 7: export and deliver
	e.health.SetStage("exporting")
	output := e.cfg.Output.FilePath
	if output == "" {
		output = filepath.Join(workDir, "output.mp4")
	}
	exportOpts := ffmpeg.ExportOptions{
		Video:        video,
		Audio:        soundtrack,
		Output:       output,
		FPS:          plan.FPS,
		Duration:     plan.TotalDuration(),
		ProgressFunc: e.progressFunc("export"),
	}
	if err := e.exec.Export(ctx, exportOpts); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if e.cfg.Output.UploadPath != "" {
		e.health.SetStage("uploading")
		if e.remote == nil {
			return fmt.Errorf("upload requested but remote store is not configured")
		}
		if err := e.remote.Store(ctx, output, e.cfg.Output.UploadPath); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	e.logger.Info().Str("output", output).Msg("composition run complete")
	return nil
}

// composeVideo encodes the slideshow, conforms the append video and joins
// them into the silent timeline.
func (e *Engine) composeVideo(ctx context.Context, plan *Plan, workDir string) (string, error) {
	enc := e.encoding()

	var parts []string
	if plan.SlideshowDuration > 0 {
		e.health.SetStage("encoding slideshow")
		slideshow := filepath.Join(workDir, "slideshow.mp4")
		err := e.exec.BuildSlideshow(ctx, ffmpeg.SlideshowOptions{
			Images:         plan.Images,
			ImageDuration:  plan.ImageDuration,
			TargetDuration: plan.SlideshowDuration,
			Repeats:        plan.Repeats,
			FPS:            plan.FPS,
			Width:          plan.Width,
			Height:         plan.Height,
			Output:         slideshow,
			Encoding:       enc,
			ProgressFunc:   e.progressFunc("slideshow"),
		})
		if err != nil {
			return "", fmt.Errorf("build slideshow: %w", err)
		}
		parts = append(parts, slideshow)
	}

	if plan.AppendVideo != "" {
		e.health.SetStage("conforming append video")
		normalized := filepath.Join(workDir, "append.mp4")
		err := e.exec.NormalizeVideo(ctx, ffmpeg.NormalizeOptions{
			Input:        plan.AppendVideo,
			Output:       normalized,
			Width:        plan.Width,
			Height:       plan.Height,
			FPS:          plan.FPS,
			Duration:     plan.AppendDuration,
			Encoding:     enc,
			ProgressFunc: e.progressFunc("normalize"),
		})
		if err != nil {
			return "", fmt.Errorf("normalize append video: %w", err)
		}
		parts = append(parts, normalized)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}

	e.health.SetStage("joining timeline")
	joined := filepath.Join(workDir, "timeline.mp4")
	// Both parts were just encoded with the same codec, geometry and frame
	// rate, so a stream copy concat is safe.
	err := e.exec.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:       parts,
		Output:       joined,
		ProgressFunc: e.progressFunc("concat"),
	})
	if err != nil {
		return "", fmt.Errorf("join timeline: %w", err)
	}
	return joined, nil
}

// composeAudio builds the final audio track: music over the slideshow
// portion, then the append video's own audio (or silence) for the rest. An
// empty string means the export carries no audio stream.
func (e *Engine) composeAudio(ctx context.Context, plan *Plan, tracks []assets.MusicTrack, workDir string) (string, []audio.Attribution, error) {
	var music *audio.Result
	if plan.SlideshowDuration > 0 {
		var err error
		music, err = e.composer.Compose(ctx, tracks, plan.SlideshowDuration, workDir)
		if err != nil {
			return "", nil, fmt.Errorf("compose music: %w", err)
		}
	}

	var appendAudio string
	if plan.AppendVideo != "" {
		appendAudio = filepath.Join(workDir, "append_audio.m4a")
		if plan.AppendHasAudio {
			if err := e.exec.ExtractAudio(ctx, plan.AppendVideo, appendAudio); err != nil {
				return "", nil, fmt.Errorf("extract append audio: %w", err)
			}
		} else if err := e.exec.RenderSilence(ctx, plan.AppendDuration, appendAudio); err != nil {
			return "", nil, fmt.Errorf("render append silence: %w", err)
		}
	}

	var attributions []audio.Attribution
	var musicPath string
	if music != nil {
		musicPath = music.Path
		attributions = music.Attributions
	}

	switch {
	case musicPath == "" && appendAudio == "":
		// No music and no append audio: the output still carries a
		// full-length silent track so players get a real audio stream.
		silent := filepath.Join(workDir, "soundtrack.m4a")
		if err := e.exec.RenderSilence(ctx, plan.SlideshowDuration, silent); err != nil {
			return "", nil, fmt.Errorf("render silence: %w", err)
		}
		return silent, nil, nil
	case appendAudio == "":
		return musicPath, attributions, nil
	case musicPath == "":
		if plan.SlideshowDuration <= 0 {
			return appendAudio, nil, nil
		}
		// No music, but the append video brings audio: pad the slideshow
		// portion with silence so the append audio lands at its offset.
		musicPath = filepath.Join(workDir, "lead_silence.m4a")
		if err := e.exec.RenderSilence(ctx, plan.SlideshowDuration, musicPath); err != nil {
			return "", nil, fmt.Errorf("render lead silence: %w", err)
		}
	}

	combined := filepath.Join(workDir, "audio_full.m4a")
	if err := e.exec.ConcatAudio(ctx, []string{musicPath, appendAudio}, combined); err != nil {
		return "", nil, fmt.Errorf("join audio: %w", err)
	}
	return combined, attributions, nil
}

// burnOverlays applies the countdown timer and attribution captions. When
// neither produces filters the timeline passes through untouched.
func (e *Engine) burnOverlays(ctx context.Context, plan *Plan, video string, attributions []audio.Attribution, workDir string) (string, error) {
	var filters []string

	if e.cfg.Overlays.TimerEnabled {
		filters = append(filters, overlay.TimerFilters(overlay.TimerOptions{
			Minutes:       e.cfg.Overlays.TimerMinutes,
			VideoDuration: plan.TotalDuration(),
			Width:         plan.Width,
			Height:        plan.Height,
			Position:      e.cfg.Overlays.TimerPosition,
		})...)
	}

	if e.cfg.Overlays.AttributionsEnabled && len(attributions) > 0 {
		captions := make([]overlay.Caption, len(attributions))
		for i, a := range attributions {
			captions[i] = overlay.Caption{Text: a.Text, Start: a.Offset}
		}
		filters = append(filters, overlay.AttributionFilters(
			captions, plan.Width, plan.Height,
			plan.TotalDuration(), float64(e.cfg.Overlays.AttributionSeconds),
		)...)
	}

	if len(filters) == 0 {
		return video, nil
	}

	e.health.SetStage("burning overlays")
	burned := filepath.Join(workDir, "overlaid.mp4")
	err := e.exec.BurnFilters(ctx, video, burned, filters, e.encoding(), e.progressFunc("overlays"))
	if err != nil {
		return "", fmt.Errorf("burn overlays: %w", err)
	}
	return burned, nil
}

func (e *Engine) encoding() ffmpeg.Encoding {
	return ffmpeg.Encoding{
		CRF:    e.cfg.FFmpeg.CRF,
		Preset: e.cfg.FFmpeg.Preset,
	}
}

func (e *Engine) progressFunc(task string) ffmpeg.ProgressFunc {
	return func(p *ffmpeg.Progress) {
		e.health.SetTask(task, p.Percentage)
	}
}

// sourceFor maps a configured source kind to its backing store.
func (e *Engine) sourceFor(kind, location string) (assets.Source, string, error) {
	switch kind {
	case config.SourceRemote:
		if e.remote == nil {
			return nil, "", fmt.Errorf("source %q requires remote bucket and region", kind)
		}
		return e.remote, location, nil
	default:
		return assets.NewLocalSource(), location, nil
	}
}

func (e *Engine) imageLocation() string {
	if e.cfg.Slideshow.ImageSource == config.SourceRemote {
		return e.cfg.Slideshow.RemotePath
	}
	return e.cfg.Slideshow.ImageFolder
}

func (e *Engine) sendNotification(ctx context.Context, msg notify.Message) {
	if !e.cfg.Ntfy.Enabled {
		return
	}
	if err := e.notify.Send(ctx, msg); err != nil {
		e.logger.Warn().Err(err).Msg("notification delivery failed")
	}
}

func appendDir(dirs []string, dir string) []string {
	if dir == "" {
		return dirs
	}
	return append(dirs, dir)
}
