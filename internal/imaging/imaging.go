// Package imaging normalizes source images to the output frame size before
// they reach the encoder. Every still is decoded and rescaled to exactly the
// target dimensions, so the concat stage never has to reason about mixed
// resolutions or aspect ratios.
package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const jpegQuality = 90

// Standardizer rescales images to a fixed frame size.
type Standardizer struct {
	logger  zerolog.Logger
	width   int
	height  int
	workers int
}

// NewStandardizer creates a standardizer targeting the given frame size.
func NewStandardizer(logger zerolog.Logger, width, height int) *Standardizer {
	return &Standardizer{
		logger:  logger.With().Str("component", "imaging").Logger(),
		width:   width,
		height:  height,
		workers: runtime.NumCPU(),
	}
}

// StandardizeAll rescales every image into outDir and returns the resulting
// paths in the same order as the input. Images that cannot be decoded are
// logged and skipped rather than failing the whole run; an error is returned
// only when no image survives.
func (s *Standardizer) StandardizeAll(paths []string, outDir string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images to standardize")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	results := make([]string, len(paths))
	var mu sync.Mutex
	skipped := 0

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			out := filepath.Join(outDir, fmt.Sprintf("%04d.jpg", i))
			if err := s.standardize(p, out); err != nil {
				s.logger.Warn().Err(err).Str("image", p).Msg("skipping unreadable image")
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Compact out the skipped slots, preserving order
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("all %d images failed to decode", len(paths))
	}

	s.logger.Info().
		Int("images", len(out)).
		Int("skipped", skipped).
		Int("width", s.width).
		Int("height", s.height).
		Msg("standardized image sequence")
	return out, nil
}

// standardize decodes one image and writes it rescaled to the target frame.
// The resize is a direct stretch to the frame, not aspect-preserving.
func (s *Standardizer) standardize(inPath, outPath string) error {
	src, err := decode(inPath)
	if err != nil {
		return err
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode %s: %w", outPath, err)
	}
	return nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(f)
	default:
		img, err = jpeg.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
