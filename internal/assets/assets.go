// Package assets resolves images, music tracks and append videos to locally
// readable paths, independent of whether they came from a directory scan or a
// remote store. The numeric-prefix ordering invariant lives here so every
// source produces the same deterministic slideshow order.
package assets

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/pkg/util"
)

// Default extension allow-lists.
var (
	ImageExtensions    = []string{".jpg", ".jpeg", ".png"}
	AudioExtensions    = []string{".mp3"}
	MetadataExtensions = []string{".md", ".txt"}
)

// Source resolves files matching filters from a named location to local
// paths. Remote-backed sources download into a fresh temp directory and
// return it; the caller owns its cleanup. Local sources return an empty
// temp dir.
type Source interface {
	ListFiles(ctx context.Context, location string, extensions []string) (paths []string, tempDir string, err error)
	FetchFile(ctx context.Context, location string) (path string, tempDir string, err error)
}

// MusicTrack is an audio file optionally paired with attribution metadata
// read from a same-basename companion file.
type MusicTrack struct {
	Path     string
	Metadata string
}

// Loader wraps a Source with sorting, pairing and logging.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates an asset loader
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "assets").Logger(),
	}
}

// ListImages resolves the ordered image sequence from a source location.
// The result is sorted numeric-prefix-first regardless of source. An empty
// result is returned as an empty slice; the pipeline decides whether that
// is fatal.
func (l *Loader) ListImages(ctx context.Context, src Source, location string) ([]string, string, error) {
	paths, tempDir, err := src.ListFiles(ctx, location, ImageExtensions)
	if err != nil {
		return nil, tempDir, err
	}

	SortNumericPrefix(paths)

	l.logger.Info().
		Str("location", location).
		Int("images", len(paths)).
		Msg("resolved image sequence")
	return paths, tempDir, nil
}

// LoadMusicLibrary resolves the music pool from a source location, pairing
// each audio file with the contents of a same-basename metadata file when
// one exists. Unreadable metadata degrades to an un-attributed track.
func (l *Loader) LoadMusicLibrary(ctx context.Context, src Source, location string) ([]MusicTrack, string, error) {
	extensions := append(append([]string{}, AudioExtensions...), MetadataExtensions...)
	paths, tempDir, err := src.ListFiles(ctx, location, extensions)
	if err != nil {
		return nil, tempDir, err
	}

	var audio, metadata []string
	for _, p := range paths {
		if hasExtension(p, AudioExtensions) {
			audio = append(audio, p)
		} else {
			metadata = append(metadata, p)
		}
	}

	tracks := make([]MusicTrack, 0, len(audio))
	for _, a := range audio {
		track := MusicTrack{Path: a}
		if md := matchMetadata(a, metadata); md != "" {
			data, err := os.ReadFile(md)
			if err != nil {
				l.logger.Warn().Err(err).Str("file", md).Msg("could not read metadata file")
			} else {
				track.Metadata = strings.TrimSpace(string(data))
			}
		}
		tracks = append(tracks, track)
	}

	l.logger.Info().
		Str("location", location).
		Int("tracks", len(tracks)).
		Msg("resolved music library")
	return tracks, tempDir, nil
}

// FetchAppendVideo resolves the optional append video to a local path.
func (l *Loader) FetchAppendVideo(ctx context.Context, src Source, location string) (string, string, error) {
	path, tempDir, err := src.FetchFile(ctx, location)
	if err != nil {
		return "", tempDir, err
	}
	l.logger.Info().Str("location", location).Str("path", path).Msg("resolved append video")
	return path, tempDir, nil
}

var numericPrefix = regexp.MustCompile(`^(\d+)`)

// SortNumericPrefix orders paths so that basenames starting with digits sort
// first by numeric value, followed by the rest alphabetically:
// ["10.jpg", "2.jpg", "a.jpg", "1.jpg"] -> ["1.jpg", "2.jpg", "10.jpg", "a.jpg"]
func SortNumericPrefix(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		gi, di, si := sortKey(paths[i])
		gj, dj, sj := sortKey(paths[j])
		if gi != gj {
			return gi < gj
		}
		if gi == 0 && di != dj {
			return lessNumeric(di, dj)
		}
		return si < sj
	})
}

func sortKey(path string) (group int, digits, name string) {
	name = filepath.Base(path)
	if m := numericPrefix.FindString(name); m != "" {
		return 0, strings.TrimLeft(m, "0"), name
	}
	return 1, "", name
}

// lessNumeric compares two digit strings by numeric value without a size
// limit: leading zeros are already stripped, so a shorter run is smaller and
// equal lengths compare lexicographically.
func lessNumeric(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// matchMetadata finds a metadata file sharing the audio file's basename
func matchMetadata(audioPath string, metadata []string) string {
	base := util.BaseNoExt(audioPath)
	dir := filepath.Dir(audioPath)
	for _, md := range metadata {
		if filepath.Dir(md) == dir && util.BaseNoExt(md) == base {
			return md
		}
	}
	return ""
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
