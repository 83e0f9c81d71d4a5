package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	if filepath.Ext(path) == ".png" {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, jpeg.Encode(f, img, nil))
	}
}

func TestStandardizeAllResizesToFrame(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	writeTestImage(t, filepath.Join(srcDir, "wide.jpg"), 200, 50)
	writeTestImage(t, filepath.Join(srcDir, "tall.png"), 40, 300)

	s := NewStandardizer(zerolog.Nop(), 160, 90)
	out, err := s.StandardizeAll([]string{
		filepath.Join(srcDir, "wide.jpg"),
		filepath.Join(srcDir, "tall.png"),
	}, outDir)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, p := range out {
		f, err := os.Open(p)
		require.NoError(t, err)
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 160, cfg.Width)
		assert.Equal(t, 90, cfg.Height)
	}
}

func TestStandardizeAllPreservesOrder(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	var paths []string
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
		p := filepath.Join(srcDir, name)
		writeTestImage(t, p, 30, 30)
		paths = append(paths, p)
	}

	s := NewStandardizer(zerolog.Nop(), 64, 64)
	out, err := s.StandardizeAll(paths, outDir)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "0000.jpg", filepath.Base(out[0]))
	assert.Equal(t, "0001.jpg", filepath.Base(out[1]))
	assert.Equal(t, "0002.jpg", filepath.Base(out[2]))
}

func TestStandardizeAllSkipsBadImages(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	good := filepath.Join(srcDir, "good.jpg")
	writeTestImage(t, good, 30, 30)
	bad := filepath.Join(srcDir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

	s := NewStandardizer(zerolog.Nop(), 64, 64)
	out, err := s.StandardizeAll([]string{bad, good}, outDir)
	require.NoError(t, err)
	assert.Len(t, out, 1, "corrupt image should be skipped, not fatal")
}

func TestStandardizeAllFailsWhenNothingSurvives(t *testing.T) {
	srcDir := t.TempDir()
	bad := filepath.Join(srcDir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

	s := NewStandardizer(zerolog.Nop(), 64, 64)
	_, err := s.StandardizeAll([]string{bad}, t.TempDir())
	require.Error(t, err)
}

func TestStandardizeAllEmptyInput(t *testing.T) {
	s := NewStandardizer(zerolog.Nop(), 64, 64)
	_, err := s.StandardizeAll(nil, t.TempDir())
	require.Error(t, err)
}
