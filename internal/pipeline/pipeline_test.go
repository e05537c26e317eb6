package pipeline

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"produce-sorter/internal/logger"
	"produce-sorter/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestListImagesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.PNG"), "")
	writeFile(t, filepath.Join(dir, "a.jpg"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "c.jpeg"), "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	files, err := ListImages(dir, FeatureExtensions, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.PNG", "c.jpeg"}, files)

	_, err = ListImages(filepath.Join(dir, "missing"), FeatureExtensions, logger.NewNop())
	assert.Error(t, err)
}

func TestIsImageFileAndStem(t *testing.T) {
	assert.True(t, IsImageFile("x.TGA", SourceExtensions))
	assert.False(t, IsImageFile("x.tga", FeatureExtensions))
	assert.Equal(t, "carrot_01", Stem("/data/raw/carrot_01.jpg"))
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	loader := NewLoader(logger.NewNop())

	_, err := loader.LoadColor(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, ErrUnreadableImage)

	bad := filepath.Join(t.TempDir(), "bad.png")
	writeFile(t, bad, "not an image")
	_, err = loader.LoadGray(bad)
	assert.ErrorIs(t, err, ErrUnreadableImage)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	for _, format := range []string{"png", "webp"} {
		t.Run(format, func(t *testing.T) {
			mask, err := safe.NewMat(16, 16, gocv.MatTypeCV8UC1)
			require.NoError(t, err)
			defer mask.Close()
			for r := 4; r < 12; r++ {
				for c := 4; c < 12; c++ {
					mask.Ptr().SetUCharAt(r, c, 255)
				}
			}

			saver := NewSaver(format, logger.NewNop())
			path := saver.PathFor(filepath.Join(t.TempDir(), "masks"), "carrot")
			assert.Equal(t, "."+format, filepath.Ext(path))
			require.NoError(t, saver.Save(path, mask))

			loaded, err := NewLoader(logger.NewNop()).LoadGray(path)
			require.NoError(t, err)
			defer loaded.Close()

			assert.Equal(t, 16, loaded.Rows())
			assert.Equal(t, 64, loaded.CountNonZero())
		})
	}
}

func TestSaveRejectsClosedMat(t *testing.T) {
	m, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	m.Close()

	err = NewSaver("png", logger.NewNop()).Save(filepath.Join(t.TempDir(), "x.png"), m)
	assert.Error(t, err)
}

func TestSaveImageWritesDecodablePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 30, A: 255})

	path := filepath.Join(t.TempDir(), "nested", "plot.png")
	require.NoError(t, NewSaver("png", logger.NewNop()).SaveImage(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoded, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 4, 3), decoded.Bounds())
}

func TestSaveImageUnsupportedFormat(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	err := NewSaver("gif", logger.NewNop()).SaveImage(filepath.Join(t.TempDir(), "x.gif"), img)
	assert.Error(t, err)
}
