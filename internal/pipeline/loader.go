// Package pipeline reads source images and writes masks and processed images.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"produce-sorter/internal/logger"
	"produce-sorter/internal/opencv/safe"

	_ "github.com/ftrvxmtrx/tga"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnreadableImage reports a missing file or one no decoder accepts.
var ErrUnreadableImage = errors.New("unreadable image")

// ColorMode selects how Load decodes an image.
type ColorMode int

const (
	ColorBGR ColorMode = iota
	Grayscale
)

type Loader struct {
	logger logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	return &Loader{logger: log}
}

// LoadColor reads path as 8-bit BGR.
func (l *Loader) LoadColor(path string) (*safe.Mat, error) {
	return l.Load(path, ColorBGR)
}

// LoadGray reads path as 8-bit single channel.
func (l *Loader) LoadGray(path string) (*safe.Mat, error) {
	return l.Load(path, Grayscale)
}

// Load reads path with OpenCV and falls back to the Go decoders for formats
// the OpenCV build cannot read.
func (l *Loader) Load(path string, mode ColorMode) (*safe.Mat, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}

	flags := gocv.IMReadColor
	if mode == Grayscale {
		flags = gocv.IMReadGrayScale
	}

	mat := gocv.IMRead(path, flags)
	source := "opencv"
	if mat.Empty() {
		mat.Close()

		var err error
		mat, err = decodeWithStdlib(path, mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
		}
		source = "stdlib"
	}

	m, err := safe.Adopt(mat, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}

	l.logger.Debug("ImageLoader", "image loaded", map[string]interface{}{
		"path":     path,
		"decoder":  source,
		"width":    m.Cols(),
		"height":   m.Rows(),
		"channels": m.Channels(),
		"elapsed":  time.Since(start).String(),
	})

	return m, nil
}

func decodeWithStdlib(path string, mode ColorMode) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return gocv.NewMat(), err
	}

	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	if mode == ColorBGR {
		return bgr, nil
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray, nil
}
