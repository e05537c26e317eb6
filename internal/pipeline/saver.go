package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"produce-sorter/internal/logger"
	"produce-sorter/internal/opencv/safe"

	"github.com/HugoSmits86/nativewebp"
	"gocv.io/x/gocv"
)

// Saver writes Mats as PNG through OpenCV or as lossless WebP. Plain Go
// images go through the matching Go encoder.
type Saver struct {
	format string
	logger logger.Logger
}

func NewSaver(format string, log logger.Logger) *Saver {
	if format == "" {
		format = "png"
	}
	return &Saver{format: strings.ToLower(format), logger: log}
}

// Extension is the file extension, with dot, of written images.
func (s *Saver) Extension() string {
	return "." + s.format
}

// PathFor joins dir with stem and the configured extension.
func (s *Saver) PathFor(dir, stem string) string {
	return filepath.Join(dir, stem+s.Extension())
}

// Save writes m to path, creating the parent directory. The extension of path
// is not consulted; the configured format wins.
func (s *Saver) Save(path string, m *safe.Mat) error {
	if err := safe.ValidateMatForOperation(m, "save"); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch s.format {
	case "webp":
		err = s.saveWebP(path, m)
	case "png":
		if !gocv.IMWrite(path, m.GetMat()) {
			err = fmt.Errorf("opencv could not write %s", path)
		}
	default:
		err = fmt.Errorf("unsupported output format %q", s.format)
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"path":   path,
			"format": s.format,
		})
		return err
	}

	s.logger.Debug("ImageSaver", "image saved", map[string]interface{}{
		"path":   path,
		"format": s.format,
	})

	return nil
}

// SaveImage writes a Go image in the configured format.
func (s *Saver) SaveImage(path string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("save: nil image")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := s.encode(path, img); err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"path":   path,
			"format": s.format,
		})
		return err
	}

	return nil
}

func (s *Saver) saveWebP(path string, m *safe.Mat) error {
	mat := m.GetMat()
	img, err := mat.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert Mat to image: %w", err)
	}
	return s.encode(path, img)
}

func (s *Saver) encode(path string, img image.Image) error {
	if s.format != "png" && s.format != "webp" {
		return fmt.Errorf("unsupported output format %q", s.format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if s.format == "webp" {
		err = nativewebp.Encode(f, img, nil)
	} else {
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("%s encode failed: %w", s.format, err)
	}

	return f.Close()
}
