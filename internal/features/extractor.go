package features

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"produce-sorter/internal/logger"
	"produce-sorter/internal/opencv/safe"
	"produce-sorter/internal/pipeline"
)

const component = "FeatureExtractor"

// ErrCandidateMissing reports that the candidate mask or processed image is absent.
var ErrCandidateMissing = errors.New("candidate mask or processed image not found")

// ImageReader loads images as BGR or single channel Mats.
type ImageReader interface {
	LoadColor(path string) (*safe.Mat, error)
	LoadGray(path string) (*safe.Mat, error)
}

type Extractor struct {
	reader ImageReader
	logger logger.Logger
}

func NewExtractor(reader ImageReader, log logger.Logger) *Extractor {
	return &Extractor{reader: reader, logger: log}
}

// ExtractFolder pairs processed images with masks by filename stem and
// computes one color and one shape record per pair, in processed filename
// order. A pair where either side is missing or fails to load is logged and
// dropped whole, so both slices always have the same length and order.
func (e *Extractor) ExtractFolder(ctx context.Context, maskDir, processedDir string) ([]ColorRecord, []ShapeRecord, error) {
	processedFiles, err := pipeline.ListImages(processedDir, pipeline.FeatureExtensions, e.logger)
	if err != nil {
		return nil, nil, err
	}

	maskFiles, err := pipeline.ListImages(maskDir, pipeline.FeatureExtensions, e.logger)
	if err != nil {
		return nil, nil, err
	}

	masks := make(map[string]string, len(maskFiles))
	for _, name := range maskFiles {
		stem := pipeline.Stem(name)
		if _, dup := masks[stem]; dup {
			e.logger.Warning(component, "duplicate mask stem, keeping first", map[string]interface{}{
				"file": name,
			})
			continue
		}
		masks[stem] = name
	}

	colors := make([]ColorRecord, 0, len(processedFiles))
	shapes := make([]ShapeRecord, 0, len(processedFiles))
	paired := make(map[string]bool, len(processedFiles))

	for _, name := range processedFiles {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		stem := pipeline.Stem(name)
		maskName, ok := masks[stem]
		if !ok || paired[stem] {
			e.logger.Warning(component, "skipping processed image without a unique mask", map[string]interface{}{
				"file": name,
			})
			continue
		}
		paired[stem] = true

		color, shape, err := e.pairRecords(filepath.Join(processedDir, name), filepath.Join(maskDir, maskName))
		if err != nil {
			e.logger.Warning(component, "skipping image pair", map[string]interface{}{
				"processed": name,
				"mask":      maskName,
				"error":     err.Error(),
			})
			continue
		}

		colors = append(colors, color)
		shapes = append(shapes, shape)
	}

	for stem, name := range masks {
		if !paired[stem] {
			e.logger.Warning(component, "skipping mask without processed image", map[string]interface{}{
				"file": name,
			})
		}
	}

	e.logger.Info(component, "folder features extracted", map[string]interface{}{
		"pairs":     len(colors),
		"processed": len(processedFiles),
		"masks":     len(maskFiles),
	})

	return colors, shapes, nil
}

func (e *Extractor) pairRecords(processedPath, maskPath string) (ColorRecord, ShapeRecord, error) {
	color, err := e.colorRecord(processedPath)
	if err != nil {
		return ColorRecord{}, ShapeRecord{}, err
	}

	shape, err := e.shapeRecord(maskPath)
	if err != nil {
		return ColorRecord{}, ShapeRecord{}, err
	}

	return color, shape, nil
}

// ExtractCandidate computes the records of a single mask/processed pair.
func (e *Extractor) ExtractCandidate(ctx context.Context, maskPath, processedPath string) (ColorRecord, ShapeRecord, error) {
	if err := ctx.Err(); err != nil {
		return ColorRecord{}, ShapeRecord{}, err
	}

	for _, p := range []string{maskPath, processedPath} {
		if _, err := os.Stat(p); err != nil {
			return ColorRecord{}, ShapeRecord{}, fmt.Errorf("%w: %s", ErrCandidateMissing, p)
		}
	}

	return e.pairRecords(processedPath, maskPath)
}

func (e *Extractor) colorRecord(path string) (ColorRecord, error) {
	img, err := e.reader.LoadColor(path)
	if err != nil {
		return ColorRecord{}, err
	}
	defer img.Close()

	r, g, b, err := AverageColor(img)
	if err != nil {
		return ColorRecord{}, err
	}

	return ColorRecord{Filename: filepath.Base(path), R: r, G: g, B: b}, nil
}

func (e *Extractor) shapeRecord(path string) (ShapeRecord, error) {
	mask, err := e.reader.LoadGray(path)
	if err != nil {
		return ShapeRecord{}, err
	}
	defer mask.Close()

	hu, err := HuMoments(mask)
	if err != nil {
		return ShapeRecord{}, err
	}

	return ShapeRecord{Filename: filepath.Base(path), Hu: ScaleMoments(hu)}, nil
}
