package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"produce-sorter/internal/config"
	"produce-sorter/internal/dataset"
	"produce-sorter/internal/features"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/pipeline"
	"produce-sorter/internal/segmentation"
)

// FolderReport summarizes a bulk run.
type FolderReport struct {
	Segmented  int
	Skipped    int
	Rows       int
	Strategies map[string]int
	Duration   time.Duration
}

// CandidateReport describes the processed candidate.
type CandidateReport struct {
	Layout     CandidateLayout
	Strategy   string
	Foreground int
	Color      features.ColorRecord
	Shape      features.ShapeRecord
}

// ProcessingService segments raw images and turns the results into feature
// tables.
type ProcessingService struct {
	loader    *pipeline.Loader
	saver     *pipeline.Saver
	segmenter *segmentation.Segmenter
	extractor *features.Extractor
	paths     config.Paths
	logger    logger.Logger
}

func NewProcessingService(cfg *config.Config, log logger.Logger) *ProcessingService {
	loader := pipeline.NewLoader(log)

	return &ProcessingService{
		loader:    loader,
		saver:     pipeline.NewSaver(cfg.Output.ImageFormat, log),
		segmenter: segmentation.New(cfg.Segmentation, log),
		extractor: features.NewExtractor(loader, log),
		paths:     cfg.Paths,
		logger:    log,
	}
}

// Saver exposes the image writer so other components share the output format.
func (ps *ProcessingService) Saver() *pipeline.Saver {
	return ps.saver
}

// ProcessFolder segments every raw image and writes both feature tables.
// Images that fail are logged and skipped.
func (ps *ProcessingService) ProcessFolder(ctx context.Context) (*FolderReport, error) {
	start := time.Now()

	report, err := ps.SegmentFolder(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := ps.ExtractFolder(ctx)
	if err != nil {
		return nil, err
	}
	report.Rows = rows
	report.Duration = time.Since(start)

	ps.logger.Info("ProcessingService", "folder processed", map[string]interface{}{
		"segmented":   report.Segmented,
		"skipped":     report.Skipped,
		"rows":        report.Rows,
		"strategies":  report.Strategies,
		"duration_ms": report.Duration.Milliseconds(),
	})

	return report, nil
}

// SegmentFolder writes a mask and a processed image for every raw image,
// both named after the source stem. A later file sharing a stem with an
// earlier one is skipped so its outputs cannot overwrite the first.
func (ps *ProcessingService) SegmentFolder(ctx context.Context) (*FolderReport, error) {
	files, err := pipeline.ListImages(ps.paths.RawDir, pipeline.SourceExtensions, ps.logger)
	if err != nil {
		return nil, err
	}

	report := &FolderReport{Strategies: make(map[string]int)}
	owners := make(map[string]string, len(files))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stem := pipeline.Stem(name)
		if owner, taken := owners[stem]; taken {
			ps.logger.Warning("ProcessingService", "skipping image whose stem is already in use", map[string]interface{}{
				"file":  name,
				"owner": owner,
			})
			report.Skipped++
			continue
		}
		owners[stem] = name

		strategy, err := ps.segmentFile(ctx,
			filepath.Join(ps.paths.RawDir, name),
			ps.saver.PathFor(ps.paths.MaskDir, stem),
			ps.saver.PathFor(ps.paths.ProcessedDir, stem),
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ps.logger.Warning("ProcessingService", "skipping image", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			report.Skipped++
			continue
		}

		report.Segmented++
		report.Strategies[strategy.Strategy]++
	}

	return report, nil
}

// ExtractFolder computes features of the mask and processed folders and
// writes the bulk tables. It returns the number of rows written.
func (ps *ProcessingService) ExtractFolder(ctx context.Context) (int, error) {
	colors, shapes, err := ps.extractor.ExtractFolder(ctx, ps.paths.MaskDir, ps.paths.ProcessedDir)
	if err != nil {
		return 0, err
	}

	if len(colors) != len(shapes) {
		ps.logger.Warning("ProcessingService", "tables differ in length", map[string]interface{}{
			"colors": len(colors),
			"shapes": len(shapes),
		})
	}

	if err := dataset.WriteColorTable(ps.paths.ColorTablePath(), colors); err != nil {
		return 0, err
	}
	if err := dataset.WriteShapeTable(ps.paths.ShapeTablePath(), shapes); err != nil {
		return 0, err
	}

	return min(len(colors), len(shapes)), nil
}

// ProcessCandidate segments the candidate image of dir and writes its
// feature tables. Any failure aborts.
func (ps *ProcessingService) ProcessCandidate(ctx context.Context, dir string) (*CandidateReport, error) {
	layout := NewCandidateLayout(dir, ps.paths.Candidate, ps.saver)

	res, err := ps.segmentFile(ctx, layout.Image, layout.Mask, layout.Processed)
	if err != nil {
		return nil, fmt.Errorf("candidate segmentation failed: %w", err)
	}

	color, shape, err := ps.extractor.ExtractCandidate(ctx, layout.Mask, layout.Processed)
	if err != nil {
		return nil, fmt.Errorf("candidate feature extraction failed: %w", err)
	}

	if err := dataset.WriteColorTable(layout.ColorTable, []features.ColorRecord{color}); err != nil {
		return nil, err
	}
	if err := dataset.WriteShapeTable(layout.ShapeTable, []features.ShapeRecord{shape}); err != nil {
		return nil, err
	}

	ps.logger.Info("ProcessingService", "candidate processed", map[string]interface{}{
		"dir":        dir,
		"strategy":   res.Strategy,
		"foreground": res.Foreground,
	})

	return &CandidateReport{
		Layout:     layout,
		Strategy:   res.Strategy,
		Foreground: res.Foreground,
		Color:      color,
		Shape:      shape,
	}, nil
}

type segmentOutcome struct {
	Strategy   string
	Foreground int
}

func (ps *ProcessingService) segmentFile(ctx context.Context, src, maskPath, processedPath string) (segmentOutcome, error) {
	img, err := ps.loader.LoadColor(src)
	if err != nil {
		return segmentOutcome{}, err
	}
	defer img.Close()

	res, err := ps.segmenter.Segment(ctx, img)
	if err != nil {
		return segmentOutcome{}, err
	}
	defer res.Close()

	if err := ps.saver.Save(maskPath, res.Mask); err != nil {
		return segmentOutcome{}, err
	}
	if err := ps.saver.Save(processedPath, res.Processed); err != nil {
		return segmentOutcome{}, err
	}

	return segmentOutcome{Strategy: res.Strategy, Foreground: res.Foreground}, nil
}
