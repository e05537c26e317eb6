// Package segmentation turns a raw produce photo into a foreground mask.
//
// Every image is first letterboxed onto a square canvas so masks and shape
// features share one spatial scale. Each configured Strategy then proposes a
// mask and the one covering the most foreground pixels wins; ties go to the
// strategy listed first.
package segmentation

import (
	"context"
	"errors"
	"fmt"

	"produce-sorter/internal/config"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/opencv/safe"
)

const component = "Segmenter"

var ErrNoStrategies = errors.New("segmenter has no strategies")

// Result holds the winning mask and the normalized image with its background
// zeroed. Close releases both.
type Result struct {
	Mask       *safe.Mat
	Processed  *safe.Mat
	Strategy   string
	Foreground int
}

func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Mask.Close()
	r.Processed.Close()
}

// Selection is the outcome of running every strategy on one image.
type Selection struct {
	Mask       *safe.Mat
	Strategy   string
	Foreground int
	Scores     map[string]int
}

type Segmenter struct {
	strategies []Strategy
	canvasSize int
	logger     logger.Logger
}

// New builds a Segmenter. Without explicit strategies it uses the edge
// strategy followed by the color range strategy.
func New(cfg config.Segmentation, log logger.Logger, strategies ...Strategy) *Segmenter {
	if len(strategies) == 0 {
		strategies = []Strategy{NewEdgeStrategy(cfg), NewColorRangeStrategy(cfg)}
	}

	for _, st := range strategies {
		fields := map[string]interface{}{"strategy": st.Name()}
		if d, ok := st.(interface{ Steps() []string }); ok {
			fields["steps"] = d.Steps()
		}
		log.Debug(component, "strategy configured", fields)
	}

	return &Segmenter{
		strategies: strategies,
		canvasSize: cfg.CanvasSize,
		logger:     log,
	}
}

// Segment letterboxes img, selects the best mask and applies it.
func (s *Segmenter) Segment(ctx context.Context, img *safe.Mat) (*Result, error) {
	normalized, err := Letterbox(img, s.canvasSize)
	if err != nil {
		return nil, fmt.Errorf("letterbox failed: %w", err)
	}
	defer normalized.Close()

	sel, err := Select(ctx, normalized, s.strategies)
	if err != nil {
		return nil, err
	}

	processed, err := ApplyMask(normalized, sel.Mask)
	if err != nil {
		sel.Mask.Close()
		return nil, fmt.Errorf("apply mask failed: %w", err)
	}

	s.logger.Debug(component, "mask selected", map[string]interface{}{
		"strategy":   sel.Strategy,
		"foreground": sel.Foreground,
		"scores":     sel.Scores,
	})

	return &Result{
		Mask:       sel.Mask,
		Processed:  processed,
		Strategy:   sel.Strategy,
		Foreground: sel.Foreground,
	}, nil
}

// Select runs every strategy and keeps the mask with the most foreground
// pixels. A later strategy must beat the current best strictly to replace it.
func Select(ctx context.Context, img *safe.Mat, strategies []Strategy) (*Selection, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}

	var best *Selection
	scores := make(map[string]int, len(strategies))

	for _, strategy := range strategies {
		mask, err := strategy.Segment(ctx, img)
		if err != nil {
			if best != nil {
				best.Mask.Close()
			}
			return nil, fmt.Errorf("strategy %s failed: %w", strategy.Name(), err)
		}

		count := mask.CountNonZero()
		scores[strategy.Name()] = count

		if best == nil || count > best.Foreground {
			if best != nil {
				best.Mask.Close()
			}
			best = &Selection{Mask: mask, Strategy: strategy.Name(), Foreground: count}
			continue
		}
		mask.Close()
	}

	best.Scores = scores
	return best, nil
}
