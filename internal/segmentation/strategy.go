package segmentation

import (
	"context"
	"fmt"

	"produce-sorter/internal/config"
	"produce-sorter/internal/opencv/safe"
	"produce-sorter/internal/processing/chain"
	"produce-sorter/internal/processing/filters"
)

// Strategy produces a binary foreground mask for a normalized BGR image.
type Strategy interface {
	Name() string
	Segment(ctx context.Context, img *safe.Mat) (*safe.Mat, error)
}

// EdgeStrategy finds the object outline with adaptive Canny edges. It suits
// produce with strong outlines and dull color, such as eggplants and sweet
// potatoes.
type EdgeStrategy struct {
	chain   *chain.ProcessingChain
	minArea float64
}

func NewEdgeStrategy(cfg config.Segmentation) *EdgeStrategy {
	return &EdgeStrategy{
		chain: chain.NewProcessingChain(
			filters.NewGrayscaleConverter(),
			filters.NewCLAHEFilter(cfg.CLAHEClipLimit, cfg.CLAHETileSize),
			filters.NewGaussianFilter(cfg.BlurKernel, 0),
			filters.NewAdaptiveCannyFilter(cfg.EdgeLowRatio, cfg.EdgeHighRatio),
			filters.NewClosingFilter(cfg.CloseKernel),
		),
		minArea: cfg.MinContourArea,
	}
}

func (e *EdgeStrategy) Name() string {
	return "edge"
}

// Steps lists the filter steps applied before contour selection.
func (e *EdgeStrategy) Steps() []string {
	return e.chain.GetStepNames()
}

func (e *EdgeStrategy) Segment(ctx context.Context, img *safe.Mat) (*safe.Mat, error) {
	edges, err := e.chain.Execute(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("edge strategy: %w", err)
	}
	defer edges.Close()

	return LargestContourMask(edges, e.minArea)
}

// ColorRangeStrategy keeps the largest region inside a fixed HSV band. The
// default band is tuned for orange and yellow produce such as carrots and
// potatoes.
type ColorRangeStrategy struct {
	chain *chain.ProcessingChain
}

func NewColorRangeStrategy(cfg config.Segmentation) *ColorRangeStrategy {
	lower := [3]float64{cfg.HueLow, cfg.SaturationLow, cfg.ValueLow}
	upper := [3]float64{cfg.HueHigh, cfg.SaturationHigh, cfg.ValueHigh}

	return &ColorRangeStrategy{
		chain: chain.NewProcessingChain(
			filters.NewHSVRangeFilter(lower, upper),
			filters.NewGaussianFilter(cfg.BlurKernel, 0),
			filters.NewBinarizeFilter(cfg.BinarizeThreshold),
		),
	}
}

func (c *ColorRangeStrategy) Name() string {
	return "color_range"
}

// Steps lists the filter steps applied before contour selection.
func (c *ColorRangeStrategy) Steps() []string {
	return c.chain.GetStepNames()
}

func (c *ColorRangeStrategy) Segment(ctx context.Context, img *safe.Mat) (*safe.Mat, error) {
	binary, err := c.chain.Execute(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("color range strategy: %w", err)
	}
	defer binary.Close()

	return LargestContourMask(binary, NoAreaFloor)
}
