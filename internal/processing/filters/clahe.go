package filters

import (
	"context"
	"fmt"
	"image"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// CLAHEFilter applies contrast limited adaptive histogram equalization.
type CLAHEFilter struct {
	ClipLimit float64
	TileSize  int
}

func NewCLAHEFilter(clipLimit float64, tileSize int) *CLAHEFilter {
	return &CLAHEFilter{ClipLimit: clipLimit, TileSize: tileSize}
}

func (c *CLAHEFilter) Name() string {
	return "clahe_filter"
}

func (c *CLAHEFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateChannels(input, 1, c.Name()); err != nil {
		return nil, err
	}

	dst, err := safe.NewMat(input.Rows(), input.Cols(), input.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	clahe := gocv.NewCLAHEWithParams(c.ClipLimit, image.Point{X: c.TileSize, Y: c.TileSize})
	defer clahe.Close()

	clahe.Apply(input.GetMat(), dst.Ptr())

	return dst, nil
}
