package filters

import (
	"context"
	"fmt"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// BinarizeFilter maps pixels above Threshold to 255 and the rest to 0.
type BinarizeFilter struct {
	Threshold float32
}

func NewBinarizeFilter(threshold float32) *BinarizeFilter {
	return &BinarizeFilter{Threshold: threshold}
}

func (b *BinarizeFilter) Name() string {
	return "binarize"
}

func (b *BinarizeFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	dst, err := safe.NewMat(input.Rows(), input.Cols(), input.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	gocv.Threshold(input.GetMat(), dst.Ptr(), b.Threshold, 255, gocv.ThresholdBinary)

	return dst, nil
}
