package filters

import (
	"context"
	"fmt"
	"image"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MorphologyFilter applies one morphological operation with a fixed kernel.
type MorphologyFilter struct {
	Operation  gocv.MorphType
	Shape      gocv.MorphShape
	KernelSize int
}

// NewClosingFilter merges broken edges with a square closing.
func NewClosingFilter(kernelSize int) *MorphologyFilter {
	return &MorphologyFilter{
		Operation:  gocv.MorphClose,
		Shape:      gocv.MorphRect,
		KernelSize: kernelSize,
	}
}

func (m *MorphologyFilter) Name() string {
	return "morphology_filter"
}

func (m *MorphologyFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	kernel := gocv.GetStructuringElement(m.Shape, image.Point{X: m.KernelSize, Y: m.KernelSize})
	defer kernel.Close()

	result, err := safe.NewMat(input.Rows(), input.Cols(), input.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create result Mat: %w", err)
	}

	gocv.MorphologyEx(input.GetMat(), result.Ptr(), m.Operation, kernel)

	return result, nil
}
