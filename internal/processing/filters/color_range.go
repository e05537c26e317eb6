package filters

import (
	"context"
	"fmt"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// HSVRangeFilter converts BGR input to HSV and keeps pixels inside a band.
// Hue uses OpenCV's 0-179 scale.
type HSVRangeFilter struct {
	Lower gocv.Scalar
	Upper gocv.Scalar
}

func NewHSVRangeFilter(lower, upper [3]float64) *HSVRangeFilter {
	return &HSVRangeFilter{
		Lower: gocv.NewScalar(lower[0], lower[1], lower[2], 0),
		Upper: gocv.NewScalar(upper[0], upper[1], upper[2], 0),
	}
}

func (h *HSVRangeFilter) Name() string {
	return "hsv_range"
}

func (h *HSVRangeFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateColorConversion(input, gocv.ColorBGRToHSV); err != nil {
		return nil, err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(input.GetMat(), &hsv, gocv.ColorBGRToHSV)

	mask, err := safe.NewMat(input.Rows(), input.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("failed to create mask Mat: %w", err)
	}

	gocv.InRangeWithScalar(hsv, h.Lower, h.Upper, mask.Ptr())

	return mask, nil
}
