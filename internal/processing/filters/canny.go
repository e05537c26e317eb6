package filters

import (
	"context"
	"fmt"
	"math"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// AdaptiveCannyFilter runs Canny with hysteresis thresholds derived from the
// median intensity of its input.
type AdaptiveCannyFilter struct {
	LowRatio  float64
	HighRatio float64
}

func NewAdaptiveCannyFilter(lowRatio, highRatio float64) *AdaptiveCannyFilter {
	return &AdaptiveCannyFilter{LowRatio: lowRatio, HighRatio: highRatio}
}

func (a *AdaptiveCannyFilter) Name() string {
	return "adaptive_canny"
}

func (a *AdaptiveCannyFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	median, err := MedianIntensity(input)
	if err != nil {
		return nil, err
	}
	low, high := EdgeThresholds(median, a.LowRatio, a.HighRatio)

	dst, err := safe.NewMat(input.Rows(), input.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	gocv.Canny(input.GetMat(), dst.Ptr(), low, high)

	return dst, nil
}

// EdgeThresholds clamps ratio*median into [0,255] and truncates to whole
// intensities.
func EdgeThresholds(median, lowRatio, highRatio float64) (low, high float32) {
	l := math.Trunc(math.Max(0, lowRatio*median))
	h := math.Trunc(math.Min(255, highRatio*median))
	return float32(l), float32(h)
}

// MedianIntensity returns the median of an 8-bit single channel Mat. Even
// pixel counts average the two middle values.
func MedianIntensity(input *safe.Mat) (float64, error) {
	if err := safe.ValidateChannels(input, 1, "median"); err != nil {
		return 0, err
	}

	mat := input.GetMat()
	data, err := mat.DataPtrUint8()
	if err != nil {
		return 0, fmt.Errorf("failed to read pixel data: %w", err)
	}

	return medianOfBytes(data), nil
}

func medianOfBytes(data []uint8) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	var hist [256]int
	for _, v := range data {
		hist[v]++
	}

	lowerRank := (n - 1) / 2
	upperRank := n / 2

	var lower, upper = -1, -1
	seen := 0
	for value, count := range hist {
		seen += count
		if lower < 0 && seen > lowerRank {
			lower = value
		}
		if seen > upperRank {
			upper = value
			break
		}
	}

	return float64(lower+upper) / 2
}
