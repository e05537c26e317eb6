package features

import (
	"math"

	"produce-sorter/internal/opencv/safe"
)

// AverageColor returns the per-channel means of a BGR image rescaled so the
// brightest channel maps to 255. Background pixels take part in the mean.
func AverageColor(processed *safe.Mat) (r, g, b float64, err error) {
	if err := safe.ValidateChannels(processed, 3, "average_color"); err != nil {
		return 0, 0, 0, err
	}

	mat := processed.GetMat()
	mean := mat.Mean()

	r, g, b = NormalizeColor(mean.Val3, mean.Val2, mean.Val1)
	return r, g, b, nil
}

// NormalizeColor scales (r, g, b) so the largest maps to 255. All-zero input
// stays zero.
func NormalizeColor(r, g, b float64) (float64, float64, float64) {
	peak := math.Max(r, math.Max(g, b))
	if peak <= 0 {
		return 0, 0, 0
	}
	return r / peak * 255, g / peak * 255, b / peak * 255
}
