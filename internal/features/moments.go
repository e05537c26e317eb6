package features

import (
	"math"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// HuCount is the number of Hu moment invariants.
const HuCount = 7

// momentEpsilon keeps the log finite for moments close to zero.
const momentEpsilon = 1e-10

// HuMoments computes the seven Hu invariants of a mask. Pixel values act as
// weights, so a 0/255 mask is measured as OpenCV does for non-binary input.
func HuMoments(mask *safe.Mat) ([HuCount]float64, error) {
	if err := safe.ValidateChannels(mask, 1, "hu_moments"); err != nil {
		return [HuCount]float64{}, err
	}

	m := gocv.Moments(mask.GetMat(), false)
	return HuFromNormalized(m), nil
}

// HuFromNormalized derives the Hu invariants from normalized central moments
// keyed "nu20", "nu11", ... as gocv.Moments reports them.
func HuFromNormalized(m map[string]float64) [HuCount]float64 {
	n20, n11, n02 := m["nu20"], m["nu11"], m["nu02"]
	n30, n21, n12, n03 := m["nu30"], m["nu21"], m["nu12"], m["nu03"]

	t0 := n30 + n12
	t1 := n21 + n03
	q0 := t0 * t0
	q1 := t1 * t1
	n4 := 4 * n11
	s := n20 + n02
	d := n20 - n02

	var hu [HuCount]float64
	hu[0] = s
	hu[1] = d*d + n4*n11
	hu[3] = q0 + q1
	hu[5] = d*(q0-q1) + n4*t0*t1

	t0 *= q0 - 3*q1
	t1 *= 3*q0 - q1

	q0 = n30 - 3*n12
	q1 = 3*n21 - n03

	hu[2] = q0*q0 + q1*q1
	hu[4] = q0*t0 + q1*t1
	hu[6] = q1*t0 - q0*t1

	return hu
}

// ScaleMoment maps m to -sign(m)·log10(|m|+1e-10). Zero maps to zero.
func ScaleMoment(m float64) float64 {
	if m == 0 {
		return 0
	}
	sign := 1.0
	if m < 0 {
		sign = -1.0
	}
	return -sign * math.Log10(math.Abs(m)+momentEpsilon)
}

// ScaleMoments applies ScaleMoment elementwise.
func ScaleMoments(hu [HuCount]float64) [HuCount]float64 {
	var scaled [HuCount]float64
	for i, m := range hu {
		scaled[i] = ScaleMoment(m)
	}
	return scaled
}
