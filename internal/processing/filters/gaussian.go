package filters

import (
	"context"
	"fmt"
	"image"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// GaussianFilter blurs with a square kernel. A zero Sigma lets OpenCV derive
// it from the kernel size.
type GaussianFilter struct {
	KernelSize int
	Sigma      float64
}

func NewGaussianFilter(kernelSize int, sigma float64) *GaussianFilter {
	return &GaussianFilter{KernelSize: kernelSize, Sigma: sigma}
}

func (g *GaussianFilter) Name() string {
	return "gaussian_filter"
}

func (g *GaussianFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if g.KernelSize <= 0 || g.KernelSize%2 == 0 {
		return nil, fmt.Errorf("gaussian kernel must be a positive odd size, got %d", g.KernelSize)
	}

	dst, err := safe.NewMat(input.Rows(), input.Cols(), input.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	ksize := image.Point{X: g.KernelSize, Y: g.KernelSize}
	gocv.GaussianBlur(input.GetMat(), dst.Ptr(), ksize, g.Sigma, g.Sigma, gocv.BorderDefault)

	return dst, nil
}
