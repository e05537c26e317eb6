package segmentation

import (
	"fmt"
	"image"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Letterbox downscales img to fit a size×size canvas, keeping the aspect
// ratio, and centers it on a zero background.
func Letterbox(img *safe.Mat, size int) (*safe.Mat, error) {
	if err := safe.ValidateChannels(img, 3, "letterbox"); err != nil {
		return nil, err
	}
	if err := safe.ValidateDimensions(size, size, "letterbox"); err != nil {
		return nil, err
	}

	w, h := img.Cols(), img.Rows()
	scale := float64(size) / float64(max(w, h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img.GetMat(), &resized, image.Point{X: newW, Y: newH}, 0, 0, gocv.InterpolationArea)

	canvas, err := safe.NewTaggedMat(size, size, gocv.MatTypeCV8UC3, "letterbox")
	if err != nil {
		return nil, fmt.Errorf("failed to create canvas: %w", err)
	}

	offX := (size - newW) / 2
	offY := (size - newH) / 2
	region := canvas.Ptr().Region(image.Rect(offX, offY, offX+newW, offY+newH))
	defer region.Close()
	resized.CopyTo(&region)

	return canvas, nil
}

// ApplyMask zeroes every pixel of img outside mask.
func ApplyMask(img, mask *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateChannels(mask, 1, "apply_mask"); err != nil {
		return nil, err
	}
	if img.Rows() != mask.Rows() || img.Cols() != mask.Cols() {
		return nil, fmt.Errorf("mask %dx%d does not match image %dx%d",
			mask.Cols(), mask.Rows(), img.Cols(), img.Rows())
	}

	dst, err := safe.NewTaggedMat(img.Rows(), img.Cols(), img.Type(), "processed")
	if err != nil {
		return nil, err
	}

	src := img.GetMat()
	gocv.BitwiseAndWithMask(src, src, dst.Ptr(), mask.GetMat())

	return dst, nil
}
