package segmentation

import (
	"fmt"
	"image/color"

	"produce-sorter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// NoAreaFloor keeps every contour regardless of its area.
const NoAreaFloor = -1.0

var foreground = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// LargestContourMask finds the external contours of binary, drops those whose
// area does not exceed minArea, and returns a new mask holding only the
// largest survivor, filled. No survivor yields an all-background mask. Equal
// areas keep the contour found first.
func LargestContourMask(binary *safe.Mat, minArea float64) (*safe.Mat, error) {
	if err := safe.ValidateChannels(binary, 1, "largest_contour"); err != nil {
		return nil, err
	}

	mask, err := safe.NewTaggedMat(binary.Rows(), binary.Cols(), gocv.MatTypeCV8UC1, "mask")
	if err != nil {
		return nil, fmt.Errorf("failed to create mask: %w", err)
	}

	contours := gocv.FindContours(binary.GetMat(), gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area <= minArea {
			continue
		}
		if best < 0 || area > bestArea {
			best = i
			bestArea = area
		}
	}

	if best >= 0 {
		gocv.DrawContours(mask.Ptr(), contours, best, foreground, -1)
	}

	return mask, nil
}
