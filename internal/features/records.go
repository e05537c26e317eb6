// Package features turns masks and processed images into the numeric
// descriptors used for clustering: normalized average color and log-scaled
// Hu moment invariants.
package features

// ColorRecord is the normalized average color of one processed image.
type ColorRecord struct {
	Filename string
	R, G, B  float64
}

// ShapeRecord holds the scaled Hu moments of one mask.
type ShapeRecord struct {
	Filename string
	Hu       [HuCount]float64
}
