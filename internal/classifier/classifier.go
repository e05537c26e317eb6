// Package classifier assigns a new feature vector to the nearest centroid of
// a trained model.
package classifier

import (
	"errors"
	"fmt"

	"produce-sorter/internal/clustering"

	"github.com/muesli/clusters"
)

var ErrNotTrained = errors.New("model has not been trained")

// Result names the winning cluster.
type Result struct {
	Index    int
	Label    string
	Distance float64
}

// Classify returns the cluster whose centroid is closest to vector in
// Euclidean distance. Ties resolve to the lowest index. A model without
// centroids yields ErrNotTrained.
func Classify(vector clusters.Coordinates, model *clustering.Model) (Result, error) {
	if model == nil || len(model.Centroids) == 0 {
		return Result{}, ErrNotTrained
	}
	for i, c := range model.Centroids {
		if len(c) != len(vector) {
			return Result{}, fmt.Errorf("%w: centroid %d has %d values, vector has %d",
				clustering.ErrDimensionMismatch, i, len(c), len(vector))
		}
	}

	idx, dist := clustering.Nearest(vector, model.Centroids)

	label := clustering.DefaultLabel(idx)
	if idx < len(model.Labels) && model.Labels[idx] != "" {
		label = model.Labels[idx]
	}

	return Result{Index: idx, Label: label, Distance: dist}, nil
}
