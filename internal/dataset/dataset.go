package dataset

import (
	"fmt"

	"produce-sorter/internal/features"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/pipeline"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/stat"
)

// Dimensions of a clustering feature vector: Hu_1, G/255, B/255.
const Dimensions = 3

// Dataset is an ordered set of feature vectors with the filename each came
// from. Names are for traceability only.
type Dataset struct {
	Points []clusters.Coordinates
	Names  []string
}

func (d *Dataset) Len() int {
	return len(d.Points)
}

// Vector builds the clustering feature vector of one image.
func Vector(color features.ColorRecord, shape features.ShapeRecord) clusters.Coordinates {
	return clusters.Coordinates{shape.Hu[0], color.G / 255, color.B / 255}
}

// Join pairs color and shape records by row order.
func Join(colors []features.ColorRecord, shapes []features.ShapeRecord, log logger.Logger) (*Dataset, error) {
	if len(colors) != len(shapes) {
		return nil, fmt.Errorf("color table has %d rows but shape table has %d", len(colors), len(shapes))
	}
	if len(colors) == 0 {
		return nil, ErrEmptyTable
	}

	ds := &Dataset{
		Points: make([]clusters.Coordinates, len(colors)),
		Names:  make([]string, len(colors)),
	}

	for i := range colors {
		if pipeline.Stem(colors[i].Filename) != pipeline.Stem(shapes[i].Filename) {
			log.Warning("Dataset", "row filenames differ", map[string]interface{}{
				"row":   i + 1,
				"color": colors[i].Filename,
				"shape": shapes[i].Filename,
			})
		}
		ds.Points[i] = Vector(colors[i], shapes[i])
		ds.Names[i] = colors[i].Filename
	}

	return ds, nil
}

// Load reads both tables and joins them.
func Load(colorPath, shapePath string, log logger.Logger) (*Dataset, error) {
	colors, err := ReadColorTable(colorPath)
	if err != nil {
		return nil, err
	}

	shapes, err := ReadShapeTable(shapePath)
	if err != nil {
		return nil, err
	}

	return Join(colors, shapes, log)
}

// Summary is the mean and standard deviation of every dimension.
type Summary struct {
	Mean   [Dimensions]float64
	StdDev [Dimensions]float64
}

func (d *Dataset) Summary() Summary {
	var s Summary
	column := make([]float64, len(d.Points))
	for dim := 0; dim < Dimensions; dim++ {
		for i, p := range d.Points {
			column[i] = p[dim]
		}
		s.Mean[dim], s.StdDev[dim] = stat.MeanStdDev(column, nil)
	}
	return s
}
