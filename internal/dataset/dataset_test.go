package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"produce-sorter/internal/features"
	"produce-sorter/internal/logger"

	"github.com/muesli/clusters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() ([]features.ColorRecord, []features.ShapeRecord) {
	colors := []features.ColorRecord{
		{Filename: "carrot.png", R: 255, G: 127.5, B: 25.5},
		{Filename: "eggplant.png", R: 204, G: 51, B: 255},
	}
	shapes := []features.ShapeRecord{
		{Filename: "carrot.png", Hu: [features.HuCount]float64{2.5, 5, 0, -9.1, 0, 7, 0.25}},
		{Filename: "eggplant.png", Hu: [features.HuCount]float64{3.25, 6}},
	}
	return colors, shapes
}

func TestTablesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	colors, shapes := sampleRecords()

	colorPath := filepath.Join(dir, "out", "rgb.csv")
	shapePath := filepath.Join(dir, "out", "hu.csv")
	require.NoError(t, WriteColorTable(colorPath, colors))
	require.NoError(t, WriteShapeTable(shapePath, shapes))

	gotColors, err := ReadColorTable(colorPath)
	require.NoError(t, err)
	assert.Equal(t, colors, gotColors)

	gotShapes, err := ReadShapeTable(shapePath)
	require.NoError(t, err)
	assert.Equal(t, shapes, gotShapes)

	raw, err := os.ReadFile(shapePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Archivo,Hu_1,Hu_2,Hu_3,Hu_4,Hu_5,Hu_6,Hu_7\n")
}

func TestReadTableErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadColorTable(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrTableMissing)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadColorTable(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)

	headerOnly := filepath.Join(dir, "header.csv")
	require.NoError(t, WriteColorTable(headerOnly, nil))
	_, err = ReadColorTable(headerOnly)
	assert.ErrorIs(t, err, ErrEmptyTable)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Archivo,Promedio R,Promedio G,Promedio B\na.png,1,x,3\n"), 0o644))
	_, err = ReadColorTable(bad)
	assert.Error(t, err)
}

func TestJoinBuildsVectors(t *testing.T) {
	colors, shapes := sampleRecords()

	ds, err := Join(colors, shapes, logger.NewNop())
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, clusters.Coordinates{2.5, 0.5, 0.1}, ds.Points[0])
	assert.Equal(t, []string{"carrot.png", "eggplant.png"}, ds.Names)
}

func TestJoinRejectsMismatchedRows(t *testing.T) {
	colors, shapes := sampleRecords()

	_, err := Join(colors, shapes[:1], logger.NewNop())
	assert.Error(t, err)

	_, err = Join(nil, nil, logger.NewNop())
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestLoadAndSummary(t *testing.T) {
	dir := t.TempDir()
	colors, shapes := sampleRecords()
	require.NoError(t, WriteColorTable(filepath.Join(dir, "rgb.csv"), colors))
	require.NoError(t, WriteShapeTable(filepath.Join(dir, "hu.csv"), shapes))

	ds, err := Load(filepath.Join(dir, "rgb.csv"), filepath.Join(dir, "hu.csv"), logger.NewNop())
	require.NoError(t, err)

	s := ds.Summary()
	assert.InDelta(t, 2.875, s.Mean[0], 1e-12)
	assert.InDelta(t, 0.35, s.Mean[1], 1e-12)
	assert.Positive(t, s.StdDev[2])

	_, err = Load(filepath.Join(dir, "rgb.csv"), filepath.Join(dir, "none.csv"), logger.NewNop())
	assert.ErrorIs(t, err, ErrTableMissing)
}
