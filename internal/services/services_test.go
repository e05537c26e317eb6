package services

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"produce-sorter/internal/classifier"
	"produce-sorter/internal/clustering"
	"produce-sorter/internal/config"
	"produce-sorter/internal/dataset"
	"produce-sorter/internal/features"
	"produce-sorter/internal/logger"

	"github.com/muesli/clusters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type shape func(m *gocv.Mat)

func disk(center image.Point, r int, c color.RGBA) shape {
	return func(m *gocv.Mat) { gocv.Circle(m, center, r, c, -1) }
}

func box(r image.Rectangle, c color.RGBA) shape {
	return func(m *gocv.Mat) { gocv.Rectangle(m, r, c, -1) }
}

func writeImage(t *testing.T, path string, draw shape) {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 200, 240, gocv.MatTypeCV8UC3)
	defer m.Close()
	draw(&m)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.True(t, gocv.IMWrite(path, m))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RawDir = filepath.Join(root, "Crudas")
	cfg.Paths.MaskDir = filepath.Join(root, "Masks")
	cfg.Paths.ProcessedDir = filepath.Join(root, "Processed")
	cfg.Paths.OutputDir = root
	cfg.Paths.PreviewDir = filepath.Join(root, "Preview")
	cfg.Clustering.K = 2
	return cfg
}

func seedRaw(t *testing.T, cfg *config.Config) {
	t.Helper()
	orange := color.RGBA{R: 255, G: 128, B: 0, A: 255}
	green := color.RGBA{R: 30, G: 200, B: 60, A: 255}
	writeImage(t, filepath.Join(cfg.Paths.RawDir, "a.png"), disk(image.Pt(120, 100), 70, orange))
	writeImage(t, filepath.Join(cfg.Paths.RawDir, "b.png"), disk(image.Pt(110, 90), 50, orange))
	writeImage(t, filepath.Join(cfg.Paths.RawDir, "c.png"), box(image.Rect(40, 60, 200, 140), green))
	writeImage(t, filepath.Join(cfg.Paths.RawDir, "d.png"), box(image.Rect(60, 30, 180, 170), green))
}

func TestProcessFolderWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	seedRaw(t, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.RawDir, "broken.png"), []byte("nope"), 0o644))

	ps := NewProcessingService(cfg, logger.NewNop())
	report, err := ps.ProcessFolder(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Segmented)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 4, report.Rows)

	for _, stem := range []string{"a", "b", "c", "d"} {
		assert.FileExists(t, filepath.Join(cfg.Paths.MaskDir, stem+".png"))
		assert.FileExists(t, filepath.Join(cfg.Paths.ProcessedDir, stem+".png"))
	}

	colors, err := dataset.ReadColorTable(cfg.Paths.ColorTablePath())
	require.NoError(t, err)
	assert.Len(t, colors, 4)
	assert.Equal(t, "a.png", colors[0].Filename)
}

func TestProcessFolderMissingRawDir(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewProcessingService(cfg, logger.NewNop()).ProcessFolder(context.Background())
	assert.Error(t, err)
}

func TestTrainAndClassifyCandidate(t *testing.T) {
	cfg := testConfig(t)
	seedRaw(t, cfg)
	log := logger.NewNop()
	ctx := context.Background()

	ps := NewProcessingService(cfg, log)
	_, err := ps.ProcessFolder(ctx)
	require.NoError(t, err)

	partitioner := clustering.NewPartitioner(cfg.Clustering,
		clustering.WithRand(rand.New(rand.NewPCG(3, 4))),
		clustering.WithNamer(clustering.StaticNames{"Orange", "Green"}),
	)
	cs := NewClusteringService(cfg, partitioner, ps.Saver(), log)

	model, err := cs.Train(ctx)
	require.NoError(t, err)
	assert.Len(t, model.Centroids, 2)
	assert.Equal(t, []string{"Orange", "Green"}, model.Labels)
	assert.Same(t, model, cs.Model())

	candidateDir := filepath.Join(t.TempDir(), "Candidata")
	writeImage(t, filepath.Join(candidateDir, cfg.Paths.Candidate.Image),
		disk(image.Pt(120, 100), 60, color.RGBA{R: 255, G: 128, B: 0, A: 255}))

	report, err := ps.ProcessCandidate(ctx, candidateDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(candidateDir, "Mask", "mask_candidata.png"))
	assert.FileExists(t, filepath.Join(candidateDir, "Processed", "processed_candidata.png"))
	assert.FileExists(t, report.Layout.ColorTable)
	assert.FileExists(t, report.Layout.ShapeTable)

	res, err := cs.ClassifyCandidate(ctx, candidateDir)
	require.NoError(t, err)
	assert.Contains(t, model.Labels, res.Label)
	assert.True(t, res.Index >= 0 && res.Index < 2)

	cs.Shutdown()
	assert.Nil(t, cs.Model())
}

func TestProcessCandidateMissingImage(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewProcessingService(cfg, logger.NewNop()).ProcessCandidate(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestClassifyCandidateErrors(t *testing.T) {
	cfg := testConfig(t)
	ps := NewProcessingService(cfg, logger.NewNop())
	cs := NewClusteringService(cfg, clustering.NewPartitioner(cfg.Clustering), ps.Saver(), logger.NewNop())
	ctx := context.Background()

	_, err := cs.ClassifyCandidate(ctx, t.TempDir())
	assert.ErrorIs(t, err, classifier.ErrNotTrained)

	cs.model = &clustering.Model{
		Centroids: []clusters.Coordinates{{0, 0, 0}, {1, 1, 1}},
		Labels:    []string{"A", "B"},
	}
	_, err = cs.ClassifyCandidate(ctx, t.TempDir())
	assert.ErrorIs(t, err, dataset.ErrTableMissing)
}

func TestTrainWithoutTables(t *testing.T) {
	cfg := testConfig(t)
	ps := NewProcessingService(cfg, logger.NewNop())
	cs := NewClusteringService(cfg, clustering.NewPartitioner(cfg.Clustering), ps.Saver(), logger.NewNop())

	_, err := cs.Train(context.Background())
	assert.ErrorIs(t, err, dataset.ErrTableMissing)
	assert.Nil(t, cs.Model())
}

func TestCandidateLayoutUsesOutputFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.ImageFormat = "webp"
	ps := NewProcessingService(cfg, logger.NewNop())

	layout := NewCandidateLayout("cand", cfg.Paths.Candidate, ps.Saver())
	assert.Equal(t, filepath.Join("cand", "candidata.jpg"), layout.Image)
	assert.Equal(t, filepath.Join("cand", "Mask", "mask_candidata.webp"), layout.Mask)
	assert.Equal(t, filepath.Join("cand", "Processed", "processed_candidata.webp"), layout.Processed)
	assert.Equal(t, filepath.Join("cand", "valores_rgb_candidata.csv"), layout.ColorTable)
}

func TestUnbalancedRetrainDiscardsModel(t *testing.T) {
	cfg := testConfig(t)
	log := logger.NewNop()
	ctx := context.Background()

	writeTables := func(rows [][3]float64) {
		t.Helper()
		colors := make([]features.ColorRecord, len(rows))
		shapes := make([]features.ShapeRecord, len(rows))
		for i, r := range rows {
			name := fmt.Sprintf("%d.png", i)
			colors[i] = features.ColorRecord{Filename: name, R: 255, G: r[1] * 255, B: r[2] * 255}
			shapes[i] = features.ShapeRecord{Filename: name, Hu: [features.HuCount]float64{r[0]}}
		}
		require.NoError(t, dataset.WriteColorTable(cfg.Paths.ColorTablePath(), colors))
		require.NoError(t, dataset.WriteShapeTable(cfg.Paths.ShapeTablePath(), shapes))
	}

	ps := NewProcessingService(cfg, log)
	partitioner := clustering.NewPartitioner(cfg.Clustering, clustering.WithRand(rand.New(rand.NewPCG(5, 6))))
	cs := NewClusteringService(cfg, partitioner, ps.Saver(), log)

	writeTables([][3]float64{{0.1, 0.1, 0.1}, {0.12, 0.1, 0.1}, {0.9, 0.9, 0.9}, {0.88, 0.9, 0.9}})
	_, err := cs.Train(ctx)
	require.NoError(t, err)
	require.NotNil(t, cs.Model())

	candidateDir := t.TempDir()
	layout := NewCandidateLayout(candidateDir, cfg.Paths.Candidate, ps.Saver())
	require.NoError(t, dataset.WriteColorTable(layout.ColorTable, []features.ColorRecord{{Filename: "candidata.png", R: 255, G: 25.5, B: 25.5}}))
	require.NoError(t, dataset.WriteShapeTable(layout.ShapeTable, []features.ShapeRecord{{Filename: "candidata.png", Hu: [features.HuCount]float64{0.1}}}))

	_, err = cs.ClassifyCandidate(ctx, candidateDir)
	require.NoError(t, err)

	writeTables([][3]float64{{0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}})
	_, err = cs.Train(ctx)
	require.ErrorIs(t, err, clustering.ErrUnbalanced)
	assert.Nil(t, cs.Model())

	_, err = cs.ClassifyCandidate(ctx, candidateDir)
	assert.ErrorIs(t, err, classifier.ErrNotTrained)
}

func TestSegmentFolderSkipsStemCollision(t *testing.T) {
	cfg := testConfig(t)
	orange := color.RGBA{R: 255, G: 128, B: 0, A: 255}
	writeImage(t, filepath.Join(cfg.Paths.RawDir, "a.png"), disk(image.Pt(120, 100), 70, orange))
	writeImage(t, filepath.Join(cfg.Paths.RawDir, "a.jpg"), box(image.Rect(40, 60, 200, 140), orange))

	report, err := NewProcessingService(cfg, logger.NewNop()).SegmentFolder(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Segmented)
	assert.Equal(t, 1, report.Skipped)
	assert.FileExists(t, filepath.Join(cfg.Paths.MaskDir, "a.png"))
}
