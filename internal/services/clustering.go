package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"produce-sorter/internal/classifier"
	"produce-sorter/internal/clustering"
	"produce-sorter/internal/config"
	"produce-sorter/internal/dataset"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/pipeline"
)

// ClusteringService trains a model from the bulk tables and classifies
// candidates against it. The model lives in memory only.
type ClusteringService struct {
	partitioner *clustering.Partitioner
	paths       config.Paths
	saver       *pipeline.Saver
	logger      logger.Logger

	mu    sync.RWMutex
	model *clustering.Model
}

func NewClusteringService(cfg *config.Config, partitioner *clustering.Partitioner, saver *pipeline.Saver, log logger.Logger) *ClusteringService {
	return &ClusteringService{
		partitioner: partitioner,
		paths:       cfg.Paths,
		saver:       saver,
		logger:      log,
	}
}

// Train loads the bulk tables and runs the partitioner. A run that ends
// unbalanced discards the previous model; no centroids survive it.
func (cs *ClusteringService) Train(ctx context.Context) (*clustering.Model, error) {
	ds, err := dataset.Load(cs.paths.ColorTablePath(), cs.paths.ShapeTablePath(), cs.logger)
	if err != nil {
		return nil, err
	}

	summary := ds.Summary()
	cs.logger.Info("ClusteringService", "dataset loaded", map[string]interface{}{
		"points": ds.Len(),
		"mean":   summary.Mean,
		"stddev": summary.StdDev,
	})

	model, err := cs.partitioner.Partition(ctx, ds.Points)
	if errors.Is(err, clustering.ErrUnbalanced) {
		cs.mu.Lock()
		cs.model = nil
		cs.mu.Unlock()
	}
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	cs.mu.Lock()
	cs.model = model
	cs.mu.Unlock()

	for i, label := range model.Labels {
		members := []string{}
		for p, a := range model.Assignments {
			if a == i {
				members = append(members, ds.Names[p])
			}
		}
		cs.logger.Debug("ClusteringService", "group members", map[string]interface{}{
			"group":   label,
			"members": members,
		})
	}

	return model, nil
}

// Model returns the current model or nil before the first successful run.
func (cs *ClusteringService) Model() *clustering.Model {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.model
}

// ClassifyCandidate reads the candidate tables of dir and assigns the
// candidate to the nearest group.
func (cs *ClusteringService) ClassifyCandidate(ctx context.Context, dir string) (classifier.Result, error) {
	if err := ctx.Err(); err != nil {
		return classifier.Result{}, err
	}

	model := cs.Model()
	if model == nil {
		return classifier.Result{}, classifier.ErrNotTrained
	}

	layout := NewCandidateLayout(dir, cs.paths.Candidate, cs.saver)
	ds, err := dataset.Load(layout.ColorTable, layout.ShapeTable, cs.logger)
	if err != nil {
		return classifier.Result{}, err
	}

	res, err := classifier.Classify(ds.Points[0], model)
	if err != nil {
		return classifier.Result{}, err
	}

	cs.logger.Info("ClusteringService", "candidate classified", map[string]interface{}{
		"dir":      dir,
		"group":    res.Label,
		"distance": res.Distance,
	})

	return res, nil
}

// Shutdown drops the in-memory model.
func (cs *ClusteringService) Shutdown() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.model != nil {
		cs.logger.Info("ClusteringService", "discarding model", map[string]interface{}{
			"groups": len(cs.model.Centroids),
		})
	}
	cs.model = nil
}
