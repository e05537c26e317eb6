// Package clustering partitions feature vectors into k groups.
//
// Each attempt seeds k distinct centroids from the data, then alternates
// assignment and centroid update for a fixed number of iterations; there is no
// convergence check. An attempt whose final assignment leaves any cluster
// empty is discarded and the run restarts from a fresh seed, up to a bounded
// number of attempts. Exhausting the budget yields ErrUnbalanced and no model.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"produce-sorter/internal/config"
	"produce-sorter/internal/logger"

	"github.com/muesli/clusters"
)

const component = "Partitioner"

var (
	ErrInvalidK          = errors.New("k must be at least 1")
	ErrNotEnoughPoints   = errors.New("fewer points than clusters")
	ErrDimensionMismatch = errors.New("points differ in dimension")
	ErrUnbalanced        = errors.New("no balanced classification achieved")
)

// Snapshot is what a Sink sees after each assignment step. Centroids are the
// ones the assignment was computed against.
type Snapshot struct {
	Attempt     int
	Iteration   int
	Points      []clusters.Coordinates
	Assignments []int
	Centroids   []clusters.Coordinates
	Labels      []string
}

// Sink receives iteration snapshots for display. It cannot influence the run.
type Sink interface {
	Observe(s Snapshot)
}

// Model is the result of a balanced run.
type Model struct {
	Centroids   []clusters.Coordinates
	Labels      []string
	Assignments []int
	Attempts    int
}

// Sizes counts the members of each cluster.
func (m *Model) Sizes() []int {
	return Sizes(m.Assignments, len(m.Centroids))
}

type Option func(*Partitioner)

// WithRand injects the random source used for seeding and reseeding.
func WithRand(rng *rand.Rand) Option {
	return func(p *Partitioner) { p.rng = rng }
}

func WithNamer(n Namer) Option {
	return func(p *Partitioner) { p.namer = n }
}

func WithSink(s Sink) Option {
	return func(p *Partitioner) { p.sink = s }
}

func WithLogger(l logger.Logger) Option {
	return func(p *Partitioner) { p.logger = l }
}

type Partitioner struct {
	k             int
	maxIterations int
	maxAttempts   int

	rng    *rand.Rand
	namer  Namer
	sink   Sink
	logger logger.Logger

	labels []string
}

func NewPartitioner(cfg config.Clustering, opts ...Option) *Partitioner {
	p := &Partitioner{
		k:             cfg.K,
		maxIterations: cfg.MaxIterations,
		maxAttempts:   cfg.MaxAttempts,
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		namer:         KeepNames{},
		logger:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.k > 0 {
		p.labels = DefaultLabels(p.k)
	}
	return p
}

// Labels returns the labels currently bound to cluster indices.
func (p *Partitioner) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Partition runs up to maxAttempts attempts over points. points is read only.
func (p *Partitioner) Partition(ctx context.Context, points []clusters.Coordinates) (*Model, error) {
	if err := p.validate(points); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		centroids, assignments := p.attempt(attempt, points)

		if !Balanced(assignments, p.k) {
			p.logger.Debug(component, "attempt unbalanced", map[string]interface{}{
				"attempt": attempt,
				"sizes":   Sizes(assignments, p.k),
			})
			continue
		}

		p.logger.Info(component, "balanced classification achieved", map[string]interface{}{
			"attempt": attempt,
			"sizes":   Sizes(assignments, p.k),
		})

		p.nameClusters(ctx)

		return &Model{
			Centroids:   centroids,
			Labels:      p.Labels(),
			Assignments: assignments,
			Attempts:    attempt,
		}, nil
	}

	p.logger.Warning(component, "no balanced classification achieved", map[string]interface{}{
		"attempts": p.maxAttempts,
	})

	return nil, fmt.Errorf("%w after %d attempts", ErrUnbalanced, p.maxAttempts)
}

func (p *Partitioner) validate(points []clusters.Coordinates) error {
	if p.k < 1 {
		return ErrInvalidK
	}
	if len(points) < p.k {
		return fmt.Errorf("%w: %d points for k=%d", ErrNotEnoughPoints, len(points), p.k)
	}
	dim := len(points[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty point", ErrDimensionMismatch)
	}
	for i, pt := range points {
		if len(pt) != dim {
			return fmt.Errorf("%w: point %d has %d values, expected %d", ErrDimensionMismatch, i, len(pt), dim)
		}
	}
	return nil
}

// attempt runs one seeded sequence of fixed iterations and returns the
// updated centroids with the last assignment.
func (p *Partitioner) attempt(attempt int, points []clusters.Coordinates) ([]clusters.Coordinates, []int) {
	centroids := p.initialize(points)

	var assignments []int
	for iteration := 1; iteration <= p.maxIterations; iteration++ {
		assignments = Assign(points, centroids)

		if p.sink != nil {
			p.sink.Observe(Snapshot{
				Attempt:     attempt,
				Iteration:   iteration,
				Points:      points,
				Assignments: assignments,
				Centroids:   centroids,
				Labels:      p.Labels(),
			})
		}

		centroids = p.update(points, assignments)
	}

	return centroids, assignments
}

// initialize picks k distinct points uniformly at random.
func (p *Partitioner) initialize(points []clusters.Coordinates) []clusters.Coordinates {
	centroids := make([]clusters.Coordinates, p.k)
	for i, idx := range p.rng.Perm(len(points))[:p.k] {
		centroids[i] = clone(points[idx])
	}
	return centroids
}

// update moves every centroid to the mean of its members. A cluster without
// members is reseeded to a uniformly random point.
func (p *Partitioner) update(points []clusters.Coordinates, assignments []int) []clusters.Coordinates {
	groups := make(clusters.Clusters, p.k)
	for i, a := range assignments {
		groups[a].Append(points[i])
	}

	centroids := make([]clusters.Coordinates, p.k)
	for i := range groups {
		center, err := groups[i].Observations.Center()
		if err != nil {
			centroids[i] = clone(points[p.rng.IntN(len(points))])
			continue
		}
		centroids[i] = center
	}
	return centroids
}

func (p *Partitioner) nameClusters(ctx context.Context) {
	names, err := p.namer.Names(ctx, p.Labels())
	if err != nil {
		p.logger.Warning(component, "group naming failed, keeping labels", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	p.labels = mergeNames(p.labels, names)
}

func clone(c clusters.Coordinates) clusters.Coordinates {
	return append(clusters.Coordinates(nil), c...)
}
