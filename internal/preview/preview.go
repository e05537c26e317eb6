// Package preview renders clustering iterations for a human watching a run.
// Sinks only observe; nothing they do feeds back into the partitioner.
package preview

import (
	"fmt"

	"produce-sorter/internal/clustering"
	"produce-sorter/internal/logger"

	"github.com/lucasb-eyer/go-colorful"
)

// LogSink writes one debug line per iteration.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Observe(snap clustering.Snapshot) {
	k := len(snap.Centroids)
	centroids := make([]string, k)
	for i, c := range snap.Centroids {
		centroids[i] = fmt.Sprintf("%.4f", []float64(c))
	}

	s.logger.Debug("Preview", "iteration", map[string]interface{}{
		"attempt":   snap.Attempt,
		"iteration": snap.Iteration,
		"sizes":     clustering.Sizes(snap.Assignments, k),
		"centroids": centroids,
	})
}

// Multi fans a snapshot out to several sinks in order.
type Multi []clustering.Sink

func (m Multi) Observe(snap clustering.Snapshot) {
	for _, s := range m {
		if s != nil {
			s.Observe(snap)
		}
	}
}

// Palette returns k evenly spaced hues.
func Palette(k int) []colorful.Color {
	colors := make([]colorful.Color, k)
	for i := range colors {
		colors[i] = colorful.Hsv(float64(i)*360/float64(max(k, 1)), 0.75, 0.85).Clamped()
	}
	return colors
}
