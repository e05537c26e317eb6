package clustering

import (
	"context"
	"fmt"
	"strings"
)

// Namer supplies display names for the clusters of a successful run. current
// holds the labels in effect; a blank or missing entry keeps it.
type Namer interface {
	Names(ctx context.Context, current []string) ([]string, error)
}

// KeepNames is a Namer that leaves every label unchanged.
type KeepNames struct{}

func (KeepNames) Names(_ context.Context, current []string) ([]string, error) {
	return current, nil
}

// StaticNames assigns a fixed list of names in cluster order.
type StaticNames []string

func (s StaticNames) Names(_ context.Context, _ []string) ([]string, error) {
	return s, nil
}

// DefaultLabels returns "Group 1" .. "Group k".
func DefaultLabels(k int) []string {
	labels := make([]string, k)
	for i := range labels {
		labels[i] = DefaultLabel(i)
	}
	return labels
}

// DefaultLabel is the generic label of cluster index i.
func DefaultLabel(i int) string {
	return fmt.Sprintf("Group %d", i+1)
}

func mergeNames(current, proposed []string) []string {
	merged := make([]string, len(current))
	copy(merged, current)
	for i := range merged {
		if i < len(proposed) {
			if name := strings.TrimSpace(proposed[i]); name != "" {
				merged[i] = name
			}
		}
	}
	return merged
}
