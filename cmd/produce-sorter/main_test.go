package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"produce-sorter/internal/classifier"
	"produce-sorter/internal/clustering"
	"produce-sorter/internal/config"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/services"

	"github.com/muesli/clusters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	folderCalls int
	candidates  []string
	err         error
}

func (f *fakeProcessor) ProcessFolder(context.Context) (*services.FolderReport, error) {
	f.folderCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &services.FolderReport{Segmented: 3, Skipped: 1, Rows: 3}, nil
}

func (f *fakeProcessor) ProcessCandidate(_ context.Context, dir string) (*services.CandidateReport, error) {
	f.candidates = append(f.candidates, dir)
	return &services.CandidateReport{Strategy: "edge", Foreground: 900}, nil
}

type fakeTrainer struct {
	trainErr    error
	classifyErr error
}

func (f *fakeTrainer) Train(context.Context) (*clustering.Model, error) {
	if f.trainErr != nil {
		return nil, f.trainErr
	}
	return &clustering.Model{
		Centroids:   []clusters.Coordinates{{0, 0, 0}, {1, 1, 1}},
		Labels:      []string{"Tomato", "Lemon"},
		Assignments: []int{0, 1, 1},
		Attempts:    2,
	}, nil
}

func (f *fakeTrainer) ClassifyCandidate(context.Context, string) (classifier.Result, error) {
	if f.classifyErr != nil {
		return classifier.Result{}, f.classifyErr
	}
	return classifier.Result{Index: 1, Label: "Lemon", Distance: 0.25}, nil
}

func runMenu(t *testing.T, input string, p *fakeProcessor, tr *fakeTrainer) string {
	t.Helper()
	var out bytes.Buffer
	m := NewMenu(NewPrompt(strings.NewReader(input), &out), p, tr, logger.NewNop())
	require.NoError(t, m.Run(context.Background()))
	return out.String()
}

func TestMenuDispatchesChoices(t *testing.T) {
	p := &fakeProcessor{}
	out := runMenu(t, "1\n2\n/tmp/cand\n4\n3\n/tmp/cand\n5\n", p, &fakeTrainer{})

	assert.Equal(t, 1, p.folderCalls)
	assert.Equal(t, []string{"/tmp/cand"}, p.candidates)
	assert.Contains(t, out, "3 images segmented, 1 skipped, 3 table rows")
	assert.Contains(t, out, "edge mask (900 foreground pixels)")
	assert.Contains(t, out, "Classification completed after 2 attempt(s).")
	assert.Contains(t, out, "Lemon: 2 images")
	assert.Contains(t, out, "The candidate belongs to: Lemon")
	assert.Contains(t, out, "Exiting.")
}

func TestMenuReportsFailuresAndContinues(t *testing.T) {
	p := &fakeProcessor{err: errors.New("disk full")}
	tr := &fakeTrainer{trainErr: clustering.ErrUnbalanced, classifyErr: classifier.ErrNotTrained}

	out := runMenu(t, "1\n4\n3\ncand\n9\n", p, tr)

	assert.Contains(t, out, "Error: folder processing failed: disk full")
	assert.Contains(t, out, "No balanced classification achieved")
	assert.Contains(t, out, "No model yet.")
	assert.Contains(t, out, "Invalid option.")
}

func TestMenuStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	m := NewMenu(NewPrompt(strings.NewReader("1\n"), &out), &fakeProcessor{}, &fakeTrainer{}, logger.NewNop())
	assert.ErrorIs(t, m.Run(ctx), context.Canceled)
}

func TestConsoleNamerKeepsBlankAnswers(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNamer(NewPrompt(strings.NewReader("Tomato\n\nLemon\n"), &out))

	names, err := n.Names(context.Background(), []string{"Group 1", "Group 2", "Group 3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tomato", "", "Lemon"}, names)
	assert.Contains(t, out.String(), "Name for group 2 (current: Group 2): ")

	_, err = n.Names(context.Background(), []string{"Group 1"})
	assert.Error(t, err)
}

func TestRunWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorter.yaml")
	var out bytes.Buffer

	require.NoError(t, run(options{configPath: path, writeConfig: true}, strings.NewReader(""), &out))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestAskReturnsOnCancelWithoutInput(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	p := NewPrompt(r, &out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Ask(ctx, "Select an option: ")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMenuStopsWhenCancelledWhileWaiting(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	m := NewMenu(NewPrompt(r, &out), &fakeProcessor{}, &fakeTrainer{}, logger.NewNop())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("menu still waiting for input after cancellation")
	}
}
