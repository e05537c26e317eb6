package main

import (
	"context"
	"errors"
	"io"

	"produce-sorter/internal/classifier"
	"produce-sorter/internal/clustering"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/services"
)

type imageProcessor interface {
	ProcessFolder(ctx context.Context) (*services.FolderReport, error)
	ProcessCandidate(ctx context.Context, dir string) (*services.CandidateReport, error)
}

type groupTrainer interface {
	Train(ctx context.Context) (*clustering.Model, error)
	ClassifyCandidate(ctx context.Context, dir string) (classifier.Result, error)
}

// Menu is the interactive loop. Failures are reported and the loop goes on;
// only exhausted input, the exit option or cancellation end it.
type Menu struct {
	prompt     *Prompt
	processing imageProcessor
	clustering groupTrainer
	logger     logger.Logger
}

func NewMenu(p *Prompt, processing imageProcessor, clustering groupTrainer, log logger.Logger) *Menu {
	return &Menu{
		prompt:     p,
		processing: processing,
		clustering: clustering,
		logger:     log,
	}
}

func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.prompt.Println()
		m.prompt.Println("1. Process full folder")
		m.prompt.Println("2. Process candidate image")
		m.prompt.Println("3. Classify candidate image")
		m.prompt.Println("4. Run clustering (K-Means)")
		m.prompt.Println("5. Exit")

		choice, err := m.prompt.Ask(ctx, "Select an option: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			m.processFolder(ctx)
		case "2":
			m.withCandidate(ctx, m.processCandidate)
		case "3":
			m.withCandidate(ctx, m.classifyCandidate)
		case "4":
			m.train(ctx)
		case "5":
			m.prompt.Println("Exiting.")
			return nil
		default:
			m.prompt.Println("Invalid option.")
		}
	}
}

func (m *Menu) processFolder(ctx context.Context) {
	report, err := m.processing.ProcessFolder(ctx)
	if err != nil {
		m.fail("folder processing failed", err)
		return
	}
	m.prompt.Printf("Folder processed: %d images segmented, %d skipped, %d table rows.\n",
		report.Segmented, report.Skipped, report.Rows)
}

func (m *Menu) withCandidate(ctx context.Context, run func(context.Context, string)) {
	dir, err := m.prompt.Ask(ctx, "Candidate folder path: ")
	if err != nil {
		return
	}
	if dir == "" {
		m.prompt.Println("No folder given.")
		return
	}
	run(ctx, dir)
}

func (m *Menu) processCandidate(ctx context.Context, dir string) {
	report, err := m.processing.ProcessCandidate(ctx, dir)
	if err != nil {
		m.fail("candidate processing failed", err)
		return
	}
	m.prompt.Printf("Candidate processed with the %s mask (%d foreground pixels).\n",
		report.Strategy, report.Foreground)
}

func (m *Menu) classifyCandidate(ctx context.Context, dir string) {
	res, err := m.clustering.ClassifyCandidate(ctx, dir)
	switch {
	case errors.Is(err, classifier.ErrNotTrained):
		m.prompt.Println("No model yet. Run clustering first.")
	case err != nil:
		m.fail("classification failed", err)
	default:
		m.prompt.Printf("The candidate belongs to: %s (distance %.4f)\n", res.Label, res.Distance)
	}
}

func (m *Menu) train(ctx context.Context) {
	model, err := m.clustering.Train(ctx)
	switch {
	case errors.Is(err, clustering.ErrUnbalanced):
		m.prompt.Println("No balanced classification achieved after the maximum attempts.")
	case err != nil:
		m.fail("clustering failed", err)
	default:
		m.prompt.Printf("Classification completed after %d attempt(s).\n", model.Attempts)
		for i, label := range model.Labels {
			m.prompt.Printf("  %s: %d images\n", label, model.Sizes()[i])
		}
	}
}

func (m *Menu) fail(msg string, err error) {
	m.logger.Error("Menu", err, map[string]interface{}{"action": msg})
	m.prompt.Printf("Error: %s: %v\n", msg, err)
}
