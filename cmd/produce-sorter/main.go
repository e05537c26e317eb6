package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"runtime"

	"produce-sorter/internal/clustering"
	"produce-sorter/internal/config"
	"produce-sorter/internal/logger"
	"produce-sorter/internal/preview"
	"produce-sorter/internal/services"
	"produce-sorter/internal/shutdown"
)

const (
	AppName    = "Produce Sorter"
	AppVersion = "1.0.0"
)

// Application wires configuration, services and the interactive menu.
type Application struct {
	config   *config.Config
	logger   logger.Logger
	shutdown *shutdown.Manager

	processing *services.ProcessingService
	clustering *services.ClusteringService
	menu       *Menu
}

type options struct {
	configPath  string
	writeConfig bool
	preview     bool
	seed        uint64
}

func main() {
	opts := parseFlags()

	if err := run(opts, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "produce-sorter.yaml", "path to the YAML configuration")
	flag.BoolVar(&opts.writeConfig, "write-config", false, "write the effective configuration to -config and exit")
	flag.BoolVar(&opts.preview, "preview", false, "render every clustering iteration as an image")
	flag.Uint64Var(&opts.seed, "seed", 0, "random seed for clustering, 0 draws one from entropy")
	flag.Parse()
	return opts
}

func run(opts options, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.preview {
		cfg.Output.Preview = true
	}

	if opts.writeConfig {
		if err := config.Save(cfg, opts.configPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "configuration written to %s\n", opts.configPath)
		return nil
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Console)
	if err != nil {
		return err
	}

	app := NewApplication(cfg, log, NewPrompt(in, out), opts.seed)

	app.shutdown.Listen()
	defer app.shutdown.Shutdown()

	return app.Run()
}

// NewApplication builds every component from cfg. A zero seed draws the
// clustering seed from entropy.
func NewApplication(cfg *config.Config, log logger.Logger, prompt *Prompt, seed uint64) *Application {
	log.Info("Application", "starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"k":          cfg.Clustering.K,
		"format":     cfg.Output.ImageFormat,
		"preview":    cfg.Output.Preview,
	})

	processing := services.NewProcessingService(cfg, log)

	sink := preview.Multi{preview.NewLogSink(log)}
	if cfg.Output.Preview {
		sink = append(sink, preview.NewScatterSink(cfg.Paths.PreviewDir, processing.Saver(), log))
	}

	partitionerOpts := []clustering.Option{
		clustering.WithNamer(NewConsoleNamer(prompt)),
		clustering.WithSink(sink),
		clustering.WithLogger(log),
	}
	if seed != 0 {
		partitionerOpts = append(partitionerOpts, clustering.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}

	clusteringService := services.NewClusteringService(cfg,
		clustering.NewPartitioner(cfg.Clustering, partitionerOpts...),
		processing.Saver(), log)

	mgr := shutdown.NewManager(log)
	mgr.Register(clusteringService)

	return &Application{
		config:     cfg,
		logger:     log,
		shutdown:   mgr,
		processing: processing,
		clustering: clusteringService,
		menu:       NewMenu(prompt, processing, clusteringService, log),
	}
}

func (app *Application) Run() error {
	err := app.menu.Run(app.shutdown.Context())
	app.logger.Info("Application", "menu closed", nil)
	return err
}
