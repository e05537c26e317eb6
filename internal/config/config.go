// Package config loads and validates the produce-sorter configuration.
// Every component receives its section of Config at construction; nothing
// reads paths from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Paths        Paths        `yaml:"paths"`
	Segmentation Segmentation `yaml:"segmentation"`
	Clustering   Clustering   `yaml:"clustering"`
	Output       Output       `yaml:"output"`
	Logging      Logging      `yaml:"logging"`
}

// Paths enumerates every input and output location.
type Paths struct {
	RawDir       string `yaml:"rawDir"`
	MaskDir      string `yaml:"maskDir"`
	ProcessedDir string `yaml:"processedDir"`
	OutputDir    string `yaml:"outputDir"`
	ColorTable   string `yaml:"colorTable"`
	ShapeTable   string `yaml:"shapeTable"`
	PreviewDir   string `yaml:"previewDir"`

	Candidate Candidate `yaml:"candidate"`
}

// Candidate names the files inside a candidate folder.
type Candidate struct {
	Image         string `yaml:"image"`
	MaskDir       string `yaml:"maskDir"`
	MaskFile      string `yaml:"maskFile"`
	ProcessedDir  string `yaml:"processedDir"`
	ProcessedFile string `yaml:"processedFile"`
	ColorTable    string `yaml:"colorTable"`
	ShapeTable    string `yaml:"shapeTable"`
}

// Segmentation holds the tuning of both segmentation strategies.
type Segmentation struct {
	CanvasSize int `yaml:"canvasSize"`

	CLAHEClipLimit float64 `yaml:"claheClipLimit"`
	CLAHETileSize  int     `yaml:"claheTileSize"`
	BlurKernel     int     `yaml:"blurKernel"`
	EdgeLowRatio   float64 `yaml:"edgeLowRatio"`
	EdgeHighRatio  float64 `yaml:"edgeHighRatio"`
	CloseKernel    int     `yaml:"closeKernel"`
	MinContourArea float64 `yaml:"minContourArea"`

	HueLow            float64 `yaml:"hueLow"`
	HueHigh           float64 `yaml:"hueHigh"`
	SaturationLow     float64 `yaml:"saturationLow"`
	SaturationHigh    float64 `yaml:"saturationHigh"`
	ValueLow          float64 `yaml:"valueLow"`
	ValueHigh         float64 `yaml:"valueHigh"`
	BinarizeThreshold float32 `yaml:"binarizeThreshold"`
}

// Clustering holds the partitioner budget.
type Clustering struct {
	K             int `yaml:"k"`
	MaxIterations int `yaml:"maxIterations"`
	MaxAttempts   int `yaml:"maxAttempts"`
}

// Output controls written rasters and the iteration preview.
type Output struct {
	ImageFormat string `yaml:"imageFormat"`
	Preview     bool   `yaml:"preview"`
}

// Logging controls the zerolog sink.
type Logging struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default returns the stock paths and tuning.
func Default() *Config {
	cfg := &Config{}

	cfg.Paths.RawDir = filepath.Join("DB", "Crudas")
	cfg.Paths.MaskDir = filepath.Join("DB", "Masks")
	cfg.Paths.ProcessedDir = filepath.Join("DB", "Processed")
	cfg.Paths.OutputDir = "DB"
	cfg.Paths.ColorTable = "valores_rgb_promedio.csv"
	cfg.Paths.ShapeTable = "momentos_hu_escalados.csv"
	cfg.Paths.PreviewDir = filepath.Join("DB", "Preview")

	cfg.Paths.Candidate = Candidate{
		Image:         "candidata.jpg",
		MaskDir:       "Mask",
		MaskFile:      "mask_candidata.png",
		ProcessedDir:  "Processed",
		ProcessedFile: "processed_candidata.png",
		ColorTable:    "valores_rgb_candidata.csv",
		ShapeTable:    "momentos_hu_candidata.csv",
	}

	cfg.Segmentation = Segmentation{
		CanvasSize:        256,
		CLAHEClipLimit:    2.0,
		CLAHETileSize:     8,
		BlurKernel:        5,
		EdgeLowRatio:      0.7,
		EdgeHighRatio:     1.3,
		CloseKernel:       3,
		MinContourArea:    100,
		HueLow:            5,
		HueHigh:           20,
		SaturationLow:     50,
		SaturationHigh:    255,
		ValueLow:          50,
		ValueHigh:         255,
		BinarizeThreshold: 127,
	}

	cfg.Clustering = Clustering{
		K:             4,
		MaxIterations: 5,
		MaxAttempts:   10,
	}

	cfg.Output = Output{ImageFormat: "png"}
	cfg.Logging = Logging{Level: "info", Console: true}

	return cfg
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	s := c.Segmentation
	switch {
	case s.CanvasSize <= 0:
		return fmt.Errorf("segmentation.canvasSize must be positive, got %d", s.CanvasSize)
	case s.BlurKernel <= 0 || s.BlurKernel%2 == 0:
		return fmt.Errorf("segmentation.blurKernel must be a positive odd number, got %d", s.BlurKernel)
	case s.CLAHETileSize <= 0:
		return fmt.Errorf("segmentation.claheTileSize must be positive, got %d", s.CLAHETileSize)
	case s.CloseKernel <= 0:
		return fmt.Errorf("segmentation.closeKernel must be positive, got %d", s.CloseKernel)
	case s.HueLow > s.HueHigh || s.SaturationLow > s.SaturationHigh || s.ValueLow > s.ValueHigh:
		return fmt.Errorf("segmentation HSV band is inverted")
	}

	k := c.Clustering
	switch {
	case k.K < 1:
		return fmt.Errorf("clustering.k must be at least 1, got %d", k.K)
	case k.MaxIterations < 1:
		return fmt.Errorf("clustering.maxIterations must be at least 1, got %d", k.MaxIterations)
	case k.MaxAttempts < 1:
		return fmt.Errorf("clustering.maxAttempts must be at least 1, got %d", k.MaxAttempts)
	}

	switch c.Output.ImageFormat {
	case "png", "webp":
	default:
		return fmt.Errorf("output.imageFormat must be png or webp, got %q", c.Output.ImageFormat)
	}

	return nil
}

// ColorTablePath is the bulk color table location.
func (p Paths) ColorTablePath() string {
	return filepath.Join(p.OutputDir, p.ColorTable)
}

// ShapeTablePath is the bulk shape table location.
func (p Paths) ShapeTablePath() string {
	return filepath.Join(p.OutputDir, p.ShapeTable)
}
