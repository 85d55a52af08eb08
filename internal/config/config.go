package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"protonfusion/internal/algorithms/fibonacci"
	"protonfusion/internal/raster"
)

// Config holds all protonfusion configuration.
type Config struct {
	Elements ElementsConfig `yaml:"elements"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	Codec    CodecConfig    `yaml:"codec"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ElementsConfig struct {
	// Path to a JSON or YAML element table.
	Path string `yaml:"path"`
}

type PipelineConfig struct {
	FibonacciLength int `yaml:"fibonacci_length"`
	// Workers bounds the row workers of one transform; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	// ParallelThreshold is the pixel count below which loops stay sequential.
	ParallelThreshold int `yaml:"parallel_threshold"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"` // jpeg, png
	JPEGQuality int    `yaml:"jpeg_quality"`
}

type CodecConfig struct {
	Backend string `yaml:"backend"` // std, opencv
}

type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

const (
	BackendStd    = "std"
	BackendOpenCV = "opencv"
)

func DefaultConfig() *Config {
	return &Config{
		Elements: ElementsConfig{
			Path: "data/full_periodic_table_updated.json",
		},
		Pipeline: PipelineConfig{
			FibonacciLength:   fibonacci.DefaultLength,
			Workers:           runtime.GOMAXPROCS(0),
			ParallelThreshold: raster.MinParallelPixels,
		},
		Output: OutputConfig{
			Dir:         "uploads",
			Format:      "jpeg",
			JPEGQuality: 95,
		},
		Codec: CodecConfig{
			Backend: BackendStd,
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Path:    "signal_snapshots.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PF_ELEMENTS_PATH"); v != "" {
		c.Elements.Path = v
	}
	if v := os.Getenv("PF_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("PF_CODEC"); v != "" {
		c.Codec.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PF_SNAPSHOT_PATH"); v != "" {
		c.Snapshot.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Parallelism converts the pipeline section into row-worker settings.
func (c *Config) Parallelism() raster.Parallelism {
	return raster.Parallelism{
		Workers:   c.Pipeline.Workers,
		MinPixels: c.Pipeline.ParallelThreshold,
	}
}

func (c *Config) Validate() error {
	if c.Elements.Path == "" {
		return fmt.Errorf("elements.path is required")
	}
	if c.Pipeline.FibonacciLength < 1 || c.Pipeline.FibonacciLength > fibonacci.MaxLength {
		return fmt.Errorf("pipeline.fibonacci_length must be in 1..%d, got %d", fibonacci.MaxLength, c.Pipeline.FibonacciLength)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative")
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be in 1..100, got %d", c.Output.JPEGQuality)
	}
	switch strings.ToLower(c.Output.Format) {
	case "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("unsupported output.format: %s", c.Output.Format)
	}
	switch c.Codec.Backend {
	case BackendStd, BackendOpenCV:
	default:
		return fmt.Errorf("unsupported codec.backend: %s", c.Codec.Backend)
	}
	if c.Snapshot.Enabled && c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path is required when snapshots are enabled")
	}
	return nil
}
