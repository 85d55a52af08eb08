package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"protonfusion/internal/algorithms"
	"protonfusion/internal/config"
	"protonfusion/internal/elements"
	"protonfusion/internal/logger"
	"protonfusion/internal/pipeline"
	"protonfusion/internal/snapshot"
)

const (
	AppName    = "protonfusion"
	AppVersion = "1.0.0"
)

type shutdownHandler interface {
	Shutdown()
}

type shutdownFunc func()

func (f shutdownFunc) Shutdown() { f() }

type Application struct {
	config        *config.Config
	logger        logger.Logger
	table         *elements.Table
	decoder       pipeline.Decoder
	encoder       pipeline.Encoder
	coordinator   *pipeline.Coordinator
	processor     *pipeline.Processor
	store         *snapshot.Store
	clock         func() time.Time
	shutdownables []shutdownHandler
	shutdown      chan struct{}
}

// Output describes one persisted fusion run.
type Output struct {
	Result   *pipeline.Result
	Files    []string
	Snapshot *snapshot.Record
}

type Option func(*Application)

// WithCodec replaces the standard library codecs. release, if set, runs at
// shutdown.
func WithCodec(dec pipeline.Decoder, enc pipeline.Encoder, release func()) Option {
	return func(a *Application) {
		a.decoder = dec
		a.encoder = enc
		if release != nil {
			a.shutdownables = append(a.shutdownables, shutdownFunc(release))
		}
	}
}

// WithClock fixes the time used for salts and snapshot timestamps.
func WithClock(clock func() time.Time) Option {
	return func(a *Application) { a.clock = clock }
}

func NewApplication(cfg *config.Config, log logger.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	a := &Application{
		config:   cfg,
		logger:   log,
		clock:    time.Now,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	log.Info("Application", "starting application", map[string]interface{}{
		"version":  AppVersion,
		"codec":    cfg.Codec.Backend,
		"elements": cfg.Elements.Path,
	})

	table, err := elements.Load(cfg.Elements.Path)
	if err != nil {
		log.Error("ElementTable", err, map[string]interface{}{
			"path": cfg.Elements.Path,
		})
		a.Shutdown(context.Background())
		return nil, err
	}
	a.table = table

	log.Info("ElementTable", "table loaded", map[string]interface{}{
		"elements": table.Len(),
	})

	if err := a.setupCodec(); err != nil {
		a.Shutdown(context.Background())
		return nil, err
	}

	a.coordinator = pipeline.NewCoordinator(table, a.decoder, pipeline.Options{
		FibonacciLength: cfg.Pipeline.FibonacciLength,
		Parallelism:     cfg.Parallelism(),
		Clock:           a.clock,
	}, log)

	manager := algorithms.NewManager(table, cfg.Parallelism())
	if err := manager.SetParameter("standard", "fibonacci_length", cfg.Pipeline.FibonacciLength); err != nil {
		a.Shutdown(context.Background())
		return nil, fmt.Errorf("configure standard transform: %w", err)
	}
	a.processor = pipeline.NewProcessor(manager, log)

	if cfg.Snapshot.Enabled {
		store, err := snapshot.Open(cfg.Snapshot.Path, log, snapshot.WithMkdirAll())
		if err != nil {
			a.Shutdown(context.Background())
			return nil, err
		}
		a.store = store
		a.shutdownables = append(a.shutdownables, shutdownFunc(func() {
			if err := store.Close(); err != nil {
				log.Error("SnapshotStore", err, nil)
			}
		}))
	}

	log.Info("Application", "initialization complete", nil)
	return a, nil
}

func (a *Application) setupCodec() error {
	if a.decoder != nil && a.encoder != nil {
		return nil
	}
	if a.config.Codec.Backend != config.BackendStd {
		return fmt.Errorf("codec backend %q was not provided", a.config.Codec.Backend)
	}

	a.decoder = pipeline.NewLoader(a.logger)
	a.encoder = pipeline.NewSaver(a.logger, a.config.Output.JPEGQuality)
	return nil
}

func (a *Application) Table() *elements.Table {
	return a.table
}

// Snapshots returns the snapshot store, or nil when snapshots are disabled.
func (a *Application) Snapshots() *snapshot.Store {
	return a.store
}

// Run fuses the image at path and persists its outputs.
func (a *Application) Run(ctx context.Context, path string, req pipeline.Request) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return a.RunBytes(ctx, filepath.Base(path), data, req)
}

// RunBytes fuses data, named name, and persists its outputs. Nothing is
// left on disk unless every stage, every write and the snapshot append
// succeed.
func (a *Application) RunBytes(ctx context.Context, name string, data []byte, req pipeline.Request) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := a.coordinator.RunBytes(data, req)
	if err != nil {
		return nil, err
	}

	artifacts, err := a.encodeOutputs(name, result)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := a.writeArtifacts(artifacts)
	if err != nil {
		return nil, err
	}

	out := &Output{Result: result, Files: files}

	if a.store != nil {
		composite := artifacts[len(artifacts)-1]
		rec, err := a.store.Append(ctx, snapshot.Record{
			Timestamp:   a.clock(),
			Emotion:     snapshot.DefaultEmotion,
			Image:       name,
			Descriptor:  result.Descriptor,
			EmberID:     result.Signature.ShortCode,
			Glyph:       result.Signature.GlyphString(),
			Mode:        result.Mode.String(),
			ContentHash: composite.Hash,
		})
		if err != nil {
			removeFiles(files)
			return nil, err
		}
		out.Snapshot = &rec
	}

	a.logger.Info("Application", "run persisted", map[string]interface{}{
		"image":     name,
		"mode":      result.Mode.Display(),
		"files":     len(files),
		"signature": result.Signature.String(),
	})

	return out, nil
}

// encodeOutputs orders artifacts as standard, quantum, intermediates,
// composite.
func (a *Application) encodeOutputs(name string, result *pipeline.Result) ([]*pipeline.Artifact, error) {
	format := pipeline.NormalizeFormat(a.config.Output.Format)
	ext := pipeline.Extension(format)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = "image"
	}

	type output struct {
		file  string
		stage pipeline.Stage
	}
	outputs := []output{
		{"processed_" + stem + ext, pipeline.Stage{Name: "standard", Image: result.Standard}},
		{"quantum_" + stem + ext, pipeline.Stage{Name: "quantum", Image: result.Quantum}},
	}
	for _, st := range result.Intermediates {
		outputs = append(outputs, output{st.Name + "_" + stem + ext, st})
	}
	outputs = append(outputs, output{
		"composite_" + result.Signature.ShortCode + ext,
		pipeline.Stage{Name: "composite", Image: result.Composite},
	})

	artifacts := make([]*pipeline.Artifact, 0, len(outputs))
	for _, o := range outputs {
		art, err := pipeline.Package(a.encoder, o.file, o.stage.Image, format)
		if err != nil {
			a.logger.Error("Application", err, map[string]interface{}{
				"stage": o.stage.Name,
			})
			return nil, err
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// writeArtifacts stages every artifact in the output directory and renames
// them into place only after all of them are written. On error none of the
// artifacts is left behind.
func (a *Application) writeArtifacts(artifacts []*pipeline.Artifact) ([]string, error) {
	dir := a.config.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	staged := make([]string, 0, len(artifacts))
	defer func() { removeFiles(staged) }()

	for _, art := range artifacts {
		tmp, err := stageFile(dir, art)
		if err != nil {
			return nil, err
		}
		staged = append(staged, tmp)
	}

	files := make([]string, 0, len(artifacts))
	for i, art := range artifacts {
		path := filepath.Join(dir, art.Name)
		if err := os.Rename(staged[i], path); err != nil {
			removeFiles(files)
			a.logger.Error("Application", err, map[string]interface{}{
				"file": art.Name,
			})
			return nil, fmt.Errorf("write %s: %w", art.Name, err)
		}
		files = append(files, path)
	}
	return files, nil
}

func stageFile(dir string, art *pipeline.Artifact) (string, error) {
	f, err := os.CreateTemp(dir, ".staging-*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", art.Name, err)
	}

	_, err = f.Write(art.Data)
	if err == nil {
		err = f.Chmod(0o644)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", art.Name, err)
	}
	return f.Name(), nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}

// Transform runs one named transform on the image at path and writes
// "<algorithm>_<name>" to the output directory.
func (a *Application) Transform(ctx context.Context, path, algorithm string) (string, error) {
	if available := a.processor.Algorithms(); !slices.Contains(available, algorithm) {
		return "", fmt.Errorf("unknown algorithm %q (available: %s)", algorithm, strings.Join(available, ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	input, err := pipeline.LoadFromBytes(a.decoder, data, path)
	if err != nil {
		return "", err
	}

	out, err := a.processor.ProcessImageWithContext(ctx, input, algorithm)
	if err != nil {
		return "", err
	}

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	outFormat := pipeline.NormalizeFormat(a.config.Output.Format)

	art, err := pipeline.Package(a.encoder, algorithm+"_"+stem+pipeline.Extension(outFormat), out.Image, outFormat)
	if err != nil {
		return "", err
	}

	files, err := a.writeArtifacts([]*pipeline.Artifact{art})
	if err != nil {
		return "", err
	}
	return files[0], nil
}

// ErrSnapshotsDisabled is returned by RecentSnapshots when snapshot.enabled
// is false.
var ErrSnapshotsDisabled = errors.New("snapshots disabled")

// RecentSnapshots reads up to limit of the newest snapshot records. A
// database that does not exist yet holds no records and is not created.
func RecentSnapshots(ctx context.Context, cfg *config.Config, log logger.Logger, limit int) ([]snapshot.Record, error) {
	if !cfg.Snapshot.Enabled {
		return nil, ErrSnapshotsDisabled
	}
	if _, err := os.Stat(cfg.Snapshot.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	store, err := snapshot.Open(cfg.Snapshot.Path, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Recent(ctx, limit)
}

func (a *Application) initiateShutdown() {
	select {
	case <-a.shutdown:
		return
	default:
		close(a.shutdown)
	}

	a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
		"components": len(a.shutdownables),
	})

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Info("Application", "shutdown sequence completed", nil)
}

// Shutdown releases the snapshot store and codec resources. It is safe to
// call more than once.
func (a *Application) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.initiateShutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
