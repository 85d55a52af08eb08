package pipeline

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"protonfusion/internal/algorithms/blend"
	"protonfusion/internal/algorithms/fibonacci"
	"protonfusion/internal/algorithms/mirror"
	"protonfusion/internal/algorithms/quantum"
	"protonfusion/internal/algorithms/standard"
	"protonfusion/internal/elements"
	"protonfusion/internal/errs"
	"protonfusion/internal/logger"
	"protonfusion/internal/raster"
	"protonfusion/internal/signature"
)

// SignatureLabel is the label every composite is signed with.
const SignatureLabel = "fusion"

type Request struct {
	Mode PerspectiveMode
	// Descriptor is the signature context; empty selects the mode default.
	Descriptor string
	// Salt freshens the short code; empty selects the microtime of the run.
	Salt string
}

// Stage is a named intermediate buffer.
type Stage struct {
	Name  string
	Image *raster.Image
}

type Result struct {
	Mode          PerspectiveMode
	Standard      *raster.Image
	Quantum       *raster.Image
	Composite     *raster.Image
	Intermediates []Stage
	Descriptor    string
	Signature     signature.Signature
	Trace         []State
	Duration      time.Duration
}

type Options struct {
	FibonacciLength int
	Parallelism     raster.Parallelism
	// Clock supplies the time salt when a request has none.
	Clock func() time.Time
}

// Coordinator sequences the fusion stages for one perspective mode. It holds
// no per-run state, so a single Coordinator serves concurrent runs.
type Coordinator struct {
	table       *elements.Table
	fib         []uint64
	parallelism raster.Parallelism
	decoder     Decoder
	clock       func() time.Time
	logger      logger.Logger
}

func NewCoordinator(table *elements.Table, decoder Decoder, opts Options, log logger.Logger) *Coordinator {
	n := opts.FibonacciLength
	if n <= 0 {
		n = fibonacci.DefaultLength
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}

	coord := &Coordinator{
		table:       table,
		fib:         fibonacci.Generate(n),
		parallelism: opts.Parallelism,
		decoder:     decoder,
		clock:       clock,
		logger:      log,
	}

	log.Info("Coordinator", "initialized", map[string]interface{}{
		"fibonacci_length": n,
		"elements":         tableLen(table),
		"workers":          opts.Parallelism.Workers,
	})
	return coord
}

func tableLen(t *elements.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

// RunBytes decodes data and runs the pipeline on the result.
func (c *Coordinator) RunBytes(data []byte, req Request) (*Result, error) {
	m := newMachine(StateIdle)

	if c.decoder == nil {
		return nil, c.fail(m, req, errs.DecodeFailure("decode", fmt.Errorf("no decoder configured")))
	}

	img, format, err := c.decoder.Decode(data)
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.DecodeFailure("decode", err)
		}
		return nil, c.fail(m, req, err)
	}
	if img.Empty() {
		w, h := img.Dims()
		return nil, c.fail(m, req, errs.DecodeFailure("decode", fmt.Errorf("decoder returned a %dx%d image", w, h)))
	}

	c.logger.Debug("Coordinator", "input decoded", map[string]interface{}{
		"format": format,
		"width":  img.Width,
		"height": img.Height,
	})

	if err := m.send(EventDecoded); err != nil {
		return nil, c.fail(m, req, err)
	}
	return c.run(m, img, req)
}

// Run executes the pipeline on an already decoded image.
func (c *Coordinator) Run(img *raster.Image, req Request) (*Result, error) {
	return c.run(newMachine(StateDecoded), img, req)
}

func (c *Coordinator) run(m *machine, img *raster.Image, req Request) (*Result, error) {
	start := time.Now()

	if img.Empty() {
		w, h := img.Dims()
		return nil, c.fail(m, req, errs.EmptyImage("input", w, h))
	}

	result := &Result{Mode: req.Mode}

	// Both transforms only read img.
	var g errgroup.Group
	g.Go(func() error {
		out, err := standard.Transform(img, c.fib, c.table, c.parallelism)
		result.Standard = out
		return err
	})
	g.Go(func() error {
		out, err := quantum.Transform(img, c.parallelism)
		result.Quantum = out
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, c.fail(m, req, err)
	}

	for _, evt := range []Event{EventStandardDone, EventQuantumDone, EventBranch} {
		if err := m.send(evt); err != nil {
			return nil, c.fail(m, req, err)
		}
	}

	composite, intermediates, err := c.composite(req.Mode, result.Standard, result.Quantum)
	if err != nil {
		return nil, c.fail(m, req, err)
	}
	result.Composite = composite
	result.Intermediates = intermediates

	if err := m.send(EventComposited); err != nil {
		return nil, c.fail(m, req, err)
	}

	result.Descriptor = req.Descriptor
	if result.Descriptor == "" {
		result.Descriptor = req.Mode.DefaultDescriptor()
	}
	salt := req.Salt
	if salt == "" {
		salt = signature.MicrotimeSalt(c.clock())
	}
	result.Signature = signature.New(SignatureLabel, result.Descriptor, salt)

	for _, evt := range []Event{EventSigned, EventFinish} {
		if err := m.send(evt); err != nil {
			return nil, c.fail(m, req, err)
		}
	}

	result.Trace = m.Trace()
	result.Duration = time.Since(start)

	c.logger.Info("Coordinator", "fusion completed", map[string]interface{}{
		"mode":            req.Mode.String(),
		"width":           img.Width,
		"height":          img.Height,
		"intermediates":   len(intermediates),
		"ember_id":        result.Signature.ShortCode,
		"glyph":           result.Signature.GlyphString(),
		"processing_time": result.Duration,
	})

	return result, nil
}

// composite runs the blend sequence for mode.
//
//	direct: fusion(standard, quantum, 50)
//	mirror: fusion(standard, mirror(standard), 70)
//	mutual: fusion(standard, mutual(standard, mirror(standard)), 50)
func (c *Coordinator) composite(mode PerspectiveMode, std, qnt *raster.Image) (*raster.Image, []Stage, error) {
	switch mode {
	case ModeMirror:
		mirrored, err := mirror.Transform(std, c.parallelism)
		if err != nil {
			return nil, nil, err
		}
		stages := []Stage{{Name: "mirror", Image: mirrored}}

		out, err := blend.Fusion(std, mirrored, blend.MutualRatio, c.parallelism)
		return out, stages, err

	case ModeMutual:
		mirrored, err := mirror.Transform(std, c.parallelism)
		if err != nil {
			return nil, nil, err
		}
		stages := []Stage{{Name: "mirror", Image: mirrored}}

		mutual, err := blend.Mutual(std, mirrored, c.parallelism)
		if err != nil {
			return nil, stages, err
		}
		stages = append(stages, Stage{Name: "mutual", Image: mutual})

		out, err := blend.Fusion(std, mutual, blend.FusionRatio, c.parallelism)
		return out, stages, err

	default:
		out, err := blend.Fusion(std, qnt, blend.FusionRatio, c.parallelism)
		return out, nil, err
	}
}

func (c *Coordinator) fail(m *machine, req Request, err error) error {
	from := m.current
	if !m.terminal() {
		_ = m.send(EventFail)
	}

	c.logger.Error("Coordinator", err, map[string]interface{}{
		"mode":       req.Mode.String(),
		"state":      from.String(),
		"error_kind": errs.KindOf(err).String(),
		"stage":      errs.StageOf(err),
	})

	return &RunError{State: from, Trace: m.Trace(), Err: err}
}

// RunError reports the state a run failed in. The component error stays in
// the chain for errors.Is and errs.KindOf.
type RunError struct {
	State State
	Trace []State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("fusion failed in %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
