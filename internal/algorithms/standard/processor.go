package standard

import (
	"fmt"
	"math"

	"protonfusion/internal/algorithms/fibonacci"
	"protonfusion/internal/elements"
	"protonfusion/internal/errs"
	"protonfusion/internal/raster"
)

const (
	// Hydrogen red and helium blue emission bias applied before modulation.
	RedBias  = 40
	BlueBias = 30
)

type Processor struct {
	name        string
	table       *elements.Table
	parallelism raster.Parallelism
}

func NewProcessor(table *elements.Table, parallelism raster.Parallelism) *Processor {
	return &Processor{
		name:        "standard",
		table:       table,
		parallelism: parallelism,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	return map[string]interface{}{
		"fibonacci_length": fibonacci.DefaultLength,
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	if raw, exists := params["fibonacci_length"]; exists {
		n, ok := raw.(int)
		if !ok {
			return fmt.Errorf("fibonacci_length must be an int, got %T", raw)
		}
		if n < 1 || n > fibonacci.MaxLength {
			return fmt.Errorf("fibonacci_length must be between 1 and %d, got: %d", fibonacci.MaxLength, n)
		}
	}
	return nil
}

func (p *Processor) Process(input *raster.Image, params map[string]interface{}) (*raster.Image, error) {
	if err := p.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}
	if p.table == nil {
		return nil, errs.DataUnavailable(p.name, fmt.Errorf("no element table loaded"))
	}

	fib := fibonacci.Generate(p.getIntParam(params, "fibonacci_length"))
	return Transform(input, fib, p.table, p.parallelism)
}

func (p *Processor) getIntParam(params map[string]interface{}, name string) int {
	if v, ok := params[name].(int); ok {
		return v
	}
	return p.GetDefaultParameters()[name].(int)
}

// Transform recolours every pixel from the Fibonacci factor and the element
// assigned to its diagonal index (x+y):
//
//	red   = ((red+40) * atomic_mass) mod 256
//	green = (green * nmr_spin) mod 256
//	blue  = ((blue+30) * fib[(x+y) mod N]) mod 256
//
// Biased channels saturate at 255 before modulation.
func Transform(input *raster.Image, fib []uint64, table *elements.Table, parallelism raster.Parallelism) (*raster.Image, error) {
	if input.Empty() {
		w, h := input.Dims()
		return nil, errs.EmptyImage("standard", w, h)
	}
	if len(fib) == 0 {
		return nil, errs.DataUnavailable("standard", fmt.Errorf("empty fibonacci sequence"))
	}
	if table == nil || table.Len() == 0 {
		return nil, errs.DataUnavailable("standard", fmt.Errorf("empty element table"))
	}

	n := len(fib)
	return parallelism.MapPixels(input, func(x, y int, r, g, b uint8) (uint8, uint8, uint8) {
		factor := fib[(x+y)%n] % 256
		element := table.Get(x + y)

		r = saturatingAdd(r, RedBias)
		b = saturatingAdd(b, BlueBias)

		return modulate(r, element.AtomicMass),
			modulate(g, element.NMRSpin),
			uint8(uint64(b) * factor % 256)
	}), nil
}

func saturatingAdd(v uint8, bias int) uint8 {
	return uint8(min(int(v)+bias, 255))
}

// modulate truncates v*k to an integer and reduces it modulo 256. The
// reduction stays in float64 so products past 2^64 are still exact.
func modulate(v uint8, k float64) uint8 {
	product := float64(v) * k
	if !(product > 0) || math.IsInf(product, 1) {
		return 0
	}
	return uint8(math.Mod(math.Trunc(product), 256))
}
