package quantum

import (
	"protonfusion/internal/errs"
	"protonfusion/internal/raster"
)

type Processor struct {
	name        string
	parallelism raster.Parallelism
}

func NewProcessor(parallelism raster.Parallelism) *Processor {
	return &Processor{
		name:        "quantum",
		parallelism: parallelism,
	}
}

func (p *Processor) GetName() string {
	return p.name
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	return nil
}

func (p *Processor) Process(input *raster.Image, params map[string]interface{}) (*raster.Image, error) {
	return Transform(input, p.parallelism)
}

// Transform applies the resonance cascade to every pixel. Pairwise sums use
// the original channels; each XOR then feeds on the value derived just before it.
func Transform(input *raster.Image, parallelism raster.Parallelism) (*raster.Image, error) {
	if input.Empty() {
		w, h := input.Dims()
		return nil, errs.EmptyImage("quantum", w, h)
	}
	return parallelism.MapPixels(input, func(_, _ int, r, g, b uint8) (uint8, uint8, uint8) {
		return Resonate(r, g, b)
	}), nil
}

// Resonate is the per-pixel cascade. uint8 addition wraps, which is the
// modulo 256 the sums require.
func Resonate(r, g, b uint8) (uint8, uint8, uint8) {
	r1 := r + g
	g1 := g + b
	b1 := b + r

	r2 := r1 ^ b1
	g2 := g1 ^ r2
	b2 := b1 ^ g2
	return r2, g2, b2
}
