package mirror

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
		name:        "mirror",
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

// Transform flips the image horizontally: output column x samples input
// column width-1-x. Sampling is nearest-neighbour over the reversed span, so
// the edge columns swap exactly and no blank column appears.
func Transform(input *raster.Image, parallelism raster.Parallelism) (*raster.Image, error) {
	if input.Empty() {
		w, h := input.Dims()
		return nil, errs.EmptyImage("mirror", w, h)
	}

	out := raster.New(input.Width, input.Height)
	last := input.Width - 1

	parallelism.Rows(input.Width, input.Height, func(y int) {
		src := input.Row(y)
		dst := out.Row(y)
		for x := 0; x <= last; x++ {
			s := (last - x) * raster.Channels
			d := x * raster.Channels
			copy(dst[d:d+raster.Channels], src[s:s+raster.Channels])
		}
	})

	return out, nil
}
