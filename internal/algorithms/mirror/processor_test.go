package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protonfusion/internal/errs"
	"protonfusion/internal/raster"
)

func gradient(w, h int) *raster.Image {
	img := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, uint8(x), uint8(y), uint8(x*y))
		}
	}
	return img
}

func TestTransformFlipsColumns(t *testing.T) {
	src := gradient(5, 3)
	out, err := Transform(src, raster.Parallelism{})
	require.NoError(t, err)

	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			wr, wg, wb := src.At(4-x, y)
			r, g, b := out.At(x, y)
			assert.Equal(t, [3]uint8{wr, wg, wb}, [3]uint8{r, g, b}, "(%d,%d)", x, y)
		}
	}
}

func TestTransformIsAnInvolution(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {1, 7}, {2, 2}, {7, 3}, {160, 130}} {
		src := gradient(size[0], size[1])
		p := NewProcessor(raster.Parallelism{Workers: 3, MinPixels: 1})

		once, err := p.Process(src, nil)
		require.NoError(t, err)
		twice, err := p.Process(once, nil)
		require.NoError(t, err)

		assert.True(t, src.Equal(twice), "size %v", size)
	}
}

func TestTransformRejectsEmpty(t *testing.T) {
	_, err := Transform(raster.New(0, 0), raster.Parallelism{})
	assert.ErrorIs(t, err, errs.ErrEmptyImage)

	_, err = Transform(raster.New(4, 0), raster.Parallelism{})
	assert.ErrorIs(t, err, errs.ErrEmptyImage)

	_, err = Transform(nil, raster.Parallelism{})
	assert.ErrorIs(t, err, errs.ErrEmptyImage)
}
