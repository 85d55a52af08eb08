package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protonfusion/internal/errs"
	"protonfusion/internal/raster"
)

func noisy(w, h int, seed uint8) *raster.Image {
	img := raster.New(w, h)
	for i := range img.Pix {
		img.Pix[i] = uint8(i)*seed + seed
	}
	return img
}

func TestOverlayBoundaries(t *testing.T) {
	a := noisy(9, 5, 3)
	b := noisy(9, 5, 11)
	par := raster.Parallelism{}

	zero, err := Overlay(a, b, 0, par)
	require.NoError(t, err)
	assert.True(t, zero.Equal(a))

	full, err := Overlay(a, b, 100, par)
	require.NoError(t, err)
	assert.True(t, full.Equal(b))

	for _, alpha := range []int{0, 1, 33, 50, 70, 99, 100} {
		same, err := Overlay(a, a, alpha, par)
		require.NoError(t, err)
		assert.True(t, same.Equal(a), "alpha %d", alpha)
	}
}

func TestOverlayRounding(t *testing.T) {
	base := raster.Filled(1, 1, 0, 255, 10)
	top := raster.Filled(1, 1, 255, 0, 11)

	out, err := Overlay(base, top, 50, raster.Parallelism{})
	require.NoError(t, err)
	r, g, b := out.At(0, 0)
	// 127.5 rounds to 128; 10.5 rounds to 11.
	assert.Equal(t, [3]uint8{128, 128, 11}, [3]uint8{r, g, b})

	out, err = Mutual(base, top, raster.Parallelism{})
	require.NoError(t, err)
	r, g, b = out.At(0, 0)
	// 0.7*255=178.5 -> 179; 0.3*255=76.5 -> 77; 3+7.7=10.7 -> 11
	assert.Equal(t, [3]uint8{179, 77, 11}, [3]uint8{r, g, b})
}

func TestOverlayDimensionMismatch(t *testing.T) {
	a := raster.New(4, 4)
	b := raster.New(4, 5)

	for _, fn := range []func() (*raster.Image, error){
		func() (*raster.Image, error) { return Overlay(a, b, 50, raster.Parallelism{}) },
		func() (*raster.Image, error) { return Mutual(a, b, raster.Parallelism{}) },
		func() (*raster.Image, error) { return Fusion(b, a, 0, raster.Parallelism{}) },
	} {
		out, err := fn()
		assert.Nil(t, out)
		assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
	}
}

func TestOverlayRejectsBadInputs(t *testing.T) {
	_, err := Overlay(raster.New(0, 0), raster.New(0, 0), 50, raster.Parallelism{})
	assert.ErrorIs(t, err, errs.ErrEmptyImage)

	_, err = Overlay(raster.New(1, 1), nil, 50, raster.Parallelism{})
	assert.ErrorIs(t, err, errs.ErrDataUnavailable)

	_, err = Overlay(raster.New(1, 1), raster.New(1, 1), 101, raster.Parallelism{})
	assert.Error(t, err)
	assert.Equal(t, errs.KindUnknown, errs.KindOf(err))
}

func TestOverlayStageNames(t *testing.T) {
	_, err := Fusion(raster.New(1, 2), raster.New(2, 1), 50, raster.Parallelism{})
	assert.Equal(t, "fusion", errs.StageOf(err))

	_, err = Mutual(raster.New(1, 2), raster.New(2, 1), raster.Parallelism{})
	assert.Equal(t, "mutual", errs.StageOf(err))
}
