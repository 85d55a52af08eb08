// Package blend composites two equally sized images at a fixed opacity.
package blend

import (
	"fmt"

	"protonfusion/internal/errs"
	"protonfusion/internal/raster"
)

const (
	// MutualRatio is the opacity of a mirror laid over its source.
	MutualRatio = 70
	// FusionRatio is the opacity of the second image in a bridge fusion.
	FusionRatio = 50
)

// Overlay returns base*(1-alpha/100) + overlay*(alpha/100) per channel,
// rounded half up. Sizes are checked before any blending.
func Overlay(base, overlay *raster.Image, alpha int, parallelism raster.Parallelism) (*raster.Image, error) {
	return overlayStage("blend", base, overlay, alpha, parallelism)
}

func overlayStage(stage string, base, overlay *raster.Image, alpha int, parallelism raster.Parallelism) (*raster.Image, error) {
	if base == nil || overlay == nil {
		return nil, errs.DataUnavailable(stage, fmt.Errorf("missing input image"))
	}
	if !base.SameSize(overlay) {
		return nil, errs.DimensionMismatch(stage, base.Width, base.Height, overlay.Width, overlay.Height)
	}
	if base.Empty() {
		return nil, errs.EmptyImage(stage, base.Width, base.Height)
	}
	if alpha < 0 || alpha > 100 {
		return nil, fmt.Errorf("%s: ratio %d outside [0,100]", stage, alpha)
	}

	keep := 100 - alpha
	return parallelism.MapPixels(base, func(x, y int, r, g, b uint8) (uint8, uint8, uint8) {
		or, og, ob := overlay.At(x, y)
		return mix(r, or, keep, alpha), mix(g, og, keep, alpha), mix(b, ob, keep, alpha)
	}), nil
}

func mix(a, b uint8, keep, alpha int) uint8 {
	return uint8((int(a)*keep + int(b)*alpha + 50) / 100)
}

// Mutual lays an image's mirror over it at MutualRatio.
func Mutual(base, mirrored *raster.Image, parallelism raster.Parallelism) (*raster.Image, error) {
	return overlayStage("mutual", base, mirrored, MutualRatio, parallelism)
}

// Fusion produces a bridge fusion composite at the given ratio.
func Fusion(base, overlay *raster.Image, alpha int, parallelism raster.Parallelism) (*raster.Image, error) {
	return overlayStage("fusion", base, overlay, alpha, parallelism)
}
