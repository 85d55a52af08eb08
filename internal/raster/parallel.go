package raster

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// MinParallelPixels is the pixel count below which rows are processed on
	// the calling goroutine.
	MinParallelPixels = 16384

	// RowBatch is the number of rows handed to a worker at once.
	RowBatch = 8
)

// Parallelism controls how per-pixel loops are split across goroutines.
// The zero value uses GOMAXPROCS workers and the default threshold.
type Parallelism struct {
	Workers   int
	MinPixels int
}

func (p Parallelism) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (p Parallelism) minPixels() int {
	if p.MinPixels > 0 {
		return p.MinPixels
	}
	return MinParallelPixels
}

// Rows calls fn once for every row index in [0, height). Each pixel result in
// a fusion stage depends only on its own coordinates and channels, so rows may
// run in any order.
func (p Parallelism) Rows(width, height int, fn func(y int)) {
	workers := p.workers()
	if workers <= 1 || width*height < p.minPixels() {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for start := 0; start < height; start += RowBatch {
		start := start
		end := min(start+RowBatch, height)
		g.Go(func() error {
			for y := start; y < end; y++ {
				fn(y)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// MapPixels allocates a new image the size of src and fills it by applying fn
// to every source pixel.
func (p Parallelism) MapPixels(src *Image, fn func(x, y int, r, g, b uint8) (uint8, uint8, uint8)) *Image {
	out := New(src.Width, src.Height)
	p.Rows(src.Width, src.Height, func(y int) {
		in := src.Row(y)
		row := out.Row(y)
		for x := 0; x < src.Width; x++ {
			o := x * Channels
			row[o], row[o+1], row[o+2] = fn(x, y, in[o], in[o+1], in[o+2])
		}
	})
	return out
}
