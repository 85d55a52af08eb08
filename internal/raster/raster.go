// Package raster holds the RGB pixel buffer every fusion stage reads and writes.
//
// Pixels are stored row-major, three bytes per pixel (red, green, blue). There is
// no per-pixel alpha; blending opacity is a separate parameter of the blend stage.
// Stages never mutate an input buffer: each one allocates and returns a new Image.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of bytes per pixel.
const Channels = 3

type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed (black) image. Negative dimensions are treated as zero.
func New(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Filled allocates an image with every pixel set to the given colour.
func Filled(width, height int, r, g, b uint8) *Image {
	img := New(width, height)
	for i := 0; i < len(img.Pix); i += Channels {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
	}
	return img
}

func (img *Image) Empty() bool {
	return img == nil || img.Width <= 0 || img.Height <= 0
}

// Dims returns width and height; a nil image reports 0x0.
func (img *Image) Dims() (width, height int) {
	if img == nil {
		return 0, 0
	}
	return img.Width, img.Height
}

func (img *Image) Stride() int {
	return img.Width * Channels
}

func (img *Image) offset(x, y int) int {
	return y*img.Stride() + x*Channels
}

func (img *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < img.Width && y < img.Height
}

// At returns the channels at (x, y). Out of range coordinates read as black.
func (img *Image) At(x, y int) (r, g, b uint8) {
	if !img.In(x, y) {
		return 0, 0, 0
	}
	o := img.offset(x, y)
	return img.Pix[o], img.Pix[o+1], img.Pix[o+2]
}

// Set writes the channels at (x, y). Out of range writes are ignored.
func (img *Image) Set(x, y int, r, g, b uint8) {
	if !img.In(x, y) {
		return
	}
	o := img.offset(x, y)
	img.Pix[o] = r
	img.Pix[o+1] = g
	img.Pix[o+2] = b
}

// Row returns the bytes of row y, aliasing the image buffer.
func (img *Image) Row(y int) []uint8 {
	start := y * img.Stride()
	return img.Pix[start : start+img.Stride()]
}

func (img *Image) SameSize(other *Image) bool {
	return img.Width == other.Width && img.Height == other.Height
}

func (img *Image) Clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height, Pix: make([]uint8, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

func (img *Image) Equal(other *Image) bool {
	if img == nil || other == nil {
		return img == other
	}
	return img.SameSize(other) && bytes.Equal(img.Pix, other.Pix)
}

func (img *Image) String() string {
	return fmt.Sprintf("raster.Image(%dx%d)", img.Width, img.Height)
}

// FromImage converts any decoded image into an RGB buffer. Alpha is dropped
// after the standard library's premultiplied conversion.
func FromImage(src image.Image) *Image {
	if src == nil {
		return New(0, 0)
	}

	bounds := src.Bounds()
	img := New(bounds.Dx(), bounds.Dy())

	switch typed := src.(type) {
	case *image.RGBA:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				c := typed.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
				img.Set(x, y, c.R, c.G, c.B)
			}
		}
	case *image.NRGBA:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				c := typed.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
				img.Set(x, y, c.R, c.G, c.B)
			}
		}
	case *image.Gray:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				v := typed.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
				img.Set(x, y, v, v, v)
			}
		}
	default:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				img.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}

	return img
}

// ToRGBA converts the buffer into an opaque *image.RGBA for encoding.
func (img *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.At(x, y)
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}
