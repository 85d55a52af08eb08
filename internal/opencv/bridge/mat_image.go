// Package bridge moves pixels between OpenCV's BGR Mats and RGB rasters.
package bridge

import (
	"fmt"

	"gocv.io/x/gocv"

	"protonfusion/internal/opencv/safe"
	"protonfusion/internal/raster"
)

// MatToRaster copies a three channel BGR Mat into a new raster.
func MatToRaster(mat *safe.Mat) (*raster.Image, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToRaster"); err != nil {
		return nil, err
	}

	if channels := mat.Channels(); channels != raster.Channels {
		return nil, fmt.Errorf("MatToRaster needs %d channels, got %d", raster.Channels, channels)
	}

	data, err := mat.Bytes()
	if err != nil {
		return nil, err
	}

	img := raster.New(mat.Cols(), mat.Rows())
	if len(data) != len(img.Pix) {
		return nil, fmt.Errorf("Mat data holds %d bytes, expected %d", len(data), len(img.Pix))
	}

	swapRedBlue(img.Pix, data)
	return img, nil
}

// RasterToMat copies img into a new BGR Mat.
func RasterToMat(img *raster.Image, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if img.Empty() {
		return nil, fmt.Errorf("input raster is empty")
	}

	bgr := make([]byte, len(img.Pix))
	swapRedBlue(bgr, img.Pix)

	return safe.FromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, bgr, tracker, tag)
}

// swapRedBlue writes src to dst with the first and third byte of every pixel
// exchanged. It converts in either direction.
func swapRedBlue(dst, src []byte) {
	for i := 0; i+2 < len(src); i += raster.Channels {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
	}
}
