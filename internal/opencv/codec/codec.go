// Package codec decodes and encodes images through OpenCV's imgcodecs. It is
// the alternative to the standard library codecs in the pipeline package.
package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"gocv.io/x/gocv"

	"protonfusion/internal/errs"
	"protonfusion/internal/logger"
	"protonfusion/internal/opencv/bridge"
	"protonfusion/internal/opencv/conversion"
	"protonfusion/internal/opencv/memory"
	"protonfusion/internal/opencv/safe"
	"protonfusion/internal/pipeline"
	"protonfusion/internal/raster"
)

type Codec struct {
	memory  *memory.Manager
	logger  logger.Logger
	quality int
}

func New(mem *memory.Manager, log logger.Logger, quality int) *Codec {
	if log == nil {
		log = logger.NewNop()
	}
	if mem == nil {
		mem = memory.NewManager(log, 0)
	}
	if quality < 1 || quality > 100 {
		quality = pipeline.DefaultJPEGQuality
	}
	return &Codec{memory: mem, logger: log, quality: quality}
}

// Decode reads data with IMDecode. Gray and alpha inputs are converted to BGR
// before the copy into a raster.
func (c *Codec) Decode(data []byte) (*raster.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errs.DecodeFailure("decode", fmt.Errorf("no image data"))
	}

	raw, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, "", errs.DecodeFailure("decode", err)
	}

	decoded, err := safe.Adopt(raw, c.memory, "decoded")
	if err != nil {
		return nil, "", errs.DecodeFailure("decode", err)
	}
	defer c.memory.ReleaseMat(decoded)

	bgr, err := conversion.ConvertToBGR(decoded, c.memory)
	if err != nil {
		return nil, "", errs.DecodeFailure("decode", err)
	}
	defer c.memory.ReleaseMat(bgr)

	img, err := bridge.MatToRaster(bgr)
	if err != nil {
		return nil, "", errs.DecodeFailure("decode", err)
	}

	format := sniffFormat(data)
	c.logger.Debug("OpenCVCodec", "image decoded", map[string]interface{}{
		"width":    img.Width,
		"height":   img.Height,
		"channels": decoded.Channels(),
		"format":   format,
	})

	return img, format, nil
}

func (c *Codec) Encode(img *raster.Image, format string) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("no image data to encode")
	}
	if err := c.memory.Reserve(int64(len(img.Pix))); err != nil {
		return nil, err
	}

	mat, err := bridge.RasterToMat(img, c.memory, "encode")
	if err != nil {
		return nil, err
	}
	defer c.memory.ReleaseMat(mat)

	var buf *gocv.NativeByteBuffer
	switch pipeline.NormalizeFormat(format) {
	case "jpeg":
		buf, err = gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat.GetMat(), []int{int(gocv.IMWriteJpegQuality), c.quality})
	default:
		buf, err = gocv.IMEncode(gocv.PNGFileExt, mat.GetMat())
	}
	if err != nil {
		c.logger.Error("OpenCVCodec", err, map[string]interface{}{
			"format": format,
		})
		return nil, fmt.Errorf("imencode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// sniffFormat names the container from its header only.
func sniffFormat(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "unknown"
	}
	return format
}
