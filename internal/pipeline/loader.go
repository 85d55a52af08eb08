package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"protonfusion/internal/errs"
	"protonfusion/internal/logger"
	"protonfusion/internal/raster"
)

// Decoder turns encoded bytes into a raster. The returned string names the
// detected format.
type Decoder interface {
	Decode(data []byte) (*raster.Image, string, error)
}

type ImageData struct {
	Image  *raster.Image
	Width  int
	Height int
	Format string
}

// Loader decodes with the standard library codecs plus golang.org/x/image.
type Loader struct {
	logger logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{logger: log}
}

func (l *Loader) Decode(data []byte) (*raster.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errs.DecodeFailure("decode", fmt.Errorf("no image data"))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		l.logger.Error("ImageLoader", err, map[string]interface{}{
			"bytes": len(data),
		})
		return nil, "", errs.DecodeFailure("decode", err)
	}

	out := raster.FromImage(img)
	l.logger.Debug("ImageLoader", "image decoded", map[string]interface{}{
		"width":  out.Width,
		"height": out.Height,
		"format": format,
	})
	return out, format, nil
}

// LoadFromBytes decodes data with dec; nameHint (a file name or extension)
// only refines the reported format.
func LoadFromBytes(dec Decoder, data []byte, nameHint string) (*ImageData, error) {
	img, detected, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	if img.Empty() {
		return nil, errs.DecodeFailure("decode", fmt.Errorf("decoder returned no image"))
	}

	return &ImageData{
		Image:  img,
		Width:  img.Width,
		Height: img.Height,
		Format: DetermineFormat(filepath.Ext(nameHint), detected),
	}, nil
}

func DetermineFormat(extension, detected string) string {
	switch strings.ToLower(extension) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		if detected != "" {
			return detected
		}
		return "unknown"
	}
}
