package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"protonfusion/internal/logger"
	"protonfusion/internal/raster"
)

const DefaultJPEGQuality = 95

// Encoder turns a raster into bytes of the given format.
type Encoder interface {
	Encode(img *raster.Image, format string) ([]byte, error)
}

// Artifact is an encoded output ready to persist.
type Artifact struct {
	Name   string
	Format string
	Data   []byte
	Hash   string
}

type Saver struct {
	logger  logger.Logger
	quality int
}

func NewSaver(log logger.Logger, quality int) *Saver {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Saver{logger: log, quality: quality}
}

// NormalizeFormat maps format aliases onto the encoders the saver has.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg":
		return "jpeg"
	default:
		return "png"
	}
}

// Extension returns the file extension for a normalised format.
func Extension(format string) string {
	if NormalizeFormat(format) == "jpeg" {
		return ".jpg"
	}
	return ".png"
}

func (s *Saver) SaveToWriter(writer io.Writer, img *raster.Image, format string) error {
	if img == nil || img.Empty() {
		return fmt.Errorf("no image data to save")
	}

	saveFormat := NormalizeFormat(format)
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "jpg", "jpeg", "png":
	default:
		s.logger.Warning("ImageSaver", "format not supported, using PNG", map[string]interface{}{
			"requested_format": strings.ToUpper(format),
		})
	}

	var err error
	switch saveFormat {
	case "jpeg":
		err = jpeg.Encode(writer, img.ToRGBA(), &jpeg.Options{Quality: s.quality})
	default:
		err = png.Encode(writer, img.ToRGBA())
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": saveFormat,
		})
		return err
	}

	return nil
}

func (s *Saver) Encode(img *raster.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.SaveToWriter(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentHash is the hex SHA-256 of an encoded buffer.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Package encodes img and attaches its content hash.
func Package(enc Encoder, name string, img *raster.Image, format string) (*Artifact, error) {
	data, err := enc.Encode(img, format)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return &Artifact{
		Name:   name,
		Format: NormalizeFormat(format),
		Data:   data,
		Hash:   ContentHash(data),
	}, nil
}
