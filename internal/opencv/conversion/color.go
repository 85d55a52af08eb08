package conversion

import (
	"fmt"

	"gocv.io/x/gocv"

	"protonfusion/internal/opencv/safe"
)

func CvtColorSafe(src *safe.Mat, dst *safe.Mat, code gocv.ColorConversionCode) error {
	if err := safe.ValidateColorConversion(src, code); err != nil {
		return fmt.Errorf("color conversion validation failed: %w", err)
	}

	if err := safe.ValidateMatForOperation(dst, "CvtColor destination"); err != nil {
		return fmt.Errorf("destination mat validation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	gocv.CvtColor(srcMat, &dstMat, code)

	return nil
}

// ConvertToBGR returns a three channel copy of src. Gray and BGRA inputs are
// converted; a BGR input is copied as is.
func ConvertToBGR(src *safe.Mat, tracker safe.MemoryTracker) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToBGR"); err != nil {
		return nil, err
	}

	var code gocv.ColorConversionCode
	switch channels := src.Channels(); channels {
	case 3:
		data, err := src.Bytes()
		if err != nil {
			return nil, err
		}
		return safe.FromBytes(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3, data, tracker, src.Tag()+"_bgr")
	case 1:
		code = gocv.ColorGrayToBGR
	case 4:
		code = gocv.ColorBGRAToBGR
	default:
		return nil, fmt.Errorf("unsupported channel count for BGR conversion: %d", channels)
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3, tracker, src.Tag()+"_bgr")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(src, dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}
