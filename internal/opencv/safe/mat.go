// Package safe wraps gocv.Mat with validity and allocation tracking so that a
// native buffer is closed exactly once.
package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// MaxDimension bounds either side of a Mat created here.
const MaxDimension = 32768

type MemoryTracker interface {
	TrackAllocation(id uint64, size int64, tag string)
	TrackDeallocation(id uint64, tag string)
}

type Mat struct {
	mat        gocv.Mat
	isValid    int32
	mu         sync.RWMutex
	id         uint64
	size       int64
	memTracker MemoryTracker
	tag        string
}

var nextMatID uint64

func NewMatWithTracker(rows, cols int, matType gocv.MatType, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateDimensions(rows, cols); err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat, memTracker, tag), nil
}

// FromBytes builds an 8-bit Mat over a copy of data, which must hold exactly
// rows*cols*channels bytes.
func FromBytes(rows, cols int, matType gocv.MatType, data []byte, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateDimensions(rows, cols); err != nil {
		return nil, err
	}
	if want := rows * cols * BytesPerPixel(matType); len(data) != want {
		return nil, fmt.Errorf("buffer holds %d bytes, %dx%d Mat needs %d", len(data), cols, rows, want)
	}

	mat, err := gocv.NewMatFromBytes(rows, cols, matType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from bytes: %w", err)
	}

	// NewMatFromBytes shares data; the clone owns its own copy.
	owned := mat.Clone()
	mat.Close()
	if owned.Empty() {
		owned.Close()
		return nil, fmt.Errorf("failed to copy Mat data")
	}

	return wrap(owned, memTracker, tag), nil
}

// Adopt takes ownership of a Mat produced by gocv, such as an IMDecode result.
func Adopt(mat gocv.Mat, memTracker MemoryTracker, tag string) (*Mat, error) {
	if err := validateSourceMat(mat); err != nil {
		mat.Close()
		return nil, err
	}
	return wrap(mat, memTracker, tag), nil
}

func wrap(mat gocv.Mat, memTracker MemoryTracker, tag string) *Mat {
	sm := &Mat{
		mat:        mat,
		isValid:    1,
		id:         atomic.AddUint64(&nextMatID, 1),
		size:       int64(mat.Rows() * mat.Cols() * BytesPerPixel(mat.Type())),
		memTracker: memTracker,
		tag:        tag,
	}

	if memTracker != nil {
		memTracker.TrackAllocation(sm.id, sm.size, tag)
	}

	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return true
	}
	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

// Bytes copies the pixel data out in row-major channel order.
func (sm *Mat) Bytes() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() || sm.mat.Empty() {
		return nil, fmt.Errorf("cannot read invalid Mat")
	}

	if sm.mat.IsContinuous() {
		return sm.mat.ToBytes(), nil
	}

	dense := sm.mat.Clone()
	defer dense.Close()
	return dense.ToBytes(), nil
}

func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat
}

func (sm *Mat) Tag() string {
	return sm.tag
}

func (sm *Mat) Close() {
	if !atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.memTracker != nil {
		sm.memTracker.TrackDeallocation(sm.id, sm.tag)
	}

	sm.mat.Close()
	runtime.SetFinalizer(sm, nil)
	sm.memTracker = nil
}

func (sm *Mat) finalize() {
	if sm.IsValid() {
		sm.Close()
	}
}

func validateDimensions(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	if rows > MaxDimension || cols > MaxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size", cols, rows)
	}

	return nil
}

func validateSourceMat(srcMat gocv.Mat) error {
	if srcMat.Empty() {
		return fmt.Errorf("source Mat is empty")
	}

	if srcMat.Rows() <= 0 || srcMat.Cols() <= 0 {
		return fmt.Errorf("source Mat has invalid dimensions: %dx%d", srcMat.Cols(), srcMat.Rows())
	}

	return nil
}

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	return nil
}

func ValidateColorConversion(src *Mat, code gocv.ColorConversionCode) error {
	if err := ValidateMatForOperation(src, "CvtColor"); err != nil {
		return err
	}

	channels := src.Channels()

	switch code {
	case gocv.ColorGrayToBGR:
		if channels != 1 {
			return fmt.Errorf("Gray to BGR conversion requires 1 channel, got %d", channels)
		}
	case gocv.ColorBGRAToBGR:
		if channels != 4 {
			return fmt.Errorf("BGRA to BGR conversion requires 4 channels, got %d", channels)
		}
	case gocv.ColorBGRToRGB:
		if channels != 3 {
			return fmt.Errorf("BGR/RGB conversion requires 3 channels, got %d", channels)
		}
	}

	return nil
}

// BytesPerPixel covers the 8-bit types the codec produces.
func BytesPerPixel(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16UC1:
		return 2
	case gocv.MatTypeCV16UC3:
		return 6
	default:
		return 1
	}
}
