// Package errs defines the failure kinds surfaced by the fusion pipeline.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindDataUnavailable
	KindDimensionMismatch
	KindEmptyImage
	KindDecodeFailure
)

func (k Kind) String() string {
	switch k {
	case KindDataUnavailable:
		return "DataUnavailable"
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindEmptyImage:
		return "EmptyImage"
	case KindDecodeFailure:
		return "DecodeFailure"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrDataUnavailable   = &Error{Kind: KindDataUnavailable}
	ErrDimensionMismatch = &Error{Kind: KindDimensionMismatch}
	ErrEmptyImage        = &Error{Kind: KindEmptyImage}
	ErrDecodeFailure     = &Error{Kind: KindDecodeFailure}
)

// Error carries the stage that failed and the dimensions involved.
type Error struct {
	Kind        Kind
	Stage       string
	Width       int
	Height      int
	OtherWidth  int
	OtherHeight int
	Err         error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}

	switch e.Kind {
	case KindDimensionMismatch:
		msg += fmt.Sprintf(" (%dx%d vs %dx%d)", e.Width, e.Height, e.OtherWidth, e.OtherHeight)
	case KindEmptyImage:
		msg += fmt.Sprintf(" (%dx%d)", e.Width, e.Height)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func DataUnavailable(stage string, err error) *Error {
	return &Error{Kind: KindDataUnavailable, Stage: stage, Err: err}
}

func DecodeFailure(stage string, err error) *Error {
	return &Error{Kind: KindDecodeFailure, Stage: stage, Err: err}
}

func EmptyImage(stage string, width, height int) *Error {
	return &Error{Kind: KindEmptyImage, Stage: stage, Width: width, Height: height}
}

func DimensionMismatch(stage string, width, height, otherWidth, otherHeight int) *Error {
	return &Error{
		Kind:        KindDimensionMismatch,
		Stage:       stage,
		Width:       width,
		Height:      height,
		OtherWidth:  otherWidth,
		OtherHeight: otherHeight,
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StageOf returns the stage recorded by the first *Error in err's chain.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
