package compositor

import (
	"errors"
	"fmt"
)

// Kind classifies why a Generate call failed.
type Kind int

const (
	KindDecode Kind = iota + 1
	KindGeometry
	KindAssetMissing
	KindCanvasAllocation
	KindEncode
)

var (
	ErrDecode           = errors.New("photo could not be decoded")
	ErrGeometry         = errors.New("photo cannot be cropped")
	ErrAssetMissing     = errors.New("overlay asset missing")
	ErrCanvasAllocation = errors.New("canvas could not be allocated")
	ErrEncode           = errors.New("frame could not be encoded")
)

func (k Kind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindGeometry:
		return ErrGeometry
	case KindAssetMissing:
		return ErrAssetMissing
	case KindCanvasAllocation:
		return ErrCanvasAllocation
	case KindEncode:
		return ErrEncode
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindGeometry:
		return "geometry"
	case KindAssetMissing:
		return "asset_missing"
	case KindCanvasAllocation:
		return "canvas_allocation"
	case KindEncode:
		return "encode"
	}
	return "unknown"
}

// Error is the failure of a whole Generate call. Index is the frame that
// failed, or -1 when the failure happened before any frame was rendered.
type Error struct {
	Kind  Kind
	Index int
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Index >= 0 {
		msg = fmt.Sprintf("frame %d: %s", e.Index, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrAssetMissing) works.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of a compositor error, or 0 for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
