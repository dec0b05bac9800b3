package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// ErrExhausted is returned by a Replay engine that has no frames left.
var ErrExhausted = errors.New("no recorded frames left")

// FrameMeta describes how a sensor frame is displayed.
type FrameMeta struct {
	// Rotation is the clockwise rotation in degrees that makes the frame
	// upright: 0, 90, 180 or 270.
	Rotation int `json:"rotation"`

	// Flipped reports whether the preview is mirrored (front camera).
	Flipped bool `json:"flipped"`
}

// Engine recognizes the text lines in one frame.
//
// Implementations return either a complete Frame or an error, never a
// partial Frame. Errors are *EngineError values.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, meta FrameMeta) (recognition.Frame, error)
}

// EngineError is a recognition failure for a single frame.
type EngineError struct {
	// Op is the engine step that failed, e.g. "set_image".
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("ocr %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func engineError(op string, err error) error {
	return &EngineError{Op: op, Err: err}
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, img image.Image, meta FrameMeta) (recognition.Frame, error)

func (f EngineFunc) Recognize(ctx context.Context, img image.Image, meta FrameMeta) (recognition.Frame, error) {
	return f(ctx, img, meta)
}
