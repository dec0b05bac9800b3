package overlay

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// ErrZeroDimension is returned when a source or surface dimension is not positive.
var ErrZeroDimension = errors.New("zero dimension")

// SourceInfo is the display transform state of one camera session.
type SourceInfo struct {
	// Session identifies the camera session this state belongs to.
	Session string `json:"session"`

	// Width and Height are the source dimensions in display orientation.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Flipped mirrors the X axis on translation.
	Flipped bool `json:"flipped"`
}

// NewSourceInfo builds the transform state for frames of width x height
// pixels that must be rotated by rotation degrees to display upright.
// For 90 and 270 the stored dimensions are swapped.
func NewSourceInfo(width, height, rotation int, flipped bool) (SourceInfo, error) {
	if width <= 0 || height <= 0 {
		return SourceInfo{}, fmt.Errorf("%w: source %dx%d", ErrZeroDimension, width, height)
	}
	if !recognition.ValidRotation(rotation) {
		return SourceInfo{}, fmt.Errorf("%w: %d", recognition.ErrInvalidRotation, rotation)
	}

	if rotation == 90 || rotation == 270 {
		width, height = height, width
	}

	return SourceInfo{
		Session: uuid.NewString(),
		Width:   width,
		Height:  height,
		Flipped: flipped,
	}, nil
}

// SourceInfoForFrame derives the transform state from a recognition frame.
func SourceInfoForFrame(f recognition.Frame) (SourceInfo, error) {
	return NewSourceInfo(f.Width, f.Height, f.Rotation, f.Flipped)
}

// SourceCell is a one-shot publication cell for SourceInfo.
//
// The analysis worker publishes once per session; the render path loads the
// snapshot for every frame. The zero value is empty and ready to use.
type SourceCell struct {
	p atomic.Pointer[SourceInfo]
}

// Publish stores info if the cell is empty and reports whether it did.
// A cell that already holds state is left untouched.
func (c *SourceCell) Publish(info SourceInfo) bool {
	return c.p.CompareAndSwap(nil, &info)
}

// Replace stores info unconditionally. Used on explicit reconfiguration such
// as a rotation change.
func (c *SourceCell) Replace(info SourceInfo) {
	c.p.Store(&info)
}

// Load returns the published state, or false if nothing is published yet.
func (c *SourceCell) Load() (SourceInfo, bool) {
	info := c.p.Load()
	if info == nil {
		return SourceInfo{}, false
	}
	return *info, true
}

// Reset empties the cell so the next session can publish.
func (c *SourceCell) Reset() {
	c.p.Store(nil)
}
