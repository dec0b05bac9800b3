package overlay

import (
	"fmt"
	"math"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// PointF is a point on the drawing surface.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RectF is a rectangle on the drawing surface.
type RectF struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Translator maps source-image pixels to drawing-surface coordinates.
type Translator struct {
	info          SourceInfo
	surfaceWidth  float64
	surfaceHeight float64
	scaleX        float64
	scaleY        float64
}

// NewTranslator creates a Translator for a surface of the given size.
// Zero or negative dimensions on either side are rejected before any
// scale factor is computed.
//
// Parameters:
//   - info: the session's source info, already in display orientation
//   - surfaceWidth, surfaceHeight: size of the drawing surface. Use
//     SurfaceSize to default zeros to the source size.
//
// Returns a Translator with ScaleX = surfaceWidth / info.Width and
// ScaleY = surfaceHeight / info.Height, or ErrZeroDimension.
func NewTranslator(info SourceInfo, surfaceWidth, surfaceHeight float64) (Translator, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return Translator{}, fmt.Errorf("%w: source %dx%d", ErrZeroDimension, info.Width, info.Height)
	}
	if !(surfaceWidth > 0) || !(surfaceHeight > 0) {
		return Translator{}, fmt.Errorf("%w: surface %gx%g", ErrZeroDimension, surfaceWidth, surfaceHeight)
	}

	return Translator{
		info:          info,
		surfaceWidth:  surfaceWidth,
		surfaceHeight: surfaceHeight,
		scaleX:        surfaceWidth / float64(info.Width),
		scaleY:        surfaceHeight / float64(info.Height),
	}, nil
}

// Source returns the state the translator was built from.
func (t Translator) Source() SourceInfo { return t.info }

// ScaleX is surface width divided by source width.
func (t Translator) ScaleX() float64 { return t.scaleX }

// ScaleY is surface height divided by source height.
func (t Translator) ScaleY() float64 { return t.scaleY }

// SurfaceWidth returns the drawing surface width.
func (t Translator) SurfaceWidth() float64 { return t.surfaceWidth }

// SurfaceHeight returns the drawing surface height.
func (t Translator) SurfaceHeight() float64 { return t.surfaceHeight }

// TranslateX maps a source x coordinate, mirroring when flipped.
func (t Translator) TranslateX(x float64) float64 {
	if t.info.Flipped {
		return t.surfaceWidth - x*t.scaleX
	}
	return x * t.scaleX
}

// TranslateY maps a source y coordinate.
func (t Translator) TranslateY(y float64) float64 {
	return y * t.scaleY
}

// TranslatePoint maps a source point.
func (t Translator) TranslatePoint(p recognition.Point) PointF {
	return PointF{X: t.TranslateX(float64(p.X)), Y: t.TranslateY(float64(p.Y))}
}

// TranslateRect maps a source rectangle. Left and right are re-sorted since
// mirroring swaps them.
func (t Translator) TranslateRect(r recognition.Rect) RectF {
	x0 := t.TranslateX(float64(r.Left))
	x1 := t.TranslateX(float64(r.Right))
	return RectF{
		Left:   math.Min(x0, x1),
		Top:    t.TranslateY(float64(r.Top)),
		Right:  math.Max(x0, x1),
		Bottom: t.TranslateY(float64(r.Bottom)),
	}
}

// SurfaceSize returns width and height, substituting the source dimensions
// for zero values so a surface can default to the source's own size.
func SurfaceSize(info SourceInfo, width, height float64) (float64, float64) {
	if width == 0 {
		width = float64(info.Width)
	}
	if height == 0 {
		height = float64(info.Height)
	}
	return width, height
}
