package recognition

import (
	"errors"
	"fmt"
)

// CornerCount is the number of corner points every TextLine must carry.
const CornerCount = 4

var (
	// ErrMalformedLine is returned for a TextLine whose corner count is not CornerCount.
	ErrMalformedLine = errors.New("malformed text line")

	// ErrInvalidRotation is returned for rotations other than 0, 90, 180 or 270 degrees.
	ErrInvalidRotation = errors.New("invalid rotation")

	// ErrInvalidDimensions is returned for frames with non-positive width or height.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")
)

// Point is a pixel coordinate in the source image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned rectangle in source-image pixels.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() int { return r.Bottom - r.Top }

// TextLine is one recognized line of text.
type TextLine struct {
	// Content is the recognized string exactly as the engine produced it.
	Content string `json:"text"`

	// Corners is the quadrilateral around the line, in engine order.
	Corners []Point `json:"corners"`

	// Box is the axis-aligned bounding rectangle of Corners.
	Box Rect `json:"box"`
}

// NewTextLine builds a TextLine and derives its bounding box from corners.
// The corners slice is copied.
func NewTextLine(content string, corners []Point) (TextLine, error) {
	if len(corners) != CornerCount {
		return TextLine{}, fmt.Errorf("%w: %q has %d corners, want %d",
			ErrMalformedLine, content, len(corners), CornerCount)
	}

	cp := make([]Point, CornerCount)
	copy(cp, corners)

	box := Rect{Left: cp[0].X, Top: cp[0].Y, Right: cp[0].X, Bottom: cp[0].Y}
	for _, p := range cp[1:] {
		box.Left = min(box.Left, p.X)
		box.Top = min(box.Top, p.Y)
		box.Right = max(box.Right, p.X)
		box.Bottom = max(box.Bottom, p.Y)
	}

	return TextLine{Content: content, Corners: cp, Box: box}, nil
}

// LineFromRect builds a TextLine whose corners are the four corners of an
// axis-aligned rectangle, clockwise from top-left. Engines that only report
// boxes (Tesseract) use this.
func LineFromRect(content string, r Rect) TextLine {
	line, _ := NewTextLine(content, []Point{
		{X: r.Left, Y: r.Top},
		{X: r.Right, Y: r.Top},
		{X: r.Right, Y: r.Bottom},
		{X: r.Left, Y: r.Bottom},
	})
	return line
}

// Validate reports ErrMalformedLine when the line does not carry exactly
// CornerCount corners.
func (l TextLine) Validate() error {
	if len(l.Corners) != CornerCount {
		return fmt.Errorf("%w: %q has %d corners, want %d",
			ErrMalformedLine, l.Content, len(l.Corners), CornerCount)
	}
	return nil
}

// VerticalSpan returns the minimum and maximum y among the line's corners.
// The line must be valid.
func (l TextLine) VerticalSpan() (minY, maxY int) {
	minY, maxY = l.Corners[0].Y, l.Corners[0].Y
	for _, p := range l.Corners[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return minY, maxY
}

// CenterY returns the arithmetic mean of the corners' y coordinates.
// The line must be valid.
func (l TextLine) CenterY() float64 {
	total := 0
	for _, p := range l.Corners {
		total += p.Y
	}
	return float64(total) / CornerCount
}

// CenterX returns the arithmetic mean of the corners' x coordinates.
// The line must be valid.
func (l TextLine) CenterX() float64 {
	total := 0
	for _, p := range l.Corners {
		total += p.X
	}
	return float64(total) / CornerCount
}

// Frame is the recognition result for one analyzed frame.
type Frame struct {
	// Lines holds every recognized line. Order carries no meaning.
	Lines []TextLine `json:"lines"`

	// Width and Height are the source image dimensions in native orientation.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Rotation is the clockwise rotation in degrees needed to display the
	// frame upright: 0, 90, 180 or 270.
	Rotation int `json:"rotation"`

	// Flipped reports whether the displayed image is horizontally mirrored.
	Flipped bool `json:"flipped"`
}

// ValidRotation reports whether degrees is one of 0, 90, 180, 270.
func ValidRotation(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Validate checks the frame metadata and every line.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, f.Width, f.Height)
	}
	if !ValidRotation(f.Rotation) {
		return fmt.Errorf("%w: %d", ErrInvalidRotation, f.Rotation)
	}
	return ValidateLines(f.Lines)
}

// ValidateLines checks every line and reports the first violation with its index.
func ValidateLines(lines []TextLine) error {
	for i, l := range lines {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	return nil
}
