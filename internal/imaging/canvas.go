package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
)

// Canvas rasterizes overlay draw commands onto a copy of a frame.
// Text is drawn with the 7x13 basic font scaled to the requested size, which
// matches overlay.FaceMeasurer so label backgrounds fit their text.
type Canvas struct {
	img  *image.NRGBA
	face font.Face
}

var _ overlay.Sink = (*Canvas)(nil)

// NewCanvas copies base into a new drawable image.
func NewCanvas(base image.Image) *Canvas {
	return &Canvas{img: imaging.Clone(base), face: basicfont.Face7x13}
}

// NewDisplayCanvas copies a raw frame into a canvas the way it is shown:
// rotated upright by rotation degrees clockwise, then mirrored when flipped.
//
// Parameters:
//   - frame: the frame in sensor orientation; it is not modified
//   - rotation: 0, 90, 180 or 270
//   - flipped: mirror horizontally after rotating
//
// Returns a canvas whose bounds are the display dimensions (width and height
// swapped for 90 and 270), or recognition.ErrInvalidRotation.
func NewDisplayCanvas(frame image.Image, rotation int, flipped bool) (*Canvas, error) {
	upright, err := Orient(frame, rotation)
	if err != nil {
		return nil, err
	}
	if flipped {
		return &Canvas{img: Mirror(upright), face: basicfont.Face7x13}, nil
	}
	return NewCanvas(upright), nil
}

// NewBlankCanvas creates a transparent canvas of the given size.
func NewBlankCanvas(width, height int) *Canvas {
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, width, height)), face: basicfont.Face7x13}
}

// Image returns the canvas pixels.
func (c *Canvas) Image() *image.NRGBA {
	return c.img
}

// StrokeRect outlines r with a line width pixels wide centered on its edges.
func (c *Canvas) StrokeRect(r overlay.RectF, width float64, col colorful.Color) {
	half := width / 2
	src := image.NewUniform(toNRGBA(col))

	edges := []overlay.RectF{
		{Left: r.Left - half, Top: r.Top - half, Right: r.Right + half, Bottom: r.Top + half},
		{Left: r.Left - half, Top: r.Bottom - half, Right: r.Right + half, Bottom: r.Bottom + half},
		{Left: r.Left - half, Top: r.Top - half, Right: r.Left + half, Bottom: r.Bottom + half},
		{Left: r.Right - half, Top: r.Top - half, Right: r.Right + half, Bottom: r.Bottom + half},
	}
	for _, e := range edges {
		draw.Draw(c.img, pixelRect(e), src, image.Point{}, draw.Over)
	}
}

// FillRect fills r.
func (c *Canvas) FillRect(r overlay.RectF, col colorful.Color) {
	draw.Draw(c.img, pixelRect(r), image.NewUniform(toNRGBA(col)), image.Point{}, draw.Over)
}

// DrawText draws text on one line with its baseline at at.Y. Newlines are
// drawn as spaces.
func (c *Canvas) DrawText(text string, at overlay.PointF, size float64, col colorful.Color) {
	text = strings.ReplaceAll(text, "\n", " ")
	metrics := c.face.Metrics()
	advance := font.MeasureString(c.face, text).Ceil()
	native := metrics.Height.Ceil()
	if advance == 0 || native == 0 || size <= 0 {
		return
	}

	// Render at the face's native size, then scale the glyph mask up.
	mask := image.NewAlpha(image.Rect(0, 0, advance, native))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: c.face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(text)

	scale := size / float64(native)
	w := int(math.Round(float64(advance) * scale))
	h := int(math.Round(float64(native) * scale))
	if w < 1 || h < 1 {
		return
	}
	scaled := imaging.Resize(mask, w, h, imaging.NearestNeighbor)

	x := int(math.Round(at.X))
	y := int(math.Round(at.Y - float64(metrics.Ascent.Ceil())*scale))
	dst := image.Rect(x, y, x+w, y+h)
	draw.DrawMask(c.img, dst, image.NewUniform(toNRGBA(col)), image.Point{}, scaled, image.Point{}, draw.Over)
}

// EncodedImage is a PNG rendered for a tool result.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// PNGBytes encodes img as PNG.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	data, err := PNGBytes(img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// Save writes the canvas to path; the format follows the file extension.
func (c *Canvas) Save(path string) error {
	if err := imaging.Save(c.img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// pixelRect rounds r outward to whole pixels.
func pixelRect(r overlay.RectF) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.Left)),
		int(math.Floor(r.Top)),
		int(math.Ceil(r.Right)),
		int(math.Ceil(r.Bottom)),
	)
}
