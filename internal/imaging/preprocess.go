package imaging

import (
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
)

// DefaultContrast is the contrast change applied before recognition.
const DefaultContrast = 0.3

// PrepareForOCR returns a grayscale copy of img with its contrast adjusted
// by contrast (-1 to 1, 0 leaves it unchanged).
//
// Tesseract segments lines more reliably on a single-channel image with
// stretched contrast, so frames go through here before recognition when
// OVERLAY_PREPROCESS is enabled.
//
// Parameters:
//   - img: the frame in sensor orientation
//   - contrast: contrast change passed to bild's adjust.Contrast
//
// Returns an 8-bit gray image with the same bounds as img.
func PrepareForOCR(img image.Image, contrast float64) *image.Gray {
	if contrast != 0 {
		img = adjust.Contrast(img, contrast)
	}
	// bild keeps the result in RGBA with equal channels
	rgba := effect.Grayscale(img)
	gray := image.NewGray(rgba.Bounds())
	draw.Draw(gray, gray.Bounds(), rgba, rgba.Bounds().Min, draw.Src)
	return gray
}
