package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// Orient rotates a sensor frame clockwise by rotation degrees so that it is
// upright, which is the orientation text is recognized in. Rotation must be
// 0, 90, 180 or 270.
//
// Mirroring is not applied here: recognized coordinates stay in the
// unmirrored frame and the overlay translator mirrors them for display.
func Orient(img image.Image, rotation int) (image.Image, error) {
	if !recognition.ValidRotation(rotation) {
		return nil, fmt.Errorf("%w: %d", recognition.ErrInvalidRotation, rotation)
	}

	// imaging rotates counter-clockwise.
	switch rotation {
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	}
	return img, nil
}

// Mirror flips img horizontally. It is used to produce the image a
// front-facing preview shows, so annotated output lines up with the mirrored
// overlay coordinates.
func Mirror(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}
