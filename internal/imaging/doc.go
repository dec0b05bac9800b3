// Package imaging loads frames and draws overlays onto them.
//
// Orient turns a sensor frame upright before recognition and PrepareForOCR
// converts it to a contrast-adjusted grayscale copy. Canvas implements
// overlay.Sink, so the same draw commands sent to a live surface can be
// rasterized into a PNG.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Rectangles drawn on a Canvas use floating point surface coordinates
//     as produced by overlay.Translator and cover every pixel they touch
//
// # Orientation
//
// Frames arrive in sensor orientation. The rotation passed to Orient and
// NewDisplayCanvas is the clockwise rotation that makes the frame upright,
// one of 0, 90, 180 or 270. A flipped (mirrored) preview is mirrored after
// rotation, so a canvas matches what the viewer sees.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. A Canvas is not: it is
// drawn by one renderer at a time and then encoded.
//
// # Caching
//
// ImageCache keys frames by path and remembers the modification time and
// size each frame was decoded from. A camera bridge that rewrites the same
// file for every preview frame therefore always gets the current pixels;
// only repeated tool calls on an unchanged file are served from memory.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O errors during image loading ("failed to open image")
//   - Unsupported or corrupt image data ("failed to decode image")
//   - Rotations other than 0, 90, 180 and 270 (recognition.ErrInvalidRotation)
//   - Encoding errors during PNG output
package imaging
