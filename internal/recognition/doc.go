// Package recognition defines the per-frame data produced by an OCR engine.
//
// A Frame is the complete recognition result for one analyzed camera frame:
// an unordered set of TextLines plus the frame's source dimensions, rotation
// and mirroring. Frames are created once by the engine and never mutated;
// the next frame's result replaces them wholesale.
//
// # Coordinate System
//
// Line coordinates are pixels of the upright image, that is the sensor frame
// after Rotation has been applied. Frame.Width and Frame.Height are the
// sensor dimensions before rotation, so a 640x480 frame at rotation 90 has
// line coordinates within 480x640.
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Translation into drawing-surface coordinates is handled by the overlay
// package, not here.
//
// # Corner Points
//
// Every TextLine carries exactly four corner points describing its
// quadrilateral bounding region, in engine order (typically top-left,
// top-right, bottom-right, bottom-left). A line with any other number of
// corners violates the engine contract and is rejected with ErrMalformedLine.
package recognition
