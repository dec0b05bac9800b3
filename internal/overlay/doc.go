// Package overlay turns label associations into draw commands on a display surface.
//
// Three pieces cooperate per frame:
//
//   - SourceInfo and SourceCell hold the display transform state: the source
//     dimensions in display orientation plus the mirroring flag. It is
//     published once per camera session and read by every later frame.
//   - Translator maps source-image pixels onto the drawing surface using
//     independent X and Y scale factors, mirroring X when the image is flipped.
//   - Renderer walks the associations in label order and emits a stroked box,
//     a filled label background and the label text to a Sink.
//
// # Sinks
//
// A Sink is a dumb renderer: it receives already-translated coordinates and
// colors and knows nothing about labels. Recorder captures the commands as
// data (for JSON output and the websocket feed); imaging.Canvas rasterizes
// them onto a frame.
//
// # Visibility
//
// SourceCell publishes an immutable snapshot through an atomic pointer, so a
// render goroutine that observes the snapshot also observes every field
// written before publication. No other locking is needed.
package overlay
