// Package pipeline connects an OCR engine to the label matcher.
//
// An Analyzer owns one analysis goroutine. Camera frames are handed to
// Submit from any goroutine; the analyzer keeps only the newest frame that
// has not started analysis, so a slow engine never builds a backlog. Each
// analyzed frame is matched against the configured labels and delivered to
// a Consumer together with the session's source info, which the consumer
// uses to translate and render the associations.
//
// # Sessions
//
// The first analyzed frame publishes its display dimensions and mirroring
// into the overlay.SourceCell. Later frames reuse it until one arrives with
// a different rotation or mirroring, which starts a new session. Restart
// clears the cell so the next frame publishes again; the CLI calls it on
// SIGHUP and the MCP overlay_session_reset tool clears a shared cell the
// same way.
//
// # Failures
//
// A frame the engine fails on, or whose dimensions cannot form a session, is
// logged, counted in Stats.Failed and skipped. The next frame is analyzed
// normally.
package pipeline
