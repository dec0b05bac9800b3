// Package feed streams rendered overlays to websocket viewers.
//
// A Publisher turns each pipeline result into a FrameMessage holding the
// translated draw commands and hands it to a Hub, which writes it to every
// connected viewer. Routes exposes the hub next to a status endpoint.
//
// # Endpoints
//
//   - GET /feed: websocket; one JSON FrameMessage per analyzed frame
//   - GET /healthz: JSON status with viewer count, dropped broadcasts and
//     whatever the StatusFunc adds (frame counters, current session)
//
// # Message Format
//
//	{
//	  "type": "frame",
//	  "seq": 12,
//	  "source": {"width": 480, "height": 640, "flipped": false, "session": "..."},
//	  "surface": {"width": 1080, "height": 1440},
//	  "associations": [...],
//	  "commands": [{"op": "stroke_rect", ...}, {"op": "fill_rect", ...}, {"op": "text", ...}],
//	  "report": {"drawn": ["Volume"], "all_found": false}
//	}
//
// Commands are already in surface coordinates and in draw order; a viewer
// replays them without knowing anything about the camera.
//
// # Back-pressure
//
// Broadcast never blocks the analyzer. When the hub's queue is full the
// message is dropped and counted, and a viewer whose write fails is
// disconnected.
package feed
