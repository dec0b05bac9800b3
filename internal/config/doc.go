// Package config reads the overlay configuration from the environment.
//
// Variables (defaults in parentheses):
//
//	OVERLAY_LOG_LEVEL       debug, info, warn or error (info)
//	OVERLAY_LABELS          ordered "Label=color" list (Volume=green,Compliance=red,Pressure=yellow,Gradient=magenta)
//	OVERLAY_TIE_BREAK       first or nearest (first)
//	OVERLAY_SURFACE_WIDTH   drawing surface width, 0 for the source width (0)
//	OVERLAY_SURFACE_HEIGHT  drawing surface height, 0 for the source height (0)
//	OVERLAY_FLIPPED         mirrored preview (false)
//	OVERLAY_STROKE_WIDTH    box outline width (2)
//	OVERLAY_TEXT_SIZE       label text size (24)
//	OVERLAY_FEED_ADDR       websocket feed listen address (:8765)
//	OVERLAY_LANGUAGE        Tesseract language (eng)
//	TESSDATA_PREFIX         Tesseract traineddata directory
//	OVERLAY_PREPROCESS      grayscale and contrast before OCR (true)
//	OVERLAY_CONTRAST        contrast change for preprocessing (0.3)
//	OVERLAY_MIN_CONFIDENCE  drop OCR lines below this confidence, 0 to 1 (0)
//
// A .env file in the working directory is read first when present.
package config
