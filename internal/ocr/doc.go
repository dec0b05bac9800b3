// Package ocr produces recognition.Frames from camera frames.
//
// Engine is the boundary between text recognition and the rest of the
// overlay: an engine returns either a complete Frame or an *EngineError,
// never a partial result. Two engines are provided:
//
//   - Tesseract runs a local Tesseract installation through gosseract and
//     reports one TextLine per recognized line of text.
//   - Replay returns frames previously recorded as JSON (see Recording).
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// TESSDATA_PREFIX or TesseractConfig.TessdataPrefix selects a non-default
// traineddata directory.
package ocr
