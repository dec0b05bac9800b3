package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/pipeline"
	"github.com/ironsheep/field-overlay-mcp/internal/watch"
)

// newRenderer returns the renderer that reports completion for a frame.
func newRenderer() *overlay.Renderer {
	return overlay.NewRenderer(
		overlay.WithStyle(cfg.Style()),
		overlay.WithLogger(log),
	)
}

// newImageRenderer draws annotated copies of frames whose completion was
// already reported by another renderer, so it has no logger.
func newImageRenderer() *overlay.Renderer {
	return overlay.NewRenderer(overlay.WithStyle(cfg.Style()))
}

// overlayName returns the annotated file name for a frame file.
func overlayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + watch.OverlaySuffix
}

// writeAnnotated draws res onto frame, as displayed, and saves it to out.
func writeAnnotated(r *overlay.Renderer, res pipeline.Result, frame image.Image, out string) error {
	canvas, err := imaging.NewDisplayCanvas(frame, res.Frame.Rotation, res.Frame.Flipped)
	if err != nil {
		return err
	}

	b := canvas.Image().Bounds()
	tr, err := overlay.NewTranslator(res.Source, float64(b.Dx()), float64(b.Dy()))
	if err != nil {
		return fmt.Errorf("failed to build translator: %w", err)
	}
	r.Render(canvas, tr, res.Associations, cfg.Labels)

	return canvas.Save(out)
}
