package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/pipeline"
)

var (
	annotateRotation int
	annotateFlipped  bool
	annotateOutDir   string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate FRAME...",
	Short: "Draw the overlay onto frame images",
	Long: `Recognize each frame, pair labels with values and write an annotated
copy named <frame>_overlay.png. One JSON summary line per frame is printed
to stdout.

A frame that cannot be recognized is reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().IntVar(&annotateRotation, "rotation", 0, "clockwise rotation that makes frames upright (0, 90, 180, 270)")
	annotateCmd.Flags().BoolVar(&annotateFlipped, "flipped", false, "frames come from a mirrored preview (default OVERLAY_FLIPPED)")
	annotateCmd.Flags().StringVar(&annotateOutDir, "out-dir", "", "directory for annotated frames (default next to each frame)")
}

type annotateSummary struct {
	Frame        string                `json:"frame"`
	Output       string                `json:"output,omitempty"`
	Associations []matcher.Association `json:"associations,omitempty"`
	AllFound     bool                  `json:"all_found"`
	Error        string                `json:"error,omitempty"`
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	meta, err := frameMeta(cmd, annotateRotation, annotateFlipped)
	if err != nil {
		return err
	}
	if annotateOutDir != "" {
		if err := os.MkdirAll(annotateOutDir, 0o755); err != nil {
			return err
		}
	}

	engine, closeEngine, err := newEngine(false)
	if err != nil {
		return err
	}
	defer closeEngine()

	m := cfg.Matcher()
	renderer := newRenderer()
	enc := json.NewEncoder(cmd.OutOrStdout())

	failed := 0
	for i, path := range args {
		summary := annotateSummary{Frame: path}

		out, assocs, err := annotateFrame(cmd.Context(), engine, m, renderer, uint64(i+1), path, meta)
		if err != nil {
			failed++
			summary.Error = err.Error()
			log.WithError(err).WithField("frame", path).Warn("Skipping frame")
		} else {
			summary.Output = out
			summary.Associations = assocs
			summary.AllFound = matcher.Complete(assocs, m.Labels())
		}

		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if failed == len(args) {
		return fmt.Errorf("no frame could be annotated")
	}
	return nil
}

func annotateFrame(ctx context.Context, engine ocr.Engine, m *matcher.Matcher, renderer *overlay.Renderer, seq uint64, path string, meta ocr.FrameMeta) (string, []matcher.Association, error) {
	img, err := imaging.Decode(path)
	if err != nil {
		return "", nil, err
	}

	frame, err := engine.Recognize(ctx, img, meta)
	if err != nil {
		return "", nil, err
	}

	source, err := overlay.SourceInfoForFrame(frame)
	if err != nil {
		return "", nil, err
	}
	assocs, err := m.FindAssociations(frame.Lines)
	if err != nil {
		return "", nil, err
	}

	outDir := annotateOutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	out := filepath.Join(outDir, overlayName(path))
	err = writeAnnotated(renderer, pipeline.Result{
		Seq:          seq,
		Source:       source,
		Frame:        frame,
		Associations: assocs,
	}, img, out)
	if err != nil {
		return "", nil, err
	}
	return out, assocs, nil
}
