package main

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/field-overlay-mcp/internal/config"
	"github.com/ironsheep/field-overlay-mcp/internal/feed"
	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/pipeline"
	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// useGlobals installs a test configuration and a capturing logger.
func useGlobals(t *testing.T) *logtest.Hook {
	t.Helper()
	prevCfg, prevLog := cfg, log

	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	cfg = &config.Config{
		Labels:      matcher.DefaultLabels(),
		TieBreak:    matcher.FirstFound,
		StrokeWidth: overlay.DefaultStrokeWidth,
		TextSize:    overlay.DefaultTextSize,
	}
	log = l

	t.Cleanup(func() { cfg, log = prevCfg, prevLog })
	return hook
}

func completeResult(t *testing.T, seq uint64) pipeline.Result {
	t.Helper()
	frame := recognition.Frame{
		Width:  400,
		Height: 260,
		Lines: []recognition.TextLine{
			row("Volume", 10, 20, 110, 60), row("450 mL", 200, 25, 300, 55),
			row("Compliance", 10, 80, 150, 120), row("38", 200, 85, 240, 115),
			row("Pressure", 10, 140, 130, 180), row("22 cmH2O", 200, 145, 330, 175),
			row("Gradient", 10, 200, 130, 240), row("4.1", 200, 205, 250, 235),
		},
	}
	source, err := overlay.SourceInfoForFrame(frame)
	require.NoError(t, err)
	assocs, err := cfg.Matcher().FindAssociations(frame.Lines)
	require.NoError(t, err)
	require.Len(t, assocs, 4)

	return pipeline.Result{Seq: seq, Source: source, Frame: frame, Associations: assocs}
}

func countEntries(hook *logtest.Hook, msg string) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			n++
		}
	}
	return n
}

func TestPublisher_AnnotatedFrameSignalsOnce(t *testing.T) {
	hook := useGlobals(t)

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, prepareOutDir(dir, outDir))

	framePath := filepath.Join(dir, "frame.png")
	writePNG(t, framePath, 400, 260)

	ann := newAnnotator(outDir)
	pub := newPublisher(nil, newRenderer(), ann)

	ann.track(3, framePath)
	pub.Consume(completeResult(t, 3))

	assert.Equal(t, 1, countEntries(hook, "All fields located"))

	img, err := imaging.Decode(filepath.Join(outDir, "frame_overlay.png"))
	require.NoError(t, err)
	// Volume value box, left edge
	r, g, b, _ := img.At(200, 40).RGBA()
	assert.Equal(t, [3]uint32{0, 255, 0}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestAnnotator_SkipsUntrackedFrames(t *testing.T) {
	useGlobals(t)

	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	writePNG(t, framePath, 400, 260)

	ann := newAnnotator(dir)
	ann.track(1, framePath)
	ann.track(2, framePath)

	// frame 1 was dropped before analysis; frame 3 was never tracked
	ann.onFrame(completeResult(t, 3), feed.FrameMessage{})

	_, err := os.Stat(filepath.Join(dir, "frame_overlay.png"))
	assert.True(t, os.IsNotExist(err))
	_, ok := ann.paths.Load(uint64(1))
	assert.False(t, ok, "stale entries are forgotten")
}

func TestPrepareOutDir(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, prepareOutDir(dir, ""))

	err := prepareOutDir(dir, filepath.Join(dir, "."))
	assert.ErrorContains(t, err, "must differ from the watched directory")

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, prepareOutDir(dir, nested))
	fi, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestAnnotateFrame_FramesAreIndependent(t *testing.T) {
	useGlobals(t)
	prevOut := annotateOutDir
	annotateOutDir = ""
	t.Cleanup(func() { annotateOutDir = prevOut })

	dir := t.TempDir()
	landscape := filepath.Join(dir, "landscape.png")
	portrait := filepath.Join(dir, "portrait.png")
	writePNG(t, landscape, 300, 200)
	writePNG(t, portrait, 200, 300)

	engine := ocr.NewReplay(
		recognition.Frame{Width: 300, Height: 200, Lines: []recognition.TextLine{
			row("Volume", 10, 60, 110, 100), row("450 mL", 150, 65, 250, 95),
		}},
		recognition.Frame{Width: 200, Height: 300, Lines: []recognition.TextLine{
			row("Volume", 10, 60, 110, 100), row("450 mL", 120, 65, 190, 95),
		}},
	)
	m := cfg.Matcher()
	renderer := newRenderer()

	for i, tc := range []struct {
		path  string
		size  image.Rectangle
		edgeX int
	}{
		{landscape, image.Rect(0, 0, 300, 200), 150},
		// scaled by the first frame's size this edge would land at x=80
		{portrait, image.Rect(0, 0, 200, 300), 120},
	} {
		out, assocs, err := annotateFrame(context.Background(), engine, m, renderer, uint64(i+1), tc.path, ocr.FrameMeta{})
		require.NoError(t, err)
		require.Len(t, assocs, 1)

		img, err := imaging.Decode(out)
		require.NoError(t, err)
		assert.Equal(t, tc.size, img.Bounds())
		r, g, b, _ := img.At(tc.edgeX, 80).RGBA()
		assert.Equal(t, [3]uint32{0, 255, 0}, [3]uint32{r >> 8, g >> 8, b >> 8}, tc.path)
	}
}
