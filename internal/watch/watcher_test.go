package watch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/field-overlay-mcp/internal/logging"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
)

type submission struct {
	size image.Point
	meta ocr.FrameMeta
}

type fakeSubmitter struct {
	mu  sync.Mutex
	seq uint64
	err error
	got chan submission
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{got: make(chan submission, 16)}
}

func (f *fakeSubmitter) Submit(img image.Image, meta ocr.FrameMeta) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.seq++
	f.got <- submission{size: img.Bounds().Size(), meta: meta}
	return f.seq, nil
}

// dropFrame writes a PNG outside dir and renames it in, so the watcher only
// ever sees a complete file.
func dropFrame(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.White)

	tmp := filepath.Join(t.TempDir(), name)
	f, err := os.Create(tmp)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, name)
	require.NoError(t, os.Rename(tmp, dst))
	return dst
}

func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	require.NoError(t, w.Open())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestIsFrame(t *testing.T) {
	assert.True(t, IsFrame("/frames/0001.png"))
	assert.True(t, IsFrame("0002.JPG"))
	assert.True(t, IsFrame("0003.jpeg"))
	assert.False(t, IsFrame("0004.json"))
	assert.False(t, IsFrame("png"))

	// annotated copies are outputs, not frames
	assert.False(t, IsFrame("frame_overlay.png"))
	assert.False(t, IsFrame("/out/frame_overlay_overlay.png"))
	assert.False(t, IsFrame("FRAME_OVERLAY.PNG"))
	assert.True(t, IsFrame("overlay.png"))
}

func TestWatcher_IgnoresAnnotatedCopies(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	w := New(dir, sub, ocr.FrameMeta{}, WithLogger(logging.Discard()))
	startWatcher(t, w)

	dropFrame(t, dir, "frame_overlay.png", 16, 16)
	dropFrame(t, dir, "next.png", 40, 30)

	select {
	case got := <-sub.got:
		assert.Equal(t, image.Pt(40, 30), got.size, "the annotated copy must not be submitted")
	case <-time.After(5 * time.Second):
		t.Fatal("frame was not submitted")
	}
}

func TestWatcher_SubmitsNewFrames(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	meta := ocr.FrameMeta{Rotation: 90, Flipped: true}

	var mu sync.Mutex
	var submitted []string
	w := New(dir, sub, meta,
		WithLogger(logging.Discard()),
		WithSubmitHandler(func(seq uint64, path string) {
			mu.Lock()
			submitted = append(submitted, filepath.Base(path))
			mu.Unlock()
		}),
	)
	cancel, done := startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	dropFrame(t, dir, "frame-0001.png", 32, 24)

	select {
	case got := <-sub.got:
		assert.Equal(t, image.Pt(32, 24), got.size)
		assert.Equal(t, meta, got.meta)
	case <-time.After(5 * time.Second):
		t.Fatal("frame was not submitted")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, submitted)
	assert.Equal(t, "frame-0001.png", submitted[0])
}

func TestWatcher_SubmitErrorStopsRun(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	sub.err = errors.New("analyzer closed")

	w := New(dir, sub, ocr.FrameMeta{}, WithLogger(logging.Discard()))
	_, done := startWatcher(t, w)

	dropFrame(t, dir, "frame.png", 8, 8)

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "analyzer closed")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on submit error")
	}
}

func TestWatcher_RunBeforeOpen(t *testing.T) {
	w := New(t.TempDir(), newFakeSubmitter(), ocr.FrameMeta{})
	assert.ErrorIs(t, w.Run(context.Background()), ErrNotOpen)
}

func TestWatcher_OpenMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), newFakeSubmitter(), ocr.FrameMeta{})
	assert.ErrorContains(t, w.Open(), "failed to watch")
}
