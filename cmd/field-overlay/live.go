package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ironsheep/field-overlay-mcp/internal/feed"
	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/pipeline"
	"github.com/ironsheep/field-overlay-mcp/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// liveLoop runs the watcher, analyzer, feed hub and feed HTTP server
// together.
type liveLoop struct {
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	analyzer *pipeline.Analyzer
	http     *http.Server

	errOnce sync.Once
	errc    chan error
}

// prepareOutDir creates outDir for annotated frames. It must not be the
// watched directory, where every annotated copy would land next to the
// frames it was drawn from.
func prepareOutDir(watchDir, outDir string) error {
	if outDir == "" {
		return nil
	}
	w, err := filepath.Abs(watchDir)
	if err != nil {
		return err
	}
	o, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if w == o {
		return fmt.Errorf("--out-dir must differ from the watched directory %s", watchDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	return nil
}

// annotator writes an annotated copy of every published frame into outDir.
type annotator struct {
	outDir   string
	renderer *overlay.Renderer
	paths    sync.Map // seq -> frame file
}

func newAnnotator(outDir string) *annotator {
	return &annotator{outDir: outDir, renderer: newImageRenderer()}
}

// track records which file a submitted frame came from.
func (a *annotator) track(seq uint64, path string) {
	a.paths.Store(seq, path)
}

// onFrame is a feed.Publisher OnFrame hook.
func (a *annotator) onFrame(res pipeline.Result, _ feed.FrameMessage) {
	p, ok := a.paths.LoadAndDelete(res.Seq)
	// forget frames dropped before analysis
	a.paths.Range(func(k, _ any) bool {
		if k.(uint64) < res.Seq {
			a.paths.Delete(k)
		}
		return true
	})
	if !ok {
		return
	}

	path := p.(string)
	img, err := imaging.Decode(path)
	if err == nil {
		err = writeAnnotated(a.renderer, res, img, filepath.Join(a.outDir, overlayName(path)))
	}
	if err != nil {
		log.WithError(err).WithField("seq", res.Seq).Warn("Failed to write annotated frame")
		return
	}
	log.WithField("seq", res.Seq).WithField("file", path).Debug("Annotated frame written")
}

// newPublisher builds the analyzer consumer. ann may be nil.
func newPublisher(hub *feed.Hub, renderer *overlay.Renderer, ann *annotator) *feed.Publisher {
	pub := &feed.Publisher{
		Hub:      hub,
		Renderer: renderer,
		Labels:   cfg.Labels,
		Surface:  feed.Surface{Width: cfg.SurfaceWidth, Height: cfg.SurfaceHeight},
		Log:      log,
	}
	if ann != nil {
		pub.OnFrame = ann.onFrame
	}
	return pub
}

// startLive starts analyzing frames written to dir. The first component to
// fail is reported on Err. SIGHUP restarts the camera session.
func startLive(parent context.Context, engine ocr.Engine, cell *overlay.SourceCell, dir string, meta ocr.FrameMeta, outDir string) (*liveLoop, error) {
	if err := prepareOutDir(dir, outDir); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	l := &liveLoop{cancel: cancel, errc: make(chan error, 1)}

	hub := feed.NewHub(log)
	var ann *annotator
	if outDir != "" {
		ann = newAnnotator(outDir)
	}
	pub := newPublisher(hub, newRenderer(), ann)

	l.analyzer = pipeline.New(engine, cfg.Matcher(), pub.Consume,
		pipeline.WithLogger(log),
		pipeline.WithSourceCell(cell),
	)

	opts := []watch.Option{watch.WithLogger(log)}
	if ann != nil {
		opts = append(opts, watch.WithSubmitHandler(ann.track))
	}
	w := watch.New(dir, l.analyzer, meta, opts...)
	if err := w.Open(); err != nil {
		cancel()
		return nil, err
	}

	l.http = &http.Server{
		Addr: cfg.FeedAddr,
		Handler: feed.Routes(hub, func() map[string]any {
			status := map[string]any{"frames": l.analyzer.Stats()}
			if info, ok := cell.Load(); ok {
				status["session"] = info.Session
			}
			return status
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l.run(func() error { hub.Run(ctx); return nil })
	l.run(func() error { return l.analyzer.Run(ctx) })
	l.run(func() error { return w.Run(ctx) })
	l.run(func() error { l.restartOnHangup(ctx); return nil })
	l.run(func() error {
		log.WithField("addr", cfg.FeedAddr).Info("Feed listening")
		if err := l.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return l, nil
}

// restartOnHangup starts a new session on every SIGHUP, for example after
// the camera was switched.
func (l *liveLoop) restartOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			l.analyzer.Restart()
		}
	}
}

func (l *liveLoop) run(fn func() error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
			l.errOnce.Do(func() { l.errc <- err })
			l.cancel()
		}
	}()
}

// Err delivers the first component failure.
func (l *liveLoop) Err() <-chan error {
	return l.errc
}

// Stop shuts every component down and waits for them.
func (l *liveLoop) Stop() {
	l.cancel()
	l.analyzer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.http.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Feed shutdown error")
	}

	l.wg.Wait()
	stats := l.analyzer.Stats()
	log.WithField("analyzed", stats.Analyzed).
		WithField("dropped", stats.Dropped).
		WithField("failed", stats.Failed).
		Info("Live analysis stopped")
}
