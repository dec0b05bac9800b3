// Package watch feeds frame images dropped into a directory to the analyzer.
//
// A camera bridge (or a test) writes preview frames into the directory; every
// new or rewritten image is decoded and submitted. Files still being written
// fail to decode and are picked up again on their next write event.
package watch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
)

// ErrNotOpen is returned by Run before Open.
var ErrNotOpen = errors.New("watcher not open")

// Submitter accepts frames for analysis. *pipeline.Analyzer implements it.
type Submitter interface {
	Submit(img image.Image, meta ocr.FrameMeta) (uint64, error)
}

// frameExtensions are the file types treated as frames.
var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// OverlaySuffix ends the name of every annotated copy of a frame. Such files
// are outputs and never treated as frames.
const OverlaySuffix = "_overlay.png"

// IsFrame reports whether path names a frame image.
func IsFrame(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), OverlaySuffix) {
		return false
	}
	return frameExtensions[strings.ToLower(filepath.Ext(path))]
}

// Watcher submits frame images that appear in a directory.
type Watcher struct {
	dir  string
	sub  Submitter
	meta ocr.FrameMeta
	log  logrus.FieldLogger

	onSubmit func(seq uint64, path string)

	fw *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithSubmitHandler is called after each successful Submit with the frame's
// sequence number and file.
func WithSubmitHandler(fn func(seq uint64, path string)) Option {
	return func(w *Watcher) { w.onSubmit = fn }
}

// New creates a Watcher for dir. Every frame is submitted with meta.
func New(dir string, sub Submitter, meta ocr.FrameMeta, opts ...Option) *Watcher {
	w := &Watcher{
		dir:  dir,
		sub:  sub,
		meta: meta,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open starts watching the directory. Events that happen after Open returns
// are delivered by Run.
func (w *Watcher) Open() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.fw = fw
	return nil
}

// Run submits frames until ctx is done or the watcher fails. It closes the
// underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	if w.fw == nil {
		return ErrNotOpen
	}
	defer w.fw.Close()

	w.log.WithField("dir", w.dir).Info("Watching for frames")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsFrame(ev.Name) {
				continue
			}
			if err := w.submit(ev.Name); err != nil {
				return err
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

func (w *Watcher) submit(path string) error {
	log := w.log.WithField("file", filepath.Base(path))

	img, err := imaging.Decode(path)
	if err != nil {
		log.WithError(err).Debug("Frame not readable yet")
		return nil
	}

	seq, err := w.sub.Submit(img, w.meta)
	if err != nil {
		return fmt.Errorf("failed to submit %s: %w", path, err)
	}

	log.WithField("seq", seq).Debug("Frame submitted")
	if w.onSubmit != nil {
		w.onSubmit(seq, path)
	}
	return nil
}
