package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("analyzer closed")

// Result is the outcome of analyzing one frame. Each Result owns its
// slices; nothing is shared with earlier or later frames.
type Result struct {
	// Seq is the sequence number Submit returned for the frame.
	Seq uint64

	// Source is the display state the frame's coordinates belong to.
	Source overlay.SourceInfo

	// Frame is the recognition result the associations were found in.
	Frame recognition.Frame

	// Associations holds one entry per located label, in label order.
	Associations []matcher.Association
}

// Consumer receives every analyzed frame on the analysis goroutine.
// It must not block for long: frames arriving meanwhile are coalesced.
type Consumer func(Result)

// Stats counts frames by outcome.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Analyzed  uint64 `json:"analyzed"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

type input struct {
	seq  uint64
	img  image.Image
	meta ocr.FrameMeta
}

// Analyzer runs recognition and matching on a single background goroutine.
//
// At most one frame waits for analysis: a frame still pending when a newer
// one is submitted is dropped. The first analyzed frame of a session
// publishes the source info; Restart starts a new session.
type Analyzer struct {
	engine   ocr.Engine
	matcher  *matcher.Matcher
	consumer Consumer
	cell     *overlay.SourceCell
	log      logrus.FieldLogger

	// sendMu serializes Submit so the replace-pending step cannot race
	// another sender.
	sendMu  sync.Mutex
	mailbox chan input

	seq       atomic.Uint64
	submitted atomic.Uint64
	analyzed  atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithSourceCell shares cell with other readers, such as the MCP server.
func WithSourceCell(cell *overlay.SourceCell) Option {
	return func(a *Analyzer) { a.cell = cell }
}

// New creates an Analyzer. Run must be called to start analysis.
func New(engine ocr.Engine, m *matcher.Matcher, consumer Consumer, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:   engine,
		matcher:  m,
		consumer: consumer,
		cell:     &overlay.SourceCell{},
		log:      logrus.StandardLogger(),
		mailbox:  make(chan input, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit queues img for analysis and returns its sequence number. It never
// blocks on analysis; a frame still waiting from an earlier Submit is
// discarded.
//
// Parameters:
//   - img: the frame in sensor orientation; the analyzer does not modify it
//   - meta: rotation and mirroring passed through to the engine
//
// Returns the frame's sequence number, which the Result carries, or
// ErrClosed after Close.
func (a *Analyzer) Submit(img image.Image, meta ocr.FrameMeta) (uint64, error) {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()

	select {
	case <-a.done:
		return 0, ErrClosed
	default:
	}

	in := input{seq: a.seq.Add(1), img: img, meta: meta}
	a.submitted.Add(1)

	select {
	case a.mailbox <- in:
		return in.seq, nil
	default:
	}

	select {
	case old := <-a.mailbox:
		a.dropped.Add(1)
		a.log.WithField("seq", old.seq).Debug("Dropped pending frame")
	default:
	}
	// Only the worker receives and sendMu is held, so the slot is free.
	a.mailbox <- in
	return in.seq, nil
}

// Run analyzes frames until ctx is cancelled or Close is called.
func (a *Analyzer) Run(ctx context.Context) error {
	a.log.Debug("Analyzer started")
	defer a.log.Debug("Analyzer stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.done:
			return nil
		case in := <-a.mailbox:
			a.analyze(ctx, in)
		}
	}
}

// Close stops Run and rejects further frames. It is safe to call more than once.
func (a *Analyzer) Close() error {
	a.closeOnce.Do(func() { close(a.done) })
	return nil
}

// Restart clears the published source info. The next analyzed frame starts
// a new session.
func (a *Analyzer) Restart() {
	a.cell.Reset()
	a.log.Info("Session restarted")
}

// Source returns the current session's source info, if published.
func (a *Analyzer) Source() (overlay.SourceInfo, bool) {
	return a.cell.Load()
}

// Stats returns a snapshot of the frame counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Submitted: a.submitted.Load(),
		Analyzed:  a.analyzed.Load(),
		Dropped:   a.dropped.Load(),
		Failed:    a.failed.Load(),
	}
}

func (a *Analyzer) analyze(ctx context.Context, in input) {
	log := a.log.WithField("seq", in.seq)

	frame, err := a.engine.Recognize(ctx, in.img, in.meta)
	if err != nil {
		a.failed.Add(1)
		log.WithError(err).Warn("Recognition failed, skipping frame")
		return
	}

	source, err := a.publishSource(frame)
	if err != nil {
		a.failed.Add(1)
		log.WithError(err).Warn("Invalid frame dimensions, skipping frame")
		return
	}

	assocs, err := a.matcher.FindAssociations(frame.Lines)
	if err != nil {
		a.failed.Add(1)
		log.WithError(err).Error("Engine returned a malformed frame")
		return
	}

	a.analyzed.Add(1)
	log.WithFields(logrus.Fields{
		"lines":        len(frame.Lines),
		"associations": len(assocs),
	}).Debug("Frame analyzed")

	if a.consumer != nil {
		a.consumer(Result{
			Seq:          in.seq,
			Source:       source,
			Frame:        frame,
			Associations: assocs,
		})
	}
}

// publishSource returns the session's source info, publishing it on the
// first frame. A frame whose display dimensions or mirroring differ from the
// published state, such as after a rotation change, starts a new session.
func (a *Analyzer) publishSource(frame recognition.Frame) (overlay.SourceInfo, error) {
	current, ok := a.cell.Load()
	if ok && sameDisplay(current, frame) {
		return current, nil
	}

	next, err := overlay.SourceInfoForFrame(frame)
	if err != nil {
		return overlay.SourceInfo{}, err
	}

	if !ok {
		if !a.cell.Publish(next) {
			// Published concurrently by another writer; use theirs.
			if current, ok = a.cell.Load(); ok {
				return current, nil
			}
		}
	} else {
		a.cell.Replace(next)
	}

	a.log.WithFields(logrus.Fields{
		"session": next.Session,
		"width":   next.Width,
		"height":  next.Height,
		"flipped": next.Flipped,
	}).Info("Source published")
	return next, nil
}

func sameDisplay(info overlay.SourceInfo, frame recognition.Frame) bool {
	w, h := frame.Width, frame.Height
	if frame.Rotation == 90 || frame.Rotation == 270 {
		w, h = h, w
	}
	return info.Width == w && info.Height == h && info.Flipped == frame.Flipped
}
