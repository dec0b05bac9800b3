package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// Recording is the on-disk form of a recognized frame:
//
//	{"width":640,"height":480,"rotation":90,"flipped":false,
//	 "lines":[{"text":"Volume","corners":[{"x":1,"y":2},...]}]}
//
// The corner list of every line must hold exactly four points.
type Recording struct {
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Rotation int             `json:"rotation"`
	Flipped  bool            `json:"flipped"`
	Lines    []RecordingLine `json:"lines"`
}

// RecordingLine is one line of a Recording.
type RecordingLine struct {
	Text    string              `json:"text"`
	Corners []recognition.Point `json:"corners"`
}

// Frame validates the recording and converts it.
func (r Recording) Frame() (recognition.Frame, error) {
	lines := make([]recognition.TextLine, 0, len(r.Lines))
	for i, l := range r.Lines {
		line, err := recognition.NewTextLine(l.Text, l.Corners)
		if err != nil {
			return recognition.Frame{}, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, line)
	}

	f := recognition.Frame{
		Lines:    lines,
		Width:    r.Width,
		Height:   r.Height,
		Rotation: r.Rotation,
		Flipped:  r.Flipped,
	}
	if err := f.Validate(); err != nil {
		return recognition.Frame{}, err
	}
	return f, nil
}

// RecordFrame converts f to its on-disk form.
func RecordFrame(f recognition.Frame) Recording {
	r := Recording{
		Width:    f.Width,
		Height:   f.Height,
		Rotation: f.Rotation,
		Flipped:  f.Flipped,
		Lines:    make([]RecordingLine, len(f.Lines)),
	}
	for i, l := range f.Lines {
		r.Lines[i] = RecordingLine{Text: l.Content, Corners: l.Corners}
	}
	return r
}

// ReadRecording decodes one recording from r.
func ReadRecording(r io.Reader) (recognition.Frame, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return recognition.Frame{}, fmt.Errorf("failed to decode recording: %w", err)
	}
	return rec.Frame()
}

// LoadRecording reads a recording file.
func LoadRecording(path string) (recognition.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return recognition.Frame{}, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	frame, err := ReadRecording(f)
	if err != nil {
		return recognition.Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// Replay is an Engine that returns recorded frames in order, ignoring the
// image it is given. It is used to run the overlay without Tesseract and to
// drive tests.
type Replay struct {
	mu     sync.Mutex
	frames []recognition.Frame
	next   int
	loop   bool
}

var _ Engine = (*Replay)(nil)

// NewReplay returns an engine that yields frames once each.
func NewReplay(frames ...recognition.Frame) *Replay {
	return &Replay{frames: frames}
}

// NewLoopingReplay returns an engine that cycles through frames forever.
func NewLoopingReplay(frames ...recognition.Frame) *Replay {
	return &Replay{frames: frames, loop: true}
}

// Recognize returns the next recorded frame exactly as recorded.
func (r *Replay) Recognize(ctx context.Context, _ image.Image, _ FrameMeta) (recognition.Frame, error) {
	if err := ctx.Err(); err != nil {
		return recognition.Frame{}, engineError("replay", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 || (!r.loop && r.next >= len(r.frames)) {
		return recognition.Frame{}, engineError("replay", ErrExhausted)
	}

	f := r.frames[r.next%len(r.frames)]
	r.next++
	f.Lines = append([]recognition.TextLine(nil), f.Lines...)
	return f, nil
}
