package overlay

import (
	"encoding/json"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Op names a draw primitive.
type Op string

const (
	OpStrokeRect Op = "stroke_rect"
	OpFillRect   Op = "fill_rect"
	OpText       Op = "text"
)

// Sink accepts translated draw primitives.
type Sink interface {
	StrokeRect(r RectF, width float64, c colorful.Color)
	FillRect(r RectF, c colorful.Color)
	DrawText(text string, at PointF, size float64, c colorful.Color)
}

// Command is one recorded draw primitive.
type Command struct {
	Op          Op             `json:"op"`
	Rect        *RectF         `json:"rect,omitempty"`
	At          *PointF        `json:"at,omitempty"`
	Text        string         `json:"text,omitempty"`
	StrokeWidth float64        `json:"stroke_width,omitempty"`
	TextSize    float64        `json:"text_size,omitempty"`
	Color       colorful.Color `json:"-"`
}

// MarshalJSON adds the color as "#rrggbb".
func (c Command) MarshalJSON() ([]byte, error) {
	type plain Command
	return json.Marshal(struct {
		plain
		Color string `json:"color"`
	}{plain(c), c.Color.Hex()})
}

// Replay sends the command to sink.
func (c Command) Replay(sink Sink) {
	switch c.Op {
	case OpStrokeRect:
		sink.StrokeRect(*c.Rect, c.StrokeWidth, c.Color)
	case OpFillRect:
		sink.FillRect(*c.Rect, c.Color)
	case OpText:
		sink.DrawText(c.Text, *c.At, c.TextSize, c.Color)
	}
}

// Recorder is a Sink that keeps every command in order. It is safe for
// concurrent use.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) StrokeRect(rect RectF, width float64, c colorful.Color) {
	r.add(Command{Op: OpStrokeRect, Rect: &rect, StrokeWidth: width, Color: c})
}

func (r *Recorder) FillRect(rect RectF, c colorful.Color) {
	r.add(Command{Op: OpFillRect, Rect: &rect, Color: c})
}

func (r *Recorder) DrawText(text string, at PointF, size float64, c colorful.Color) {
	r.add(Command{Op: OpText, Text: text, At: &at, TextSize: size, Color: c})
}

func (r *Recorder) add(cmd Command) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Reset discards recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}

// Replay sends every command to sink in order.
func Replay(cmds []Command, sink Sink) {
	for _, c := range cmds {
		c.Replay(sink)
	}
}
