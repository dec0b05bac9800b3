package overlay

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
)

const (
	// DefaultStrokeWidth is the box outline width in surface pixels.
	DefaultStrokeWidth = 2.0

	// DefaultTextSize is the label text height in surface pixels.
	DefaultTextSize = 24.0
)

// Style holds the fixed drawing dimensions. Boxes and label backgrounds use
// the label color; the text itself uses TextColor.
type Style struct {
	StrokeWidth float64        `json:"stroke_width"`
	TextSize    float64        `json:"text_size"`
	TextColor   colorful.Color `json:"-"`
}

// DefaultStyle returns a stroke width of 2, a text size of 24 and black text.
func DefaultStyle() Style {
	return Style{StrokeWidth: DefaultStrokeWidth, TextSize: DefaultTextSize, TextColor: colorful.Color{}}
}

// LabelHeight is the height of the filled label background.
func (s Style) LabelHeight() float64 {
	return s.TextSize + 2*s.StrokeWidth
}

// Measurer reports the rendered width of text at a given text size.
type Measurer interface {
	Measure(text string, size float64) float64
}

// FaceMeasurer measures text with a fixed font face scaled to the requested size.
type FaceMeasurer struct {
	Face font.Face
}

// NewFaceMeasurer returns a measurer for the 7x13 basic font, which is
// also what imaging.Canvas draws with.
func NewFaceMeasurer() FaceMeasurer {
	return FaceMeasurer{Face: basicfont.Face7x13}
}

// Measure returns the advance width of text scaled from the face's native
// height to size. Newlines are measured as spaces since sinks draw the
// label text on one line.
func (m FaceMeasurer) Measure(text string, size float64) float64 {
	text = strings.ReplaceAll(text, "\n", " ")
	adv := font.MeasureString(m.Face, text)
	native := float64(m.Face.Metrics().Height.Ceil())
	if native == 0 {
		return 0
	}
	return float64(adv.Ceil()) * size / native
}

// FormatText returns the text drawn for an association: "{label}\n{value}".
func FormatText(label, value string) string {
	return label + "\n" + value
}

// Report summarizes one rendered frame.
type Report struct {
	// Drawn lists the labels drawn, in draw order.
	Drawn []string `json:"drawn"`

	// Complete is true when every configured label was drawn.
	Complete bool `json:"all_found"`
}

// Renderer emits the draw commands for a frame's associations.
type Renderer struct {
	style      Style
	measurer   Measurer
	onComplete func(Report)
	log        logrus.FieldLogger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithStyle overrides the default stroke width and text size.
func WithStyle(s Style) RendererOption {
	return func(r *Renderer) { r.style = s }
}

// WithMeasurer overrides the default text measurer.
func WithMeasurer(m Measurer) RendererOption {
	return func(r *Renderer) { r.measurer = m }
}

// WithCompletionHandler registers fn to be called once for every frame in
// which all configured labels were located.
func WithCompletionHandler(fn func(Report)) RendererOption {
	return func(r *Renderer) { r.onComplete = fn }
}

// WithLogger sets the logger used for the completion diagnostic.
func WithLogger(l logrus.FieldLogger) RendererOption {
	return func(r *Renderer) { r.log = l }
}

// NewRenderer creates a Renderer with the default style and basic-font measurer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		style:    DefaultStyle(),
		measurer: NewFaceMeasurer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Style returns the renderer's drawing dimensions.
func (r *Renderer) Style() Style {
	return r.style
}

// Render draws assocs in order onto sink. labels is the configured label
// list; when every label has an association the completion handler fires
// exactly once.
//
// For each association Render emits, in order:
//  1. StrokeRect around the translated value box in the label color
//  2. FillRect of the caption background in the label color, spanning
//     LabelHeight above the box and the measured caption width plus two
//     stroke widths
//  3. DrawText of "{label}\n{value}" at the box's left edge, one stroke
//     width above its top, in Style.TextColor
//
// A frame should be rendered by one completion-reporting Renderer only;
// sinks that draw the same frame again use a Renderer without a logger or
// completion handler.
func (r *Renderer) Render(sink Sink, tr Translator, assocs []matcher.Association, labels []matcher.Label) Report {
	report := Report{Drawn: make([]string, 0, len(assocs))}

	for _, a := range assocs {
		r.drawAssociation(sink, tr, a)
		report.Drawn = append(report.Drawn, a.Label.Text)
	}

	report.Complete = matcher.Complete(assocs, labels)
	if report.Complete {
		if r.log != nil {
			r.log.WithField("labels", len(labels)).Debug("All fields located")
		}
		if r.onComplete != nil {
			r.onComplete(report)
		}
	}
	return report
}

func (r *Renderer) drawAssociation(sink Sink, tr Translator, a matcher.Association) {
	stroke := r.style.StrokeWidth
	text := FormatText(a.Label.Text, a.Value.Content)
	box := tr.TranslateRect(a.Value.Box)

	sink.StrokeRect(box, stroke, a.Label.Color)

	textWidth := r.measurer.Measure(text, r.style.TextSize)
	sink.FillRect(RectF{
		Left:   box.Left - stroke,
		Top:    box.Top - r.style.LabelHeight(),
		Right:  box.Left + textWidth + 2*stroke,
		Bottom: box.Top,
	}, a.Label.Color)

	sink.DrawText(text, PointF{X: box.Left, Y: box.Top - stroke}, r.style.TextSize, r.style.TextColor)
}
