package matcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidLabels is returned when a label list cannot be parsed or is inconsistent.
var ErrInvalidLabels = errors.New("invalid label specification")

// Label is one target field and the color it is drawn in.
type Label struct {
	Text  string
	Color colorful.Color
}

// MarshalJSON encodes the label as {"label": ..., "color": "#rrggbb"}.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label string `json:"label"`
		Color string `json:"color"`
	}{l.Text, l.Hex()})
}

// Hex returns the label color as "#rrggbb".
func (l Label) Hex() string {
	return l.Color.Hex()
}

// namedColors is the palette accepted by name in ParseColor.
var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"gray":    "#888888",
}

// ParseColor accepts a palette name ("green") or a hex string ("#00FF00", "#0f0").
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if hex, ok := namedColors[strings.ToLower(s)]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("failed to parse color %q: %w", s, err)
	}
	return c, nil
}

// DefaultLabels returns the ventilator readout fields in draw order.
func DefaultLabels() []Label {
	return []Label{
		{Text: "Volume", Color: mustColor("green")},
		{Text: "Compliance", Color: mustColor("red")},
		{Text: "Pressure", Color: mustColor("yellow")},
		{Text: "Gradient", Color: mustColor("magenta")},
	}
}

func mustColor(name string) colorful.Color {
	c, err := ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseLabels parses a comma-separated "Label=color" list, preserving order.
//
// Example:
//
//	labels, err := matcher.ParseLabels("Volume=green, Pressure=#FFFF00")
//
// Label text is taken verbatim apart from surrounding spaces, because
// matching is exact. Empty labels, duplicate labels and unknown colors are
// rejected.
func ParseLabels(spec string) ([]Label, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("%w: empty list", ErrInvalidLabels)
	}

	seen := make(map[string]bool)
	labels := make([]Label, 0)
	for _, entry := range strings.Split(spec, ",") {
		text, colorName, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not Label=color", ErrInvalidLabels, entry)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: empty label in %q", ErrInvalidLabels, entry)
		}
		if seen[text] {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidLabels, text)
		}
		seen[text] = true

		c, err := ParseColor(colorName)
		if err != nil {
			return nil, fmt.Errorf("%w: label %q: %v", ErrInvalidLabels, text, err)
		}
		labels = append(labels, Label{Text: text, Color: c})
	}
	return labels, nil
}

// FormatLabels renders labels back into the ParseLabels syntax.
func FormatLabels(labels []Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Text + "=" + l.Hex()
	}
	return strings.Join(parts, ",")
}
