package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// TieBreak selects among several lines that qualify as a label's value.
type TieBreak int

const (
	// FirstFound picks the first qualifying line in input order.
	FirstFound TieBreak = iota

	// NearestHorizontal picks the qualifying line whose horizontal center is
	// closest to the label line's horizontal center.
	NearestHorizontal
)

// String returns the configuration name of the policy.
func (t TieBreak) String() string {
	switch t {
	case NearestHorizontal:
		return "nearest"
	default:
		return "first"
	}
}

// ParseTieBreak accepts "first" or "nearest" (case-insensitive).
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstFound, nil
	case "nearest":
		return NearestHorizontal, nil
	default:
		return FirstFound, fmt.Errorf("unknown tie-break policy %q (want first or nearest)", s)
	}
}

// Association pairs a label with the value line found for it in one frame.
type Association struct {
	Label     Label                `json:"label"`
	LabelLine recognition.TextLine `json:"label_line"`
	Value     recognition.TextLine `json:"value"`
}

// Matcher runs FindAssociations with a fixed label list and tie-break policy.
// A Matcher holds no per-frame state and is safe for concurrent use.
type Matcher struct {
	labels   []Label
	tieBreak TieBreak
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTieBreak sets the tie-break policy. The default is FirstFound.
func WithTieBreak(t TieBreak) Option {
	return func(m *Matcher) { m.tieBreak = t }
}

// New creates a Matcher for labels. The slice is copied.
func New(labels []Label, opts ...Option) *Matcher {
	m := &Matcher{labels: append([]Label(nil), labels...)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Labels returns a copy of the configured labels in draw order.
func (m *Matcher) Labels() []Label {
	return append([]Label(nil), m.labels...)
}

// TieBreak returns the configured policy.
func (m *Matcher) TieBreak() TieBreak {
	return m.tieBreak
}

// FindAssociations matches every configured label against lines.
// See the package documentation for the algorithm.
//
// Parameters:
//   - lines: every text line recognized in one frame, in any order. The
//     slice and its lines are not modified.
//
// Returns:
//   - []Association: at most one entry per label, in label order. A label
//     whose line or value is missing is absent.
//   - error: wraps recognition.ErrMalformedLine with the offending index
//     when a line does not have exactly four corners.
func (m *Matcher) FindAssociations(lines []recognition.TextLine) ([]Association, error) {
	if err := recognition.ValidateLines(lines); err != nil {
		return nil, err
	}

	assocs := make([]Association, 0, len(m.labels))
	for _, label := range m.labels {
		key, ok := findLabelLine(lines, label.Text)
		if !ok {
			continue
		}
		value, ok := m.findValueLine(lines, key)
		if !ok {
			continue
		}
		assocs = append(assocs, Association{Label: label, LabelLine: key, Value: value})
	}
	return assocs, nil
}

// FindAssociations matches labels against lines with the FirstFound policy.
func FindAssociations(lines []recognition.TextLine, labels []Label) ([]Association, error) {
	return New(labels).FindAssociations(lines)
}

// findLabelLine returns the first line whose content equals text exactly.
func findLabelLine(lines []recognition.TextLine, text string) (recognition.TextLine, bool) {
	for _, line := range lines {
		if line.Content == text {
			return line, true
		}
	}
	return recognition.TextLine{}, false
}

// findValueLine returns the line chosen as key's value, if any.
func (m *Matcher) findValueLine(lines []recognition.TextLine, key recognition.TextLine) (recognition.TextLine, bool) {
	minY, maxY := key.VerticalSpan()
	lo, hi := float64(minY), float64(maxY)

	best := -1
	bestDist := math.Inf(1)
	keyX := key.CenterX()

	for i, line := range lines {
		if line.Content == key.Content {
			continue
		}
		mid := line.CenterY()
		if mid <= lo || mid >= hi {
			continue
		}
		if m.tieBreak == FirstFound {
			return line, true
		}
		// strict < keeps the earlier line on equal distance
		if d := math.Abs(line.CenterX() - keyX); d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return recognition.TextLine{}, false
	}
	return lines[best], true
}

// Complete reports whether assocs covers every label in labels.
// An empty label list is never complete.
func Complete(assocs []Association, labels []Label) bool {
	if len(labels) == 0 {
		return false
	}
	found := make(map[string]bool, len(assocs))
	for _, a := range assocs {
		found[a.Label.Text] = true
	}
	for _, l := range labels {
		if !found[l.Text] {
			return false
		}
	}
	return true
}
