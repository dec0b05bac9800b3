package matcher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

// band creates a line whose four corners have the given y values and span x1..x2.
func band(text string, x1, x2 int, ys [4]int) recognition.TextLine {
	line, err := recognition.NewTextLine(text, []recognition.Point{
		{X: x1, Y: ys[0]}, {X: x2, Y: ys[1]}, {X: x2, Y: ys[2]}, {X: x1, Y: ys[3]},
	})
	if err != nil {
		panic(err)
	}
	return line
}

// row creates an axis-aligned line from top to bottom.
func row(text string, x1, x2, top, bottom int) recognition.TextLine {
	return band(text, x1, x2, [4]int{top, top, bottom, bottom})
}

func texts(assocs []Association) [][2]string {
	out := make([][2]string, len(assocs))
	for i, a := range assocs {
		out[i] = [2]string{a.Label.Text, a.Value.Content}
	}
	return out
}

func TestFindAssociations_EmptyFrame(t *testing.T) {
	assocs, err := FindAssociations(nil, DefaultLabels())
	require.NoError(t, err)
	assert.Empty(t, assocs)

	assocs, err = FindAssociations([]recognition.TextLine{}, DefaultLabels())
	require.NoError(t, err)
	assert.Empty(t, assocs)
}

func TestFindAssociations_VolumeExample(t *testing.T) {
	lines := []recognition.TextLine{
		band("Volume", 10, 90, [4]int{100, 100, 200, 200}),
		band("120 mL", 120, 200, [4]int{140, 140, 160, 160}),
	}

	assocs, err := FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	require.Len(t, assocs, 1)

	assert.Equal(t, "Volume", assocs[0].Label.Text)
	assert.Equal(t, "120 mL", assocs[0].Value.Content)
	assert.Equal(t, "Volume", assocs[0].LabelLine.Content)
}

func TestFindAssociations_StrictBandBoundary(t *testing.T) {
	tests := []struct {
		name  string
		ys    [4]int
		match bool
	}{
		{"mean equals minY", [4]int{90, 90, 110, 110}, false},
		{"mean equals maxY", [4]int{190, 190, 210, 210}, false},
		{"mean just inside top", [4]int{91, 91, 111, 111}, true},
		{"mean just inside bottom", [4]int{189, 189, 209, 209}, true},
		{"mean above band", [4]int{10, 10, 30, 30}, false},
		{"fractional mean inside", [4]int{100, 100, 100, 101}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := []recognition.TextLine{
				row("Volume", 10, 90, 100, 200),
				band("value", 120, 200, tt.ys),
			}
			assocs, err := FindAssociations(lines, DefaultLabels())
			require.NoError(t, err)
			if tt.match {
				require.Len(t, assocs, 1)
				assert.Equal(t, "value", assocs[0].Value.Content)
			} else {
				assert.Empty(t, assocs)
			}
		})
	}
}

func TestFindAssociations_LabelWithoutValue(t *testing.T) {
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("far away", 10, 90, 400, 450),
	}
	assocs, err := FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	assert.Empty(t, assocs)
}

func TestFindAssociations_LabelsAreIndependent(t *testing.T) {
	withVolume := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("120 mL", 120, 200, 140, 160),
		row("Pressure", 10, 90, 300, 400),
		row("20 cmH2O", 120, 200, 340, 360),
	}
	withoutVolume := withVolume[2:]

	got, err := FindAssociations(withVolume, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "120 mL"}, {"Pressure", "20 cmH2O"}}, texts(got))

	got, err = FindAssociations(withoutVolume, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Pressure", "20 cmH2O"}}, texts(got))
}

func TestFindAssociations_UnknownLabelIgnored(t *testing.T) {
	labels := []Label{{Text: "Temperature"}, {Text: "Volume"}}
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("500", 120, 200, 140, 160),
	}
	got, err := FindAssociations(lines, labels)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "500"}}, texts(got))
}

func TestFindAssociations_ExactCaseSensitiveMatch(t *testing.T) {
	for _, text := range []string{"volume", "VOLUME", " Volume", "Volume ", "Volume:"} {
		t.Run(text, func(t *testing.T) {
			lines := []recognition.TextLine{
				row(text, 10, 90, 100, 200),
				row("120 mL", 120, 200, 140, 160),
			}
			got, err := FindAssociations(lines, DefaultLabels())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestFindAssociations_RepeatedLabelTextExcluded(t *testing.T) {
	// A second "Volume" sits inside the band but is never its own value.
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("Volume", 300, 380, 140, 160),
	}
	got, err := FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	assert.Empty(t, got)

	lines = append(lines, row("450", 120, 200, 130, 170))
	got, err = FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "450"}}, texts(got))
}

func TestFindAssociations_OtherLabelCanBeValue(t *testing.T) {
	// Exclusion is keyed to the label line, so "Pressure" may serve as Volume's value.
	// Volume's center (150) lies outside Pressure's band, so the reverse pair does not form.
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("Pressure", 120, 200, 160, 180),
	}
	got, err := FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "Pressure"}}, texts(got))
}

func TestFindAssociations_LabelsCanPairWithEachOther(t *testing.T) {
	// Each line's center lies inside the other's band.
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("Pressure", 120, 200, 140, 160),
	}
	got, err := FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "Pressure"}, {"Pressure", "Volume"}}, texts(got))
}

func TestFindAssociations_OrderFollowsLabelList(t *testing.T) {
	lines := []recognition.TextLine{
		row("Gradient", 10, 90, 700, 800),
		row("3", 120, 200, 740, 760),
		row("Pressure", 10, 90, 500, 600),
		row("20", 120, 200, 540, 560),
		row("Compliance", 10, 90, 300, 400),
		row("45", 120, 200, 340, 360),
		row("Volume", 10, 90, 100, 200),
		row("120", 120, 200, 140, 160),
	}
	want := [][2]string{{"Volume", "120"}, {"Compliance", "45"}, {"Pressure", "20"}, {"Gradient", "3"}}

	got, err := FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, want, texts(got))

	// Reversing the input does not change output order.
	reversed := make([]recognition.TextLine, len(lines))
	for i, l := range lines {
		reversed[len(lines)-1-i] = l
	}
	got, err = FindAssociations(reversed, DefaultLabels())
	require.NoError(t, err)
	assert.Equal(t, want, texts(got))
}

func TestFindAssociations_DoesNotMutateInput(t *testing.T) {
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("120 mL", 120, 200, 140, 160),
	}
	before, err := json.Marshal(lines)
	require.NoError(t, err)

	_, err = FindAssociations(lines, DefaultLabels())
	require.NoError(t, err)

	after, err := json.Marshal(lines)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestFindAssociations_MalformedLine(t *testing.T) {
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		{Content: "broken", Corners: []recognition.Point{{X: 1, Y: 150}, {X: 2, Y: 150}, {X: 2, Y: 160}}},
	}
	got, err := FindAssociations(lines, DefaultLabels())
	assert.ErrorIs(t, err, recognition.ErrMalformedLine)
	assert.Nil(t, got)
}

func TestFindAssociations_TieBreak(t *testing.T) {
	// Two readouts share Volume's band; the far one comes first in engine order.
	lines := []recognition.TextLine{
		row("Volume", 10, 90, 100, 200),
		row("far", 600, 700, 140, 160),
		row("near", 100, 180, 145, 165),
	}

	got, err := New(DefaultLabels()).FindAssociations(lines)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "far"}}, texts(got))

	got, err = New(DefaultLabels(), WithTieBreak(NearestHorizontal)).FindAssociations(lines)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "near"}}, texts(got))
}

func TestFindAssociations_NearestKeepsInputOrderOnEqualDistance(t *testing.T) {
	lines := []recognition.TextLine{
		row("Volume", 100, 200, 100, 200), // center x 150
		row("left", 0, 100, 140, 160),     // center x 50
		row("right", 200, 300, 140, 160),  // center x 250
	}
	got, err := New(DefaultLabels(), WithTieBreak(NearestHorizontal)).FindAssociations(lines)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Volume", "left"}}, texts(got))
}

func TestParseTieBreak(t *testing.T) {
	tests := []struct {
		in      string
		want    TieBreak
		wantErr bool
	}{
		{"", FirstFound, false},
		{"first", FirstFound, false},
		{"NEAREST", NearestHorizontal, false},
		{"closest", FirstFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTieBreak(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) TieBreak {
	t.Helper()
	tb, err := ParseTieBreak(s)
	require.NoError(t, err)
	return tb
}

func TestComplete(t *testing.T) {
	labels := DefaultLabels()
	all := make([]Association, len(labels))
	for i, l := range labels {
		all[i] = Association{Label: l}
	}

	assert.True(t, Complete(all, labels))
	assert.False(t, Complete(all[:3], labels))
	assert.False(t, Complete(nil, labels))
	assert.False(t, Complete(nil, nil))
}

func TestMatcher_LabelsCopied(t *testing.T) {
	labels := DefaultLabels()
	m := New(labels)
	labels[0].Text = "changed"

	assert.Equal(t, "Volume", m.Labels()[0].Text)

	got := m.Labels()
	got[1].Text = "changed"
	assert.Equal(t, "Compliance", m.Labels()[1].Text)
}
