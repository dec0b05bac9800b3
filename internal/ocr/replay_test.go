package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

const volumeRecording = `{
	"width": 640, "height": 480, "rotation": 90, "flipped": true,
	"lines": [
		{"text": "Volume", "corners": [{"x":10,"y":100},{"x":80,"y":100},{"x":80,"y":200},{"x":10,"y":200}]},
		{"text": "120 mL", "corners": [{"x":100,"y":140},{"x":180,"y":140},{"x":180,"y":160},{"x":100,"y":160}]}
	]
}`

func TestReadRecording(t *testing.T) {
	frame, err := ReadRecording(strings.NewReader(volumeRecording))
	require.NoError(t, err)

	assert.Equal(t, 640, frame.Width)
	assert.Equal(t, 480, frame.Height)
	assert.Equal(t, 90, frame.Rotation)
	assert.True(t, frame.Flipped)
	require.Len(t, frame.Lines, 2)
	assert.Equal(t, "120 mL", frame.Lines[1].Content)
	assert.Equal(t, recognition.Rect{Left: 100, Top: 140, Right: 180, Bottom: 160}, frame.Lines[1].Box)
}

func TestReadRecording_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"three corners", `{"width":1,"height":1,"lines":[{"text":"a","corners":[{"x":0,"y":0},{"x":1,"y":0},{"x":1,"y":1}]}]}`, recognition.ErrMalformedLine},
		{"zero width", `{"width":0,"height":1,"lines":[]}`, recognition.ErrInvalidDimensions},
		{"bad rotation", `{"width":1,"height":1,"rotation":45,"lines":[]}`, recognition.ErrInvalidRotation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecording(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ReadRecording(strings.NewReader("{"))
	assert.ErrorContains(t, err, "failed to decode recording")
}

func TestRecordFrame_RoundTrip(t *testing.T) {
	frame, err := ReadRecording(strings.NewReader(volumeRecording))
	require.NoError(t, err)

	data, err := json.Marshal(RecordFrame(frame))
	require.NoError(t, err)

	again, err := ReadRecording(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, frame, again)
}

func TestLoadRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.json")
	require.NoError(t, os.WriteFile(path, []byte(volumeRecording), 0o600))

	frame, err := LoadRecording(path)
	require.NoError(t, err)
	assert.Len(t, frame.Lines, 2)

	_, err = LoadRecording(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to open recording")
}

func TestReplay(t *testing.T) {
	a := recognition.Frame{Width: 10, Height: 10, Lines: []recognition.TextLine{
		recognition.LineFromRect("a", recognition.Rect{Right: 1, Bottom: 1}),
	}}
	b := recognition.Frame{Width: 20, Height: 20}
	ctx := context.Background()

	engine := NewReplay(a, b)

	got, err := engine.Recognize(ctx, nil, FrameMeta{})
	require.NoError(t, err)
	assert.Equal(t, a, got)

	// returned lines do not alias the recording
	got.Lines[0].Content = "changed"
	got, err = engine.Recognize(ctx, nil, FrameMeta{})
	require.NoError(t, err)
	assert.Equal(t, 20, got.Width)

	_, err = engine.Recognize(ctx, nil, FrameMeta{})
	assert.ErrorIs(t, err, ErrExhausted)
	var engErr *EngineError
	assert.True(t, errors.As(err, &engErr))

	loop := NewLoopingReplay(a)
	for i := 0; i < 3; i++ {
		got, err := loop.Recognize(ctx, nil, FrameMeta{})
		require.NoError(t, err)
		assert.Equal(t, "a", got.Lines[0].Content)
	}
}

func TestReplay_Empty(t *testing.T) {
	_, err := NewLoopingReplay().Recognize(context.Background(), nil, FrameMeta{})
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReplay(recognition.Frame{Width: 1, Height: 1}).Recognize(ctx, nil, FrameMeta{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineFunc(t *testing.T) {
	var e Engine = EngineFunc(func(context.Context, image.Image, FrameMeta) (recognition.Frame, error) {
		return recognition.Frame{Width: 7}, nil
	})
	f, err := e.Recognize(context.Background(), nil, FrameMeta{})
	require.NoError(t, err)
	assert.Equal(t, 7, f.Width)
}
