package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/pipeline"
	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func volumeResult(t *testing.T) pipeline.Result {
	t.Helper()
	labels := matcher.DefaultLabels()
	lines := []recognition.TextLine{
		recognition.LineFromRect("Volume", recognition.Rect{Left: 0, Top: 100, Right: 80, Bottom: 200}),
		recognition.LineFromRect("120 mL", recognition.Rect{Left: 100, Top: 140, Right: 180, Bottom: 160}),
	}
	assocs, err := matcher.FindAssociations(lines, labels)
	require.NoError(t, err)

	info, err := overlay.NewSourceInfo(640, 480, 0, false)
	require.NoError(t, err)

	return pipeline.Result{
		Seq:          7,
		Source:       info,
		Frame:        recognition.Frame{Lines: lines, Width: 640, Height: 480},
		Associations: assocs,
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(Routes(hub, func() map[string]any {
		return map[string]any{"analyzed": 3}
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func TestBuildFrameMessage(t *testing.T) {
	res := volumeResult(t)
	msg, err := BuildFrameMessage(res, overlay.NewRenderer(), matcher.DefaultLabels(), Surface{})
	require.NoError(t, err)

	assert.Equal(t, MessageTypeFrame, msg.Type)
	assert.Equal(t, uint64(7), msg.Seq)
	assert.Equal(t, Surface{Width: 640, Height: 480}, msg.Surface)
	require.Len(t, msg.Commands, 3)
	assert.Equal(t, overlay.OpStrokeRect, msg.Commands[0].Op)
	assert.Equal(t, []string{"Volume"}, msg.Report.Drawn)
	assert.False(t, msg.Report.Complete)

	scaled, err := BuildFrameMessage(res, overlay.NewRenderer(), matcher.DefaultLabels(), Surface{Width: 1280, Height: 960})
	require.NoError(t, err)
	assert.Equal(t, 200.0, scaled.Commands[0].Rect.Left)
}

func TestBuildFrameMessage_EmptyFrameEncodesEmptyLists(t *testing.T) {
	res := volumeResult(t)
	res.Associations = nil

	msg, err := BuildFrameMessage(res, overlay.NewRenderer(), matcher.DefaultLabels(), Surface{})
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"commands":[]`)
	assert.Contains(t, string(data), `"associations":[]`)
}

func TestBuildFrameMessage_RejectsUnpublishedSource(t *testing.T) {
	res := volumeResult(t)
	res.Source = overlay.SourceInfo{}

	_, err := BuildFrameMessage(res, overlay.NewRenderer(), matcher.DefaultLabels(), Surface{})
	assert.ErrorIs(t, err, overlay.ErrZeroDimension)
}

func TestHub_BroadcastReachesViewer(t *testing.T) {
	hub, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.True(t, hub.Broadcast([]byte(`{"type":"frame"}`)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"frame"}`, string(data))

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub(quietLogger())
	for i := 0; i < broadcastQueue; i++ {
		require.True(t, hub.Broadcast([]byte("x")))
	}
	assert.False(t, hub.Broadcast([]byte("x")))
	assert.Equal(t, uint64(1), hub.Dropped())
}

func TestRoutes_Health(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["viewers"])
	assert.Equal(t, float64(3), body["analyzed"])

	post, err := http.Post(srv.URL+"/healthz", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestPublisher_Consume(t *testing.T) {
	hub := NewHub(quietLogger())
	var got []FrameMessage
	p := &Publisher{
		Hub:      hub,
		Renderer: overlay.NewRenderer(),
		Labels:   matcher.DefaultLabels(),
		Log:      quietLogger(),
		OnFrame:  func(_ pipeline.Result, m FrameMessage) { got = append(got, m) },
	}

	p.Consume(volumeResult(t))
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].Seq)

	queued := <-hub.broadcast
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(queued, &decoded))
	assert.Equal(t, "frame", decoded["type"])

	bad := volumeResult(t)
	bad.Source = overlay.SourceInfo{}
	p.Consume(bad)
	assert.Len(t, got, 1, "a frame that cannot be rendered is not published")
}
