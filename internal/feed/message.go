package feed

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/pipeline"
)

// MessageTypeFrame tags FrameMessage values on the wire.
const MessageTypeFrame = "frame"

// Surface is the size of the drawing surface commands are translated to.
type Surface struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameMessage is sent to viewers once per analyzed frame. Commands are
// already translated to the surface and can be drawn as-is.
type FrameMessage struct {
	Type         string                `json:"type"`
	Seq          uint64                `json:"seq"`
	Source       overlay.SourceInfo    `json:"source"`
	Surface      Surface               `json:"surface"`
	Associations []matcher.Association `json:"associations"`
	Commands     []overlay.Command     `json:"commands"`
	Report       overlay.Report        `json:"report"`
}

// BuildFrameMessage renders res onto a surface of the given size. Zero
// dimensions default to the source size.
//
// The associations and commands are never null in the encoded message, so a
// frame without any located label is sent as empty lists. An error is
// returned when res carries no usable source info (overlay.ErrZeroDimension).
func BuildFrameMessage(res pipeline.Result, r *overlay.Renderer, labels []matcher.Label, surface Surface) (FrameMessage, error) {
	w, h := overlay.SurfaceSize(res.Source, surface.Width, surface.Height)
	tr, err := overlay.NewTranslator(res.Source, w, h)
	if err != nil {
		return FrameMessage{}, fmt.Errorf("failed to build translator: %w", err)
	}

	rec := overlay.NewRecorder()
	report := r.Render(rec, tr, res.Associations, labels)

	assocs := res.Associations
	if assocs == nil {
		assocs = []matcher.Association{}
	}
	cmds := rec.Commands()
	if cmds == nil {
		cmds = []overlay.Command{}
	}

	return FrameMessage{
		Type:         MessageTypeFrame,
		Seq:          res.Seq,
		Source:       res.Source,
		Surface:      Surface{Width: w, Height: h},
		Associations: assocs,
		Commands:     cmds,
		Report:       report,
	}, nil
}

// Publisher renders analyzed frames and broadcasts them on a Hub. Its
// Consume method is a pipeline.Consumer.
type Publisher struct {
	Hub      *Hub
	Renderer *overlay.Renderer
	Labels   []matcher.Label
	Surface  Surface
	Log      logrus.FieldLogger

	// OnFrame, if set, is called with every message after it is queued.
	OnFrame func(pipeline.Result, FrameMessage)
}

// Consume renders res and broadcasts it.
func (p *Publisher) Consume(res pipeline.Result) {
	msg, err := BuildFrameMessage(res, p.Renderer, p.Labels, p.Surface)
	if err != nil {
		p.Log.WithError(err).WithField("seq", res.Seq).Error("Failed to render frame")
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		p.Log.WithError(err).WithField("seq", res.Seq).Error("Failed to encode frame")
		return
	}

	if p.Hub != nil {
		p.Hub.Broadcast(data)
	}
	if p.OnFrame != nil {
		p.OnFrame(res, msg)
	}
}
