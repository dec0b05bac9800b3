package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
)

var (
	// ErrNoSession is returned by tools that need a published session.
	ErrNoSession = errors.New("no session started")

	// ErrNoEngine is returned by OCR tools when the server has no engine.
	ErrNoEngine = errors.New("no OCR engine configured")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Debug("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "overlay_labels":
		return s.handleLabels()
	case "overlay_session_start":
		return s.handleSessionStart(args)
	case "overlay_session_reset":
		return s.handleSessionReset()
	case "overlay_find_associations":
		return s.handleFindAssociations(args)
	case "overlay_translate":
		return s.handleTranslate(args)
	case "overlay_render":
		return s.handleRender(args)
	case "overlay_ocr_lines":
		return s.handleOCRLines(ctx, args)
	case "overlay_annotate_image":
		return s.handleAnnotateImage(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as an
// empty object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// === Labels and session ===

type labelsResult struct {
	Labels   []matcher.Label `json:"labels"`
	TieBreak string          `json:"tie_break"`
}

func (s *Server) handleLabels() (interface{}, error) {
	return labelsResult{
		Labels:   s.matcher.Labels(),
		TieBreak: s.matcher.TieBreak().String(),
	}, nil
}

type sessionStartArgs struct {
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Rotation      int      `json:"rotation"`
	Flipped       *bool    `json:"flipped"`
	SurfaceWidth  *float64 `json:"surface_width"`
	SurfaceHeight *float64 `json:"surface_height"`
}

type sessionResult struct {
	Source  overlay.SourceInfo `json:"source"`
	Surface surfaceSize        `json:"surface"`
	ScaleX  float64            `json:"scale_x"`
	ScaleY  float64            `json:"scale_y"`
}

func (s *Server) handleSessionStart(args json.RawMessage) (interface{}, error) {
	var a sessionStartArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	flipped := s.cfg.Flipped
	if a.Flipped != nil {
		flipped = *a.Flipped
	}
	info, err := overlay.NewSourceInfo(a.Width, a.Height, a.Rotation, flipped)
	if err != nil {
		return nil, err
	}

	requested := surfaceSize{Width: s.cfg.SurfaceWidth, Height: s.cfg.SurfaceHeight}
	if a.SurfaceWidth != nil {
		requested.Width = *a.SurfaceWidth
	}
	if a.SurfaceHeight != nil {
		requested.Height = *a.SurfaceHeight
	}

	tr, err := translatorFor(info, requested)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.surface = requested
	s.source.Replace(info)
	s.mu.Unlock()

	s.log.WithField("session", info.Session).
		WithField("source", fmt.Sprintf("%dx%d", info.Width, info.Height)).
		WithField("flipped", info.Flipped).
		Info("Session started")

	return sessionResult{
		Source:  info,
		Surface: surfaceSize{Width: tr.SurfaceWidth(), Height: tr.SurfaceHeight()},
		ScaleX:  tr.ScaleX(),
		ScaleY:  tr.ScaleY(),
	}, nil
}

type sessionResetResult struct {
	Ended string `json:"ended,omitempty"`
}

// handleSessionReset clears the session cell and any surface size set by
// overlay_session_start. Resetting without a session is not an error.
func (s *Server) handleSessionReset() (interface{}, error) {
	s.mu.Lock()
	info, ok := s.source.Load()
	s.source.Reset()
	s.surface = surfaceSize{}
	s.mu.Unlock()

	if !ok {
		return sessionResetResult{}, nil
	}
	s.log.WithField("session", info.Session).Info("Session reset")
	return sessionResetResult{Ended: info.Session}, nil
}

// translator returns the translator of the current session. A session
// published by the frame analyzer uses the configured surface size.
func (s *Server) translator() (overlay.Translator, error) {
	s.mu.Lock()
	requested := s.surface
	s.mu.Unlock()

	info, ok := s.source.Load()
	if !ok {
		return overlay.Translator{}, ErrNoSession
	}
	if requested == (surfaceSize{}) {
		requested = surfaceSize{Width: s.cfg.SurfaceWidth, Height: s.cfg.SurfaceHeight}
	}
	return translatorFor(info, requested)
}

func translatorFor(info overlay.SourceInfo, requested surfaceSize) (overlay.Translator, error) {
	w, h := overlay.SurfaceSize(info, requested.Width, requested.Height)
	return overlay.NewTranslator(info, w, h)
}

// === Matching and rendering ===

type lineArg struct {
	Text    string              `json:"text"`
	Corners []recognition.Point `json:"corners"`
}

type linesArgs struct {
	Lines []lineArg `json:"lines"`
}

func toTextLines(in []lineArg) ([]recognition.TextLine, error) {
	lines := make([]recognition.TextLine, 0, len(in))
	for i, l := range in {
		line, err := recognition.NewTextLine(l.Text, l.Corners)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Server) associate(args json.RawMessage) ([]matcher.Association, error) {
	var a linesArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	lines, err := toTextLines(a.Lines)
	if err != nil {
		return nil, err
	}
	assocs, err := s.matcher.FindAssociations(lines)
	if err != nil {
		return nil, err
	}
	return orEmpty(assocs), nil
}

type associationsResult struct {
	Associations []matcher.Association `json:"associations"`
	AllFound     bool                  `json:"all_found"`
}

func (s *Server) handleFindAssociations(args json.RawMessage) (interface{}, error) {
	assocs, err := s.associate(args)
	if err != nil {
		return nil, err
	}
	return associationsResult{
		Associations: assocs,
		AllFound:     matcher.Complete(assocs, s.matcher.Labels()),
	}, nil
}

type translateArgs struct {
	Points []recognition.Point `json:"points"`
	Rects  []recognition.Rect  `json:"rects"`
}

type translateResult struct {
	Session string           `json:"session"`
	Points  []overlay.PointF `json:"points"`
	Rects   []overlay.RectF  `json:"rects"`
}

func (s *Server) handleTranslate(args json.RawMessage) (interface{}, error) {
	var a translateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	tr, err := s.translator()
	if err != nil {
		return nil, err
	}

	res := translateResult{
		Session: tr.Source().Session,
		Points:  make([]overlay.PointF, 0, len(a.Points)),
		Rects:   make([]overlay.RectF, 0, len(a.Rects)),
	}
	for _, p := range a.Points {
		res.Points = append(res.Points, tr.TranslatePoint(p))
	}
	for _, r := range a.Rects {
		res.Rects = append(res.Rects, tr.TranslateRect(r))
	}
	return res, nil
}

type renderResult struct {
	Session      string                `json:"session"`
	Associations []matcher.Association `json:"associations"`
	Commands     []overlay.Command     `json:"commands"`
	Report       overlay.Report        `json:"report"`
}

func (s *Server) handleRender(args json.RawMessage) (interface{}, error) {
	tr, err := s.translator()
	if err != nil {
		return nil, err
	}
	assocs, err := s.associate(args)
	if err != nil {
		return nil, err
	}

	rec := overlay.NewRecorder()
	report := s.renderer.Render(rec, tr, assocs, s.matcher.Labels())

	return renderResult{
		Session:      tr.Source().Session,
		Associations: assocs,
		Commands:     orEmpty(rec.Commands()),
		Report:       report,
	}, nil
}

// === OCR ===

type imageFrameArgs struct {
	Path       string `json:"path"`
	Rotation   int    `json:"rotation"`
	Flipped    *bool  `json:"flipped"`
	OutputPath string `json:"output_path"`
}

// recognizedImage is a frame file read from disk and its recognition result.
type recognizedImage struct {
	args  imageFrameArgs
	img   image.Image
	frame recognition.Frame
}

// recognize loads the frame named by args and runs the engine on it. The
// image cache decodes the file again whenever it changed on disk.
func (s *Server) recognize(ctx context.Context, args json.RawMessage) (recognizedImage, error) {
	var r recognizedImage
	if err := unmarshalArgs(args, &r.args); err != nil {
		return r, err
	}
	if s.engine == nil {
		return r, ErrNoEngine
	}
	if r.args.Path == "" {
		return r, errors.New("path is required")
	}

	meta := ocr.FrameMeta{Rotation: r.args.Rotation, Flipped: s.cfg.Flipped}
	if r.args.Flipped != nil {
		meta.Flipped = *r.args.Flipped
	}
	if !recognition.ValidRotation(meta.Rotation) {
		return r, fmt.Errorf("%w: %d", recognition.ErrInvalidRotation, meta.Rotation)
	}

	img, err := s.cache.Load(r.args.Path)
	if err != nil {
		return r, err
	}
	s.log.WithField("path", r.args.Path).WithField("cached", s.cache.Len()).Debug("Frame loaded")

	frame, err := s.engine.Recognize(ctx, img, meta)
	if err != nil {
		return r, err
	}
	frame.Lines = orEmpty(frame.Lines)

	r.img, r.frame = img, frame
	return r, nil
}

func (s *Server) handleOCRLines(ctx context.Context, args json.RawMessage) (interface{}, error) {
	r, err := s.recognize(ctx, args)
	if err != nil {
		return nil, err
	}
	return r.frame, nil
}

type annotateResult struct {
	Source       overlay.SourceInfo    `json:"source"`
	Associations []matcher.Association `json:"associations"`
	Commands     []overlay.Command     `json:"commands"`
	AllFound     bool                  `json:"all_found"`
	OutputPath   string                `json:"output_path,omitempty"`
	Image        *imaging.EncodedImage `json:"image"`
}

// handleAnnotateImage draws the overlay onto the frame itself. The frame is
// rotated upright (and mirrored for a flipped source) so the drawing surface
// is the displayed image.
func (s *Server) handleAnnotateImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	r, err := s.recognize(ctx, args)
	if err != nil {
		return nil, err
	}
	frame := r.frame

	assocs, err := s.matcher.FindAssociations(frame.Lines)
	if err != nil {
		return nil, err
	}
	assocs = orEmpty(assocs)

	canvas, err := imaging.NewDisplayCanvas(r.img, frame.Rotation, frame.Flipped)
	if err != nil {
		return nil, err
	}

	info, err := overlay.SourceInfoForFrame(frame)
	if err != nil {
		return nil, err
	}
	bounds := canvas.Image().Bounds()
	tr, err := overlay.NewTranslator(info, float64(bounds.Dx()), float64(bounds.Dy()))
	if err != nil {
		return nil, err
	}

	rec := overlay.NewRecorder()
	report := s.renderer.Render(rec, tr, assocs, s.matcher.Labels())
	cmds := orEmpty(rec.Commands())
	overlay.Replay(cmds, canvas)

	encoded, err := imaging.EncodePNG(canvas.Image())
	if err != nil {
		return nil, err
	}
	if r.args.OutputPath != "" {
		if err := canvas.Save(r.args.OutputPath); err != nil {
			return nil, err
		}
	}

	return annotateResult{
		Source:       info,
		Associations: assocs,
		Commands:     cmds,
		AllFound:     report.Complete,
		OutputPath:   r.args.OutputPath,
		Image:        encoded,
	}, nil
}
