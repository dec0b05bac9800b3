package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/field-overlay-mcp/internal/config"
	"github.com/ironsheep/field-overlay-mcp/internal/imaging"
	"github.com/ironsheep/field-overlay-mcp/internal/matcher"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
)

// ProtocolVersion is the MCP revision the server speaks.
const ProtocolVersion = "2024-11-05"

// Name is reported to clients in serverInfo.
const Name = "field-overlay-mcp"

// Version is reported to clients in serverInfo. Set by the command at startup.
var Version = "dev"

// maxRequestSize bounds one JSON-RPC line.
const maxRequestSize = 4 * 1024 * 1024

// Server handles MCP protocol communication
type Server struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	cache    *imaging.ImageCache
	matcher  *matcher.Matcher
	renderer *overlay.Renderer
	engine   ocr.Engine
	source   *overlay.SourceCell

	in  io.Reader
	out io.Writer

	// surface is the drawing surface size of the current session.
	mu      sync.Mutex
	surface surfaceSize
}

type surfaceSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Logs must not go to the output stream.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithEngine sets the OCR engine used by the OCR tools. Without one those
// tools fail.
func WithEngine(e ocr.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// WithSourceCell shares the session cell with other components, such as
// the frame analyzer.
func WithSourceCell(cell *overlay.SourceCell) Option {
	return func(s *Server) { s.source = cell }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// New creates a new MCP server instance
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		cache:   imaging.NewImageCache(),
		matcher: cfg.Matcher(),
		source:  &overlay.SourceCell{},
		in:      os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = overlay.NewRenderer(
		overlay.WithStyle(cfg.Style()),
		overlay.WithLogger(s.log),
	)
	return s
}

// Run reads line-delimited requests until the input ends or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)

	encoder := json.NewEncoder(s.out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("Failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Debug("Request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
			},
		},
	}
}
