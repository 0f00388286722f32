// Package refserver implements the minimal protocol-compliant reference
// server used as the system-under-test. A server answers a fixed set of
// methods deterministically, keyed by the identity string it was started
// with. It holds no state across requests; stdout writes are its only side
// effect.
package refserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcpconform/mcpconform/internal/jsonrpc"
	"github.com/mcpconform/mcpconform/internal/logctx"
	"github.com/mcpconform/mcpconform/mcp"
)

// maxLineBytes bounds a single inbound frame.
const maxLineBytes = 1 << 20

// Server answers newline-delimited JSON-RPC requests for one identity.
type Server struct {
	name     string
	log      *slog.Logger
	tools    map[string][]mcp.Tool
	handlers map[toolKey]toolFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request handling. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a reference server for the given identity. The capability
// tables are built once here and never mutated; unknown identities are valid
// and simply expose no tools.
func New(name string, opts ...Option) *Server {
	s := &Server{
		name:     name,
		log:      slog.Default(),
		tools:    builtinTools(),
		handlers: builtinHandlers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads one request per line from r and writes one response per line
// to w, until EOF, context cancellation, or a write failure. Blank lines are
// skipped; lines that do not parse as JSON-RPC requests are answered with a
// parse-error response correlated to a null id. Requests without an id are
// notifications and receive no response. Cancellation is a clean shutdown,
// not an error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			// The scanner reuses its buffer across Scan calls.
			buf := make([]byte, len(line))
			copy(buf, line)
			select {
			case lines <- buf:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				return nil
			}
			if err := s.serveLine(ctx, line, w); err != nil {
				return err
			}
		}
	}
}

// serveLine decodes and answers a single scanned line.
func (s *Server) serveLine(ctx context.Context, line []byte, w io.Writer) error {
	req, err := jsonrpc.DecodeRequest(line)
	if err != nil {
		resp := jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, fmt.Sprintf("Parse error: %v", err), nil)
		return s.writeResponse(w, resp)
	}

	rctx := logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String()})
	s.log.DebugContext(rctx, "received request")

	result, rpcErr := s.handle(rctx, req)
	if req.ID.IsNil() {
		// Fire-and-forget: no response frame, even on failure.
		if rpcErr != nil {
			s.log.WarnContext(rctx, "notification failed", slog.String("err", rpcErr.Message))
		}
		return nil
	}

	var resp *jsonrpc.Response
	if rpcErr != nil {
		resp = jsonrpc.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	} else {
		resp, err = jsonrpc.NewResultResponse(req.ID, result)
		if err != nil {
			resp = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, err.Error(), nil)
		}
	}
	return s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w io.Writer, resp *jsonrpc.Response) error {
	line, err := jsonrpc.EncodeLine(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// handle dispatches one decoded request. Unknown methods are protocol-level
// errors; tool-level failures are successful responses with IsError=true.
func (s *Server) handle(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		return s.initializeResult(), nil

	case mcp.ToolsListMethod:
		tools := s.tools[s.name]
		if tools == nil {
			tools = []mcp.Tool{}
		}
		return mcp.ListToolsResult{Tools: tools}, nil

	case mcp.ToolsCallMethod:
		if len(req.Params) == 0 {
			return nil, &jsonrpc.Error{Code: jsonrpc.ErrorCodeInternalError, Message: "Missing tool call parameters"}
		}
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.ErrorCodeInternalError, Message: fmt.Sprintf("Invalid tool call parameters: %v", err)}
		}
		handler, ok := s.handlers[toolKey{server: s.name, tool: params.Name}]
		if !ok {
			return unknownToolResult(params.Name), nil
		}
		return handler(params.Arguments), nil

	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.ErrorCodeMethodNotFound, Message: fmt.Sprintf("Unknown method: %s", req.Method)}
	}
}

// initializeResult reports the static capability descriptor every reference
// identity advertises.
func (s *Server) initializeResult() mcp.InitializeResult {
	return mcp.InitializeResult{
		ProtocolVersion: mcp.LatestProtocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged"`
			}{ListChanged: true},
			Resources: &struct {
				ListChanged bool `json:"listChanged"`
				Subscribe   bool `json:"subscribe"`
			}{ListChanged: true, Subscribe: true},
			Prompts: &struct {
				ListChanged bool `json:"listChanged"`
			}{ListChanged: true},
		},
		ServerInfo: mcp.ImplementationInfo{Name: s.name, Version: "1.0.0"},
	}
}
