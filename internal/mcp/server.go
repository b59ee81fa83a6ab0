package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/email"
	"github.com/vijay-prabhu/mailcode/internal/resolver"
)

// Resolver runs one resolution
type Resolver interface {
	ResolveWithOptions(ctx context.Context, alias string, opts resolver.Options) (*email.ResolvedResult, error)
}

// StatusReporter describes the stored mailbox authorization
type StatusReporter interface {
	Status(ctx context.Context) auth.Status
}

// Server implements an MCP server over a line-delimited JSON-RPC stream
type Server struct {
	resolver Resolver
	status   StatusReporter
	logger   *zap.Logger
	version  string
	handlers map[string]ToolHandler
}

// ToolHandler is a function that handles a tool call
type ToolHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// JSON-RPC 2.0 types
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	Capabilities    struct {
		Tools     struct{} `json:"tools"`
		Resources struct{} `json:"resources"`
	} `json:"capabilities"`
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// New creates a new MCP server
func New(r Resolver, status StatusReporter, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver: r,
		status:   status,
		logger:   logger,
		version:  version,
		handlers: make(map[string]ToolHandler),
	}
	s.registerHandlers()
	return s
}

// Serve reads requests from in and writes responses to out until in is
// exhausted or ctx is canceled
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	encoder := json.NewEncoder(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if response := s.handleMessage(ctx, line); response != nil {
				if err := encoder.Encode(response); err != nil {
					return fmt.Errorf("write error: %w", err)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg []byte) *jsonRPCResponse {
	var req jsonRPCRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse(nil, codeParseError, "Parse error")
	}

	s.logger.Debug("mcp request", zap.String("method", req.Method))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "initialized":
		// Notification, no response
		return nil
	case "tools/list":
		return result(req.ID, toolsListResult{Tools: ToolDefinitions})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return result(req.ID, resourcesListResult{Resources: ResourceDefinitions})
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "Method not found")
	}
}

func result(id interface{}, v interface{}) *jsonRPCResponse {
	return &jsonRPCResponse{JSONRPC: "2.0", ID: id, Result: v}
}

func errorResponse(id interface{}, code int, msg string) *jsonRPCResponse {
	return &jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

func (s *Server) handleInitialize(req jsonRPCRequest) *jsonRPCResponse {
	res := initializeResult{
		ProtocolVersion: "2024-11-05",
	}
	res.ServerInfo.Name = "mailcode"
	res.ServerInfo.Version = s.version

	return result(req.ID, res)
}

func (s *Server) handleToolsCall(ctx context.Context, req jsonRPCRequest) *jsonRPCResponse {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params")
	}

	handler, ok := s.handlers[params.Name]
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}

	out, err := handler(ctx, params.Arguments)
	if err != nil {
		return result(req.ID, callToolResult{
			Content: []contentItem{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	// Convert result to JSON text
	var text string
	if str, ok := out.(string); ok {
		text = str
	} else {
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		text = string(jsonBytes)
	}

	return result(req.ID, callToolResult{
		Content: []contentItem{{Type: "text", Text: text}},
	})
}

func (s *Server) handleResourcesRead(ctx context.Context, req jsonRPCRequest) *jsonRPCResponse {
	var params readResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params")
	}

	text, err := s.handleReadResource(ctx, params.URI)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error())
	}

	return result(req.ID, readResourceResult{
		Contents: []resourceContent{
			{
				URI:      params.URI,
				MimeType: "text/plain",
				Text:     text,
			},
		},
	})
}
