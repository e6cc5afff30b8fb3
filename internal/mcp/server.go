// Package mcp implements the Model Context Protocol stdio transport: a
// JSON-RPC 2.0 request/response loop over stdin/stdout exposing the seven
// memory tools (remember_facts, store_memory, recall_memories,
// forget_memory, recall_memory_block, replace_memory_block,
// append_memory_block) backed by an *core.Engine. It generalizes the
// teacher's internal/mcp/server.go scanner loop, method-dispatch switch,
// and rate-limiter integration from a multi-domain tool surface
// (memories, relationships, categories, sessions) down to the fact/memory
// engine's own seven operations.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/factengine/factengine/internal/core"
	"github.com/factengine/factengine/internal/logging"
	"github.com/factengine/factengine/internal/ratelimit"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName       = "factengine"
	ServerVersion    = "0.1.0"
)

// Server implements the MCP stdio server.
type Server struct {
	engine      *core.Engine
	rateLimiter *ratelimit.Limiter
	formatter   *Formatter
	log         *logging.Logger

	stdin  io.Reader
	stdout io.Writer

	mu          sync.Mutex
	initialized bool
}

// NewServer creates an MCP server over engine. rl may be nil, in which
// case rate limiting is disabled regardless of what ratelimit.Config says.
func NewServer(engine *core.Engine, rl *ratelimit.Limiter) *Server {
	return &Server{
		engine:      engine,
		rateLimiter: rl,
		formatter:   NewFormatter(),
		log:         logging.GetLogger("mcp"),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
	}
}

// Run starts the server's main loop, reading one JSON-RPC request per
// line until ctx is cancelled or stdin is closed.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("starting MCP server main loop")
	scanner := bufio.NewScanner(s.stdin)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, shutting down")
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		response := s.handleRequest(ctx, line)
		if response != nil {
			s.sendResponse(response)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Error("scanner error", "error", err)
		return fmt.Errorf("scanner error: %w", err)
	}

	s.log.Info("MCP server shutdown complete")
	return nil
}

func (s *Server) handleRequest(ctx context.Context, line string) *Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.log.Error("failed to parse request", "error", err)
		return &Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.JSONRPC != "2.0" {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidRequest,
				Message: "Invalid Request",
				Data:    "jsonrpc must be '2.0'",
			},
		}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    MethodNotFound,
				Message: "Method not found",
				Data:    req.Method,
			},
		}
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: ServerCapabilities{
				Tools: &ToolsCapability{ListChanged: false},
			},
			ServerInfo: ServerInfo{Name: ServerName, Version: ServerVersion},
		},
	}
}

func (s *Server) handleToolsList(req Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ToolsListResult{Tools: toolDefinitions()},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidParams,
				Message: "Invalid params",
				Data:    err.Error(),
			},
		}
	}

	s.log.LogRequest("tools/call", "tool", params.Name)

	if s.rateLimiter != nil {
		result := s.rateLimiter.Allow(params.Name)
		if !result.Allowed {
			s.log.Warn("rate limit exceeded", "tool", params.Name, "limit_type", result.LimitType, "retry_after_ms", result.RetryAfter.Milliseconds())
			return &Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: &RPCError{
					Code:    RateLimitExceeded,
					Message: "Rate limit exceeded",
					Data: RateLimitErrorData{
						RetryAfterMs: result.RetryAfter.Milliseconds(),
						LimitType:    result.LimitType,
						Message:      fmt.Sprintf("rate limit exceeded for %s, retry after %v", result.LimitType, result.RetryAfter),
					},
				},
			}
		}
	}

	start := time.Now()
	text, err := s.callTool(ctx, params.Name, params.Arguments)
	duration := time.Since(start).Seconds() * 1000

	if err != nil {
		s.log.LogError("tool_call", err, "tool", params.Name, "duration_ms", duration)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: CallToolResult{
				Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("error: %v", err)}},
				IsError: true,
			},
		}
	}

	s.log.LogResponse("tools/call", duration, "tool", params.Name)
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: text}},
		},
	}
}

func (s *Server) callTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal arguments: %w", err)
	}

	switch name {
	case "remember_facts":
		return s.handleRememberFacts(ctx, argsJSON)
	case "store_memory":
		return s.handleStoreMemory(ctx, argsJSON)
	case "recall_memories":
		return s.handleRecallMemories(ctx, argsJSON)
	case "forget_memory":
		return s.handleForgetMemory(ctx, argsJSON)
	case "recall_memory_block":
		return s.handleRecallMemoryBlock(argsJSON)
	case "replace_memory_block":
		return s.handleReplaceMemoryBlock(argsJSON)
	case "append_memory_block":
		return s.handleAppendMemoryBlock(argsJSON)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) sendResponse(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "error", err)
		return
	}
	fmt.Fprintln(s.stdout, string(data))
}
