package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/tools"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// Server represents the MCP server
type Server struct {
	logger  *logrus.Logger
	tools   *tools.Registry
	version string
	in      io.Reader
	out     io.Writer
}

// NewServer creates a new MCP server instance speaking JSON-RPC over stdio
func NewServer(registry *tools.Registry, version string, logger *logrus.Logger) *Server {
	return &Server{
		logger:  logger,
		tools:   registry,
		version: version,
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// Run serves requests until the input is closed or ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server with stdio transport")

	decoder := json.NewDecoder(s.in)
	encoder := json.NewEncoder(s.out)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var req map[string]interface{}
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.WithError(err).Error("Failed to decode request")
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				// The decoder cannot resync after malformed JSON.
				encoder.Encode(errorResponse(nil, codeParseError, "Parse error")) //nolint:errcheck
				return fmt.Errorf("malformed request stream: %w", err)
			}
			continue
		}

		resp := s.handleRequest(ctx, req)
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			s.logger.WithError(err).Error("Failed to encode response")
			continue
		}
	}
}

// handleRequest processes an MCP request. Notifications get no response.
func (s *Server) handleRequest(ctx context.Context, req map[string]interface{}) map[string]interface{} {
	method, _ := req["method"].(string)
	id, hasID := req["id"]

	if !hasID || strings.HasPrefix(method, "notifications/") {
		s.logger.WithField("method", method).Debug("Received notification")
		return nil
	}

	switch method {
	case "initialize":
		return resultResponse(id, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "mail-assistant",
				"version": s.version,
			},
		})

	case "ping":
		return resultResponse(id, map[string]interface{}{})

	case "tools/list":
		return resultResponse(id, map[string]interface{}{
			"tools": s.tools.GetToolDefinitions(),
		})

	case "tools/call":
		return s.callTool(ctx, id, req)
	}

	return errorResponse(id, codeMethodNotFound, fmt.Sprintf("Method not found: %s", method))
}

func (s *Server) callTool(ctx context.Context, id interface{}, req map[string]interface{}) map[string]interface{} {
	params, _ := req["params"].(map[string]interface{})
	toolName, _ := params["name"].(string)
	arguments, _ := params["arguments"].(map[string]interface{})
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	tool, exists := s.tools.GetTool(toolName)
	if !exists {
		return errorResponse(id, codeMethodNotFound, fmt.Sprintf("Tool not found: %s", toolName))
	}

	log := s.logger.WithField("tool", toolName)
	result, err := tool.Execute(ctx, arguments)
	if err != nil {
		log.WithError(err).Warn("Tool call failed")
		return errorResponse(id, codeInternalError, err.Error())
	}
	log.Debug("Tool call completed")

	// Serialize result to JSON string for text content
	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(fmt.Sprintf("%v", result))
	}

	return resultResponse(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(resultJSON),
			},
		},
	})
}

func resultResponse(id interface{}, result interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
}

func errorResponse(id interface{}, code int, message string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}
