// Package mcpadapter exposes the capture review flow and entity stores as
// MCP tools over stdio, so agent clients can triage pending captures.
package mcpadapter

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"capture_list": {
		def:     captureListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaptureList },
	},
	"capture_accept": {
		def:     captureAcceptToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaptureAccept },
	},
	"capture_reject": {
		def:     captureRejectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaptureReject },
	},
	"task_list": {
		def:     taskListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskList },
	},
	"task_update": {
		def:     taskUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskUpdate },
	},
	"reflection_list": {
		def:     reflectionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflectionList },
	},
	"goal_list": {
		def:     goalListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGoalList },
	},
	"goal_update": {
		def:     goalUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGoalUpdate },
	},
}

// AllToolNames returns a list of all registered tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates an MCP server with all capture tools registered.
func NewServer(handlers *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"dash-voice",
		version,
		server.WithToolCapabilities(true),
	)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(handlers))
	}
	return s
}

// Run serves the MCP server over stdio until the client disconnects.
func Run(handlers *Handlers, version string) error {
	return server.ServeStdio(NewServer(handlers, version))
}
