// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes collaboration sessions as Model Context Protocol tools.
package mcp

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/colloquy/pkg/archive"
	"github.com/jllopis/colloquy/pkg/collab"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/scenario"
)

// Tool names.
const (
	ToolCollaborate  = "collaborate"
	ToolListPersonas = "list_personas"
)

// Server wraps an MCP server that runs sessions on an orchestrator.
type Server struct {
	mcpServer *server.MCPServer
	orch      *collab.Orchestrator
	archive   archive.Store
	log       *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithArchive stores every session a tool call produces.
func WithArchive(store archive.Store) Option {
	return func(s *Server) { s.archive = store }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates an MCP server with the collaboration tools registered.
func NewServer(name, version string, orch *collab.Orchestrator, opts ...Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		orch: orch,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.RegisterTool(mcp.NewTool(ToolCollaborate,
		mcp.WithDescription("Run a collaboration session: each persona answers in turn and the moderator summarizes."),
		mcp.WithString("query", mcp.Description("Question for the participants")),
		mcp.WithString("scenario", mcp.Description("Built-in scenario slug used instead of a query")),
	), s.collaborate)
	s.RegisterTool(mcp.NewTool(ToolListPersonas,
		mcp.WithDescription("List the session participants in speaking order."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listPersonas)
	return s
}

// RegisterTool adds a tool to the server.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves JSON-RPC over in and out until ctx ends or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) collaborate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if slug := strings.TrimSpace(req.GetString("scenario", "")); slug != "" {
		if query != "" {
			return toolError(errors.NewInvalidInputError("give either a query or a scenario, not both")), nil
		}
		sc, ok := scenario.Find(slug)
		if !ok {
			return toolError(errors.NewNotFoundError("scenario", slug)), nil
		}
		query = sc.Query
	}

	sess, err := s.orch.Run(ctx, query)
	if sess == nil {
		return toolError(err), nil
	}
	s.store(ctx, sess)

	res, merr := mcp.NewToolResultJSON(sess)
	if merr != nil {
		return nil, merr
	}
	res.IsError = err != nil
	return res, nil
}

func (s *Server) listPersonas(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(map[string]any{
		"personas": s.orch.Registry().Participants(),
	})
}

func (s *Server) store(ctx context.Context, sess *core.Session) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Save(context.WithoutCancel(ctx), sess); err != nil {
		s.log.WarnContext(ctx, "mcp.archive.failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultErrorFromErr("collaboration failed", err)
}
