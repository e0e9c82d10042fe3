// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes raido's mechanism catalog and solver for LLM
// integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/simservice"
)

// Server wraps the MCP server with raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *simservice.Service
}

// New creates a new MCP server with all raido tools registered.
func New(svc *simservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_mechanisms",
		mcp.WithDescription("List stored mechanisms (id, name, version)."),
		mcp.WithString("name", mcp.Description("Optional name substring filter")),
	), s.listMechanisms)

	s.mcp.AddTool(mcp.NewTool("get_mechanism",
		mcp.WithDescription("Read one mechanism's full joint/link definition."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mechanism id")),
	), s.getMechanism)

	s.mcp.AddTool(mcp.NewTool("simulate_mechanism",
		mcp.WithDescription("Sweep the mechanism's crank through a full revolution and "+
			"return the per-angle joint positions. Results are cached per mechanism "+
			"version and step count."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mechanism id")),
		mcp.WithNumber("steps", mcp.Description("Number of angle samples (default from config)")),
	), s.simulateMechanism)

	s.mcp.AddTool(mcp.NewTool("analyze_gait",
		mcp.WithDescription("Estimate forward walking speed for a foot joint of a leg "+
			"mechanism from its solved trajectory."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mechanism id")),
		mcp.WithNumber("joint", mcp.Required(), mcp.Description("Foot joint index")),
		mcp.WithNumber("rpm", mcp.Required(), mcp.Description("Crank rotation speed, revolutions per minute")),
		mcp.WithNumber("tolerance", mcp.Required(), mcp.Description("Ground-contact tolerance above the foot's lowest point")),
		mcp.WithNumber("steps", mcp.Description("Number of angle samples (default from config)")),
	), s.analyzeGait)

	s.mcp.AddTool(mcp.NewTool("export_trajectory_csv",
		mcp.WithDescription("Export the mechanism's trajectory in the tabular CSV format "+
			"(Theta (rad), Joint_1_x, Joint_1_y, ...)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mechanism id")),
		mcp.WithNumber("steps", mcp.Description("Number of angle samples (default from config)")),
	), s.exportTrajectoryCSV)

	// Resource: design file format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://design-format", "Design File Format",
			mcp.WithResourceDescription("Canonical YAML design file format for mechanisms."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDesignFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listMechanisms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	items, err := s.svc.ListMechanisms(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getMechanism(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.GetMechanism(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) simulateMechanism(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps := req.GetInt("steps", 0)

	traj, cached, err := s.svc.Simulate(ctx, id, steps, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary := map[string]any{
		"mechanism_id":      traj.MechanismID,
		"mechanism_version": traj.MechanismVersion,
		"steps":             traj.Steps,
		"fail_count":        traj.FailCount,
		"cached":            cached,
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzeGait(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	joint, err := req.RequireInt("joint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rpm, err := req.RequireFloat("rpm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tolerance, err := req.RequireFloat("tolerance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps := req.GetInt("steps", 0)

	res, err := s.svc.Gait(ctx, id, steps, joint, rpm, tolerance)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportTrajectoryCSV(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps := req.GetInt("steps", 0)

	var sb strings.Builder
	if err := s.svc.ExportCSV(ctx, id, steps, &sb); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) readDesignFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://design-format",
			MIMEType: "text/markdown",
			Text:     DesignFormatContract,
		},
	}, nil
}
