package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

const (
	ServerName    = "winstate"
	ServerVersion = "0.1.0"
)

// WindowService is the daemon surface the tools need. *ipc.Client
// satisfies it.
type WindowService interface {
	ListWindows() ([]lifecycle.Record, error)
	GetWindow(id event.WindowID) (*lifecycle.Record, error)
	CreateWindow(desc *event.Descriptor) (event.WindowID, error)
	CloseWindow(id event.WindowID) error
}

// Server is the MCP server exposing daemon windows as tools.
type Server struct {
	mcpServer *mcpsdk.Server
	windows   WindowService
	logger    *slog.Logger
}

// NewServer creates a new MCP server backed by svc.
func NewServer(svc WindowService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		windows: svc,
		logger:  logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the windows tracked by the winstate daemon with their lifecycle state, logical size, position and focus. Optionally filter by state.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Get the full record of one tracked window, including cursor, typed character count and dropped files.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_window",
		Description: "Ask the daemon to open a new window. The window is live once it shows up as 'live' in list_windows. Returns the window identity.",
	}, s.handleCreateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Destroy a window. The record moves to 'closed' once the window system confirms.",
	}, s.handleCloseWindow)
}
