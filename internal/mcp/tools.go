package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	var filter lifecycle.State
	if args.State != "" {
		if err := filter.UnmarshalText([]byte(args.State)); err != nil {
			return nil, ListWindowsOutput{}, err
		}
	}

	records, err := s.windows.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("failed to list windows: %w", err)
	}

	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(records))}
	for _, rec := range records {
		if args.State != "" && rec.State != filter {
			continue
		}
		out.Windows = append(out.Windows, windowInfo(rec))
	}
	out.Count = len(out.Windows)
	return nil, out, nil
}

func windowInfo(rec lifecycle.Record) WindowInfo {
	return WindowInfo{
		Window:      uint32(rec.ID),
		State:       rec.State.String(),
		Title:       rec.Descriptor.Title,
		Width:       rec.Size.Width,
		Height:      rec.Size.Height,
		X:           rec.Position.X,
		Y:           rec.Position.Y,
		Focused:     rec.Focused,
		ScaleFactor: rec.EffectiveScaleFactor(),
	}
}

func (s *Server) handleGetWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args GetWindowInput) (*mcpsdk.CallToolResult, GetWindowOutput, error) {
	if args.Window == 0 {
		return nil, GetWindowOutput{}, fmt.Errorf("window is required")
	}
	rec, err := s.windows.GetWindow(event.WindowID(args.Window))
	if err != nil {
		return nil, GetWindowOutput{}, err
	}
	return nil, GetWindowOutput{Record: *rec}, nil
}

func (s *Server) handleCreateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateWindowInput) (*mcpsdk.CallToolResult, CreateWindowOutput, error) {
	desc, err := args.descriptor()
	if err != nil {
		return nil, CreateWindowOutput{}, err
	}
	id, err := s.windows.CreateWindow(desc)
	if err != nil {
		return nil, CreateWindowOutput{}, fmt.Errorf("failed to create window: %w", err)
	}
	s.logger.Info("mcp: window created", "window_id", uint32(id))
	return nil, CreateWindowOutput{Window: uint32(id)}, nil
}

// descriptor returns nil for an empty input so the daemon applies its own
// default_window.
func (in CreateWindowInput) descriptor() (*event.Descriptor, error) {
	if in == (CreateWindowInput{}) {
		return nil, nil
	}
	desc := event.DefaultDescriptor()
	if in.Title != "" {
		desc.Title = in.Title
	}
	if in.Width != 0 {
		desc.Width = in.Width
	}
	if in.Height != 0 {
		desc.Height = in.Height
	}
	if in.Mode != "" {
		desc.Mode = event.WindowMode(in.Mode)
	}
	if in.Resizable != nil {
		desc.Resizable = *in.Resizable
	}
	if in.Decorations != nil {
		desc.Decorations = *in.Decorations
	}
	if in.ScaleFactor != nil {
		sf := *in.ScaleFactor
		desc.ScaleFactorOverride = &sf
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseWindowInput) (*mcpsdk.CallToolResult, CloseWindowOutput, error) {
	if args.Window == 0 {
		return nil, CloseWindowOutput{}, fmt.Errorf("window is required")
	}
	if err := s.windows.CloseWindow(event.WindowID(args.Window)); err != nil {
		return nil, CloseWindowOutput{}, fmt.Errorf("failed to close window %d: %w", args.Window, err)
	}
	s.logger.Info("mcp: window closed", "window_id", args.Window)
	return nil, CloseWindowOutput{Window: args.Window, Closed: true}, nil
}
